package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-dispatch/internal/logx"
)

// Runner runs the HTTP server.
type Runner struct {
	runFn func(*dig.Container) error
}

// NewRunner returns a new Runner.
func NewRunner() *Runner {
	return &Runner{runFn: run}
}

// MustRun starts the HTTP server using the provided DI container.
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}

	logErr := container.Invoke(func(logger logx.Logger) {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info("shutdown requested, exiting")
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("startup aborted: startup timeout exceeded")
		default:
			logger.Error("run error", logx.Any("err", err))
		}
	})
	if logErr != nil || (!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)) {
		panic(err)
	}
}

type runIn struct {
	dig.In

	Ctx    context.Context
	Pool   *pgxpool.Pool
	Logger logx.Logger
	Server *http.Server
	Pprof  *http.Server `name:"pprof_server" optional:"true"`
}

func run(container *dig.Container) error {
	return container.Invoke(func(in runIn) error {
		startServer(in.Server, "service-dispatch", in.Logger)
		if in.Pprof != nil {
			startServer(in.Pprof, "pprof", in.Logger)
		}

		<-in.Ctx.Done()
		in.Logger.Info("shutting down service-dispatch...")

		gracefulShutdown(in.Server, in.Logger, 15*time.Second)
		if in.Pprof != nil {
			gracefulShutdown(in.Pprof, in.Logger, time.Second)
		}
		closeResources(in.Pool, in.Server, in.Logger)
		return in.Ctx.Err()
	})
}

func startServer(server *http.Server, name string, logger logx.Logger) {
	go func() {
		logger.Info("http server listening",
			logx.String("server", name),
			logx.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error",
				logx.String("server", name),
				logx.Any("err", err),
			)
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.Any("err", err))
	}
}

func closeResources(pool *pgxpool.Pool, server *http.Server, logger logx.Logger) {
	if err := server.Close(); err != nil {
		logger.Warn("server close error", logx.Any("err", err))
	}
	if pool != nil {
		pool.Close()
	}
}
