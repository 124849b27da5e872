package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/sweep"
	"service-dispatch/internal/transport/kafka"
)

// WorkerRunner runs the dispatch worker: the timeout sweep plus the orders
// consumer when Kafka is configured.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner.
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the worker using the provided DI container.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger logx.Logger,
	consumer *kafka.Consumer,
	producer *notify.Producer,
	job *sweep.Job,
) error {
	if err := job.Start(); err != nil {
		return err
	}
	defer closeWorker(pool, logger, consumer, producer, job)

	logger.Info("service-dispatch-worker started")

	if consumer == nil {
		// no Kafka configured, the sweep still has to run
		logger.Info("kafka disabled, running sweep only")
		<-ctx.Done()
		return ctx.Err()
	}
	return consumer.Run(ctx)
}

func closeWorker(
	pool *pgxpool.Pool,
	logger logx.Logger,
	consumer *kafka.Consumer,
	producer *notify.Producer,
	job *sweep.Job,
) {
	job.Stop()
	if err := consumer.Close(); err != nil {
		logger.Error("kafka consumer close error", logx.Any("err", err))
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka producer close error", logx.Any("err", err))
	}
	if pool != nil {
		pool.Close()
	}
}
