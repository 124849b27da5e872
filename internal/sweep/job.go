package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"service-dispatch/internal/logx"
)

// Dispatcher is the subset of dispatch operations the sweep drives.
type Dispatcher interface {
	HandleTimeouts(ctx context.Context) (int, error)
	AssignPending(ctx context.Context) (int, error)
}

// Job periodically releases expired offers and retries pending assignments.
// Ticks are idempotent and safe to overlap with courier responses or another
// sweep instance: every release is a conditional write.
type Job struct {
	dispatcher Dispatcher
	cron       *cron.Cron
	interval   time.Duration
	duration   prometheus.Observer
	logger     logx.Logger
}

// NewJob creates a new sweep job. The duration observer may be nil.
func NewJob(d Dispatcher, interval time.Duration, duration prometheus.Observer, logger logx.Logger) *Job {
	return &Job{
		dispatcher: d,
		cron:       cron.New(cron.WithSeconds()),
		interval:   interval,
		duration:   duration,
		logger:     logger.With(logx.String("component", "dispatch_sweep")),
	}
}

// Start begins the sweep at the configured interval.
func (j *Job) Start() error {
	_, err := j.cron.AddFunc(fmt.Sprintf("@every %s", j.interval), j.tick)
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("dispatch sweep started", logx.Duration("interval", j.interval))
	return nil
}

// Stop stops the sweep and waits for a running tick to finish.
func (j *Job) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("dispatch sweep stopped")
}

func (j *Job) tick() {
	ctx := context.Background()
	start := time.Now()

	released, err := j.dispatcher.HandleTimeouts(ctx)
	if err != nil {
		j.logger.Error("timeout sweep failed", logx.Any("err", err))
	}

	assigned, err := j.dispatcher.AssignPending(ctx)
	if err != nil {
		j.logger.Error("pending retry sweep failed", logx.Any("err", err))
	}

	if j.duration != nil {
		j.duration.Observe(time.Since(start).Seconds())
	}

	if released > 0 || assigned > 0 {
		j.logger.Info("sweep tick",
			logx.Int("released", released),
			logx.Int("assigned", assigned),
		)
	}
}
