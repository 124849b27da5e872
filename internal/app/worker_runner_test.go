package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/sweep"
)

type idleDispatcher struct{}

func (idleDispatcher) HandleTimeouts(context.Context) (int, error) { return 0, nil }
func (idleDispatcher) AssignPending(context.Context) (int, error)  { return 0, nil }

func TestWorkerRunner_MustRun_NoPanicOnNil(t *testing.T) {
	r := &WorkerRunner{runFn: func(*dig.Container) error { return nil }}
	require.NotPanics(t, func() { r.MustRun(dig.New()) })
}

func TestWorkerRunner_MustRun_NoPanicOnCanceled(t *testing.T) {
	r := &WorkerRunner{runFn: func(*dig.Container) error { return context.Canceled }}
	require.NotPanics(t, func() { r.MustRun(dig.New()) })
}

func TestWorkerRunner_MustRun_PanicsOnOtherError(t *testing.T) {
	sentinel := errors.New("boom")
	r := &WorkerRunner{runFn: func(*dig.Container) error { return sentinel }}
	require.Panics(t, func() { r.MustRun(dig.New()) })
}

func TestWorkerRun_SweepOnly_RunsUntilCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := sweep.NewJob(idleDispatcher{}, time.Hour, nil, logx.Nop())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := workerRun(ctx, nil, logx.Nop(), nil, nil, job)
	require.ErrorIs(t, err, context.Canceled)
}
