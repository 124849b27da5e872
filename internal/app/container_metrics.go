package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-dispatch/internal/prometrics"
	"service-dispatch/internal/service/dispatch"
)

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal prometheus.Counter   `name:"rate_limit_exceeded_total"`
	SweepDurationSeconds   prometheus.Histogram `name:"sweep_duration_seconds"`
	DispatchMetrics        *dispatch.Metrics
}

// provideMetrics registers the service collectors on the default registerer.
// A collector someone already registered (tests rebuilding containers) is
// reused instead of failing the build.
func provideMetrics() (metricsOut, error) {
	rl, err := registerCollector(prometrics.NewRateLimitExceededTotal(), "rate_limit_exceeded_total")
	if err != nil {
		return metricsOut{}, err
	}
	sd, err := registerCollector(prometrics.NewSweepDurationSeconds(), "dispatch_sweep_duration_seconds")
	if err != nil {
		return metricsOut{}, err
	}
	created, err := registerCollector(prometrics.NewAssignmentsCreatedTotal(), "dispatch_assignments_created_total")
	if err != nil {
		return metricsOut{}, err
	}
	transitions, err := registerCollector(prometrics.NewTransitionsTotal(), "dispatch_transitions_total")
	if err != nil {
		return metricsOut{}, err
	}
	conflicts, err := registerCollector(prometrics.NewTransitionConflictsTotal(), "dispatch_transition_conflicts_total")
	if err != nil {
		return metricsOut{}, err
	}
	timeouts, err := registerCollector(prometrics.NewOfferTimeoutsTotal(), "dispatch_offer_timeouts_total")
	if err != nil {
		return metricsOut{}, err
	}
	return metricsOut{
		RateLimitExceededTotal: rl,
		SweepDurationSeconds:   sd,
		DispatchMetrics: &dispatch.Metrics{
			Created:     created,
			Transitions: transitions,
			Conflicts:   conflicts,
			Timeouts:    timeouts,
		},
	}, nil
}

func registerCollector[C prometheus.Collector](c C, name string) (C, error) {
	err := prometheus.DefaultRegisterer.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	var zero C
	return zero, fmt.Errorf("register %s: %w", name, err)
}
