// Package prometrics holds constructors for the service's custom Prometheus
// collectors. Registration is the caller's concern, so tests can use private
// registries and the DI container can recover already-registered collectors.
package prometrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal counts HTTP requests rejected by the rate limiter.
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
}

// NewSweepDurationSeconds tracks how long one dispatch sweep tick takes.
func NewSweepDurationSeconds() prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_sweep_duration_seconds",
		Help:    "Duration of one timeout and pending-retry sweep tick",
		Buckets: prometheus.DefBuckets,
	})
}

// NewAssignmentsCreatedTotal counts assignments opened for incoming orders.
func NewAssignmentsCreatedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_assignments_created_total",
		Help: "Total number of assignments created",
	})
}

// NewTransitionsTotal counts successful state transitions by target status.
func NewTransitionsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_transitions_total",
		Help: "Total number of successful assignment state transitions",
	}, []string{"to_status"})
}

// NewTransitionConflictsTotal counts conditional writes that lost a race.
func NewTransitionConflictsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_transition_conflicts_total",
		Help: "Total number of state transitions rejected by the optimistic guard",
	})
}

// NewOfferTimeoutsTotal counts offers released because the courier never answered.
func NewOfferTimeoutsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offer_timeouts_total",
		Help: "Total number of offers released by the response timeout sweep",
	})
}
