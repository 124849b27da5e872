package dispatch

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's business counters. A nil *Metrics disables
// instrumentation, so tests and tools can build the service without a registry.
type Metrics struct {
	Created     prometheus.Counter
	Transitions *prometheus.CounterVec
	Conflicts   prometheus.Counter
	Timeouts    prometheus.Counter
}

func (m *Metrics) created() {
	if m != nil && m.Created != nil {
		m.Created.Inc()
	}
}

func (m *Metrics) transition(toStatus string) {
	if m != nil && m.Transitions != nil {
		m.Transitions.WithLabelValues(toStatus).Inc()
	}
}

func (m *Metrics) conflict() {
	if m != nil && m.Conflicts != nil {
		m.Conflicts.Inc()
	}
}

func (m *Metrics) timeout() {
	if m != nil && m.Timeouts != nil {
		m.Timeouts.Inc()
	}
}
