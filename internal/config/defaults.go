package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "dispatch",
	Pass: "dispatch",
	Name: "dispatch_db",
}

var defaultKafka = Kafka{
	Brokers:     nil, // empty disables Kafka wiring
	OrdersTopic: "orders.events",
	NotifyTopic: "dispatch.notifications",
	GroupID:     "service-dispatch",
}

var defaultDispatch = Dispatch{
	ResponseTimeout: 30 * time.Second,
	SweepInterval:   2 * time.Second,
	MaxAttempts:     5,
	ExtendBy:        30 * time.Second,
	CandidateLimit:  10,
	SweepBatch:      100,

	DistanceWeight:    1.0,
	AcceptanceWeight:  5.0,
	MaxRadiusKm:       10,
	UrgentRadiusBoost: 2.0,
}

var defaultRateLimit = RateLimit{
	Enabled:    false,
	Rate:       20,
	Burst:      40,
	TTL:        10 * time.Minute,
	MaxBuckets: 100_000,
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultKafka returns the default Kafka settings.
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultDispatch returns the default dispatch engine settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultRateLimit returns the default rate limit settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}

var defaultPprof = Pprof{
	Enabled: false,
	Addr:    "127.0.0.1:6060",
}

// DefaultPprof returns the default pprof server settings.
func DefaultPprof() Pprof {
	return defaultPprof
}
