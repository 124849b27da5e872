package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config stores dispatch service settings.
type Config struct {
	Port      int
	DB        DB
	Kafka     Kafka
	Dispatch  Dispatch
	RateLimit RateLimit
	Pprof     Pprof
}

// DB stores PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a PostgreSQL connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Kafka stores broker and topic settings. Empty brokers disable Kafka wiring.
type Kafka struct {
	Brokers     []string
	OrdersTopic string
	NotifyTopic string
	GroupID     string
}

// Dispatch stores the assignment engine tunables. Selector weights live here
// rather than as constants so ranking behavior can be tuned per deployment.
type Dispatch struct {
	ResponseTimeout time.Duration // courier response window per attempt
	SweepInterval   time.Duration // how often the timeout sweep runs
	MaxAttempts     int           // bounded reassignment cycles before failed
	ExtendBy        time.Duration // admin extendTimeout increment
	CandidateLimit  int           // max candidates ranked per attempt
	SweepBatch      int           // max expired records per sweep tick

	DistanceWeight    float64 // score weight per km to pickup
	AcceptanceWeight  float64 // score weight for (1 - acceptance rate)
	MaxRadiusKm       float64 // candidates beyond this are filtered out
	UrgentRadiusBoost float64 // multiplier widening the radius for urgent orders
}

// RateLimit stores settings for per-client HTTP rate limiting.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Pprof stores the debug profiling server settings. The server binds its own
// address and requires basic auth for non-loopback clients.
type Pprof struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      DefaultPort(),
		DB:        DefaultDB(),
		Kafka:     DefaultKafka(),
		Dispatch:  DefaultDispatch(),
		RateLimit: DefaultRateLimit(),
		Pprof:     DefaultPprof(),
	}

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}

	cfg.DB.Host = envStr("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envStr("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envStr("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Pass = envStr("POSTGRES_PASSWORD", cfg.DB.Pass)
	cfg.DB.Name = envStr("POSTGRES_DB", cfg.DB.Name)

	cfg.Kafka.Brokers = envList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.OrdersTopic = envStr("KAFKA_ORDERS_TOPIC", cfg.Kafka.OrdersTopic)
	cfg.Kafka.NotifyTopic = envStr("KAFKA_NOTIFY_TOPIC", cfg.Kafka.NotifyTopic)
	cfg.Kafka.GroupID = envStr("KAFKA_GROUP_ID", cfg.Kafka.GroupID)

	if cfg.Dispatch.ResponseTimeout, err = envDuration("DISPATCH_RESPONSE_TIMEOUT", cfg.Dispatch.ResponseTimeout); err != nil {
		return nil, err
	}
	if cfg.Dispatch.SweepInterval, err = envDuration("DISPATCH_SWEEP_INTERVAL", cfg.Dispatch.SweepInterval); err != nil {
		return nil, err
	}
	if cfg.Dispatch.MaxAttempts, err = envInt("DISPATCH_MAX_ATTEMPTS", cfg.Dispatch.MaxAttempts); err != nil {
		return nil, err
	}
	if cfg.Dispatch.ExtendBy, err = envDuration("DISPATCH_EXTEND_BY", cfg.Dispatch.ExtendBy); err != nil {
		return nil, err
	}
	if cfg.Dispatch.CandidateLimit, err = envInt("DISPATCH_CANDIDATE_LIMIT", cfg.Dispatch.CandidateLimit); err != nil {
		return nil, err
	}
	if cfg.Dispatch.SweepBatch, err = envInt("DISPATCH_SWEEP_BATCH", cfg.Dispatch.SweepBatch); err != nil {
		return nil, err
	}
	if cfg.Dispatch.DistanceWeight, err = envFloat("DISPATCH_DISTANCE_WEIGHT", cfg.Dispatch.DistanceWeight); err != nil {
		return nil, err
	}
	if cfg.Dispatch.AcceptanceWeight, err = envFloat("DISPATCH_ACCEPTANCE_WEIGHT", cfg.Dispatch.AcceptanceWeight); err != nil {
		return nil, err
	}
	if cfg.Dispatch.MaxRadiusKm, err = envFloat("DISPATCH_MAX_RADIUS_KM", cfg.Dispatch.MaxRadiusKm); err != nil {
		return nil, err
	}
	if cfg.Dispatch.UrgentRadiusBoost, err = envFloat("DISPATCH_URGENT_RADIUS_BOOST", cfg.Dispatch.UrgentRadiusBoost); err != nil {
		return nil, err
	}

	cfg.RateLimit.Enabled = envBool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	if cfg.RateLimit.Rate, err = envFloat("RATE_LIMIT_RATE", cfg.RateLimit.Rate); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = envInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.TTL, err = envDuration("RATE_LIMIT_TTL", cfg.RateLimit.TTL); err != nil {
		return nil, err
	}
	if cfg.RateLimit.MaxBuckets, err = envInt("RATE_LIMIT_MAX_BUCKETS", cfg.RateLimit.MaxBuckets); err != nil {
		return nil, err
	}

	cfg.Pprof.Enabled = envBool("PPROF_ENABLED", cfg.Pprof.Enabled)
	cfg.Pprof.Addr = envStr("PPROF_ADDR", cfg.Pprof.Addr)
	cfg.Pprof.User = envStr("PPROF_USER", cfg.Pprof.User)
	cfg.Pprof.Pass = envStr("PPROF_PASS", cfg.Pprof.Pass)

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	if err := parseFlags(); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFlags() error {
	if pflag.Parsed() {
		return nil
	}
	return pflag.CommandLine.Parse(os.Args[1:])
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if _, err := strconv.Atoi(c.DB.Port); err != nil {
		return fmt.Errorf("invalid postgres port: %q", c.DB.Port)
	}
	if c.Dispatch.ResponseTimeout <= 0 {
		return fmt.Errorf("invalid response timeout: %s", c.Dispatch.ResponseTimeout)
	}
	if c.Dispatch.SweepInterval <= 0 {
		return fmt.Errorf("invalid sweep interval: %s", c.Dispatch.SweepInterval)
	}
	if c.Dispatch.MaxAttempts <= 0 {
		return fmt.Errorf("invalid max attempts: %d", c.Dispatch.MaxAttempts)
	}
	return nil
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
