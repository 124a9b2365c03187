// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and STANDINGS_* environment variables on top.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const minRecomputeAttempts = 2

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the score store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`
	// PostgresDSN is the connection string used by the postgres driver.
	PostgresDSN string `koanf:"postgres_dsn"`
	// PostgresMaxConns bounds the profile directory pool.
	PostgresMaxConns int `koanf:"postgres_max_conns"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RecomputeAttempts is how many times the gateway tries a recompute per mutation.
	// A failed recompute is always retried once, so the minimum is 2.
	RecomputeAttempts int `koanf:"recompute_attempts"`
	// RecomputeBackoffMS is the pause between recompute attempts.
	RecomputeBackoffMS int `koanf:"recompute_backoff_ms"`
	// HealIntervalSec runs a background recompute every N seconds; 0 disables it.
	HealIntervalSec int `koanf:"heal_interval_sec"`

	// FeedBuffer is the per-subscriber change event buffer.
	FeedBuffer int `koanf:"feed_buffer"`

	// NATSURL enables the cross-instance feed relay when set.
	NATSURL string `koanf:"nats_url"`
	// NATSRelayWorkers is the number of goroutines relaying events to NATS.
	NATSRelayWorkers int `koanf:"nats_relay_workers"`
	// NATSQueueSize bounds the outbound relay queue.
	NATSQueueSize int `koanf:"nats_queue_size"`

	// JWTSecret verifies bearer tokens (HS256).
	JWTSecret string `koanf:"jwt_secret"`
	// JWTIssuer is the expected token issuer; empty accepts any.
	JWTIssuer string `koanf:"jwt_issuer"`

	// MutationRatePerSec and MutationBurst limit admin writes per actor.
	MutationRatePerSec float64 `koanf:"mutation_rate_per_sec"`
	MutationBurst      int     `koanf:"mutation_burst"`

	// DedupeSize bounds the remembered point grant request ids.
	DedupeSize int `koanf:"dedupe_size"`

	// SSEKeepaliveSec is the comment heartbeat interval for event streams.
	SSEKeepaliveSec int `koanf:"sse_keepalive_sec"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreDriver:         DriverMemory,
		SQLitePath:          "standings.db",
		PostgresMaxConns:    10,
		MaxLeaderboardLimit: 500,
		RecomputeAttempts:   2,
		RecomputeBackoffMS:  50,
		HealIntervalSec:     60,
		FeedBuffer:          16,
		NATSRelayWorkers:    2,
		NATSQueueSize:       1024,
		JWTIssuer:           "standings",
		MutationRatePerSec:  20,
		MutationBurst:       40,
		DedupeSize:          10_000,
		SSEKeepaliveSec:     15,
	}
}

// RecomputeBackoff returns RecomputeBackoffMS as a duration.
func (c *Config) RecomputeBackoff() time.Duration {
	return time.Duration(c.RecomputeBackoffMS) * time.Millisecond
}

// HealInterval returns HealIntervalSec as a duration.
func (c *Config) HealInterval() time.Duration {
	return time.Duration(c.HealIntervalSec) * time.Second
}

// SSEKeepalive returns SSEKeepaliveSec as a duration.
func (c *Config) SSEKeepalive() time.Duration {
	return time.Duration(c.SSEKeepaliveSec) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.RecomputeAttempts < minRecomputeAttempts:
		return fmt.Errorf("%w: recompute_attempts must be at least %d", ErrInvalidConfig, minRecomputeAttempts)
	case c.FeedBuffer < 1:
		return fmt.Errorf("%w: feed_buffer must be positive", ErrInvalidConfig)
	case c.HealIntervalSec < 0:
		return fmt.Errorf("%w: heal_interval_sec must not be negative", ErrInvalidConfig)
	case c.MutationRatePerSec <= 0 || c.MutationBurst < 1:
		return fmt.Errorf("%w: mutation rate and burst must be positive", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
