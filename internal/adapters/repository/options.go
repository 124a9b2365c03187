package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the time source used to stamp LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetricsUpdateInterval sets how often player counts are exported.
// Zero disables the updater.
func WithMetricsUpdateInterval(d time.Duration) Option {
	return func(s *MemoryStore) {
		if d >= 0 {
			s.metricsUpdateInterval = d
		}
	}
}
