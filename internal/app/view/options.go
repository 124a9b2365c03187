package view

import "time"

// Option configures a Builder.
type Option func(*Builder)

// WithMaxLimit caps the page size.
func WithMaxLimit(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxLimit = n
		}
	}
}

// WithClock overrides the time source for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLastRecompute reports the last successful recompute in summaries.
func WithLastRecompute(f func() *time.Time) Option {
	return func(b *Builder) {
		if f != nil {
			b.lastRecompute = f
		}
	}
}
