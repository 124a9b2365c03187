package gateway

import (
	"time"

	"github.com/s3m-esports/standings/internal/domain/dedupe"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	"github.com/s3m-esports/standings/pkg/logger"
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithRecomputeAttempts sets how many times a recompute is tried per mutation.
func WithRecomputeAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithRecomputeBackoff sets the base pause between recompute attempts.
func WithRecomputeBackoff(d time.Duration) Option {
	return func(g *Gateway) {
		if d >= 0 {
			g.backoff = d
		}
	}
}

// WithDeduper replaces the point grant request id memory.
func WithDeduper(d dedupe.Deduper) Option {
	return func(g *Gateway) {
		if d != nil {
			g.dedupe = d
		}
	}
}

// WithRankFunc replaces the ranking procedure.
func WithRankFunc(f ranking.Func) Option {
	return func(g *Gateway) {
		if f != nil {
			g.rank = f
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}
