package api

import (
	"time"

	"github.com/s3m-esports/standings/internal/adapters/http/auth"
)

type serverConfig struct {
	tokens    *auth.Tokens
	limiter   *auth.RateLimiter
	maxLimit  int
	keepAlive time.Duration
}

// Option configures a Server.
type Option func(*serverConfig)

// WithTokens enables bearer authentication. Without it every authenticated
// route answers 401.
func WithTokens(t *auth.Tokens) Option {
	return func(c *serverConfig) { c.tokens = t }
}

// WithRateLimiter limits admin mutations per actor.
func WithRateLimiter(l *auth.RateLimiter) Option {
	return func(c *serverConfig) { c.limiter = l }
}

// WithMaxLimit caps leaderboard page sizes.
func WithMaxLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithKeepAlive sets the event stream heartbeat interval.
func WithKeepAlive(d time.Duration) Option {
	return func(c *serverConfig) {
		if d > 0 {
			c.keepAlive = d
		}
	}
}
