package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is how long an idle key is kept.
	maxIdleAge = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key, usually the actor id, and
// prunes idle keys inline.
type RateLimiter struct {
	mu   sync.Mutex
	keys map[string]*limiterEntry
	r    rate.Limit
	b    int
	now  func() time.Time
}

// NewRateLimiter allows perSecond events per key with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		keys: make(map[string]*limiterEntry),
		r:    rate.Limit(perSecond),
		b:    burst,
		now:  time.Now,
	}
}

// Allow reports whether key may act now and consumes a token if so.
func (l *RateLimiter) Allow(key string) bool {
	return l.limiter(key).AllowN(l.now(), 1)
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.keys) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.keys {
			if e.lastSeen.Before(cutoff) {
				delete(l.keys, k)
			}
		}
	}

	e, ok := l.keys[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.keys[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
