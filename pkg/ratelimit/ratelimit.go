// Package ratelimit enforces per-user request budgets with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneInterval is how often Allow drops buckets that have refilled.
const pruneInterval = time.Minute

// Limiter holds one token bucket per key. A bucket that has refilled to its
// burst behaves exactly like a new one, so such buckets are pruned and the
// map only holds keys that spent tokens recently.
type Limiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[string]*rate.Limiter
	lastPrune time.Time
	now       func() time.Time
}

// New creates a limiter allowing requestsPerMin per key, with a burst of the
// same size. A requestsPerMin of 0 disables limiting.
func New(requestsPerMin int) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*rate.Limiter),
		now:     time.Now,
	}
	l.setRate(requestsPerMin)
	return l
}

func (l *Limiter) setRate(requestsPerMin int) {
	if requestsPerMin <= 0 {
		l.limit = rate.Inf
		l.burst = 0
		return
	}
	l.limit = rate.Limit(float64(requestsPerMin) / 60.0)
	l.burst = requestsPerMin
}

// SetRate changes the per-key budget. Every key starts over with a full burst.
func (l *Limiter) SetRate(requestsPerMin int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setRate(requestsPerMin)
	clear(l.buckets)
}

// Allow reports whether key may make a request now, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit == rate.Inf {
		return true
	}

	now := l.now()
	if now.Sub(l.lastPrune) >= pruneInterval {
		l.prune(now)
		l.lastPrune = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b.AllowN(now, 1)
}

func (l *Limiter) prune(now time.Time) {
	full := float64(l.burst)
	for key, b := range l.buckets {
		if b.TokensAt(now) >= full {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of keys currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
