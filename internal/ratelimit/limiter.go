// Package ratelimit provides per-client request limiting for the HTTP API.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleEvictAfter is how long a client may be silent before its bucket is
// dropped. Keeps the client map from growing without bound.
const idleEvictAfter = 10 * time.Minute

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces a per-client token bucket. Requests over the limit are
// rejected immediately rather than queued, so a flooding client cannot tie
// up server goroutines waiting for tokens.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int

	// now is swapped out in tests.
	now func() time.Time
}

// NewPerMinute creates a limiter allowing rpm requests per minute per client,
// with a burst of the same size.
func NewPerMinute(rpm int) *Limiter {
	return &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(rpm) / 60.0),
		burst:   rpm,
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed now. It
// never blocks.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = l.now()

	return c.bucket.AllowN(c.lastSeen, 1)
}

// RetryAfter estimates how long the client should wait before the next
// request will be accepted. Zero means it may retry immediately.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		return 0
	}

	// Time to regenerate one token at the configured rate.
	if c.bucket.TokensAt(l.now()) >= 1 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.limit))
}

// Prune drops clients idle longer than idleEvictAfter and returns how many
// were removed. Callers run it periodically.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idleEvictAfter)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
