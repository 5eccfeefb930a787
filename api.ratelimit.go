package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiters keeps one token bucket per client address.
// A zero rate disables the limiting.
type ClientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
}

func NewClientLimiters(rps float64, burst int) *ClientLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &ClientLimiters{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// Enabled tells whether requests are limited at all.
func (cl *ClientLimiters) Enabled() bool {
	return cl != nil && cl.rate > 0
}

// Allow reports whether the client identified by key may proceed now.
func (cl *ClientLimiters) Allow(key string, now time.Time) bool {
	if !cl.Enabled() {
		return true
	}
	cl.mu.Lock()
	l, ok := cl.limiters[key]
	if !ok {
		l = &clientLimiter{limiter: rate.NewLimiter(cl.rate, cl.burst)}
		cl.limiters[key] = l
	}
	l.lastSeen = now
	cl.mu.Unlock()
	return l.limiter.AllowN(now, 1)
}

// Prune forgets the clients not seen for longer than maxIdle and
// returns how many were removed.
func (cl *ClientLimiters) Prune(now time.Time, maxIdle time.Duration) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	removed := 0
	for key, l := range cl.limiters {
		if now.Sub(l.lastSeen) > maxIdle {
			delete(cl.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (cl *ClientLimiters) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.limiters)
}
