package agent

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-visitor token bucket. The key is the visitor ID only,
// not visitor:tab, so rotating tab IDs does not reset the budget.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitorLimiter
	limit    rate.Limit
	burst    int
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requests per window for each key, with bursts up to
// requests, and starts the background eviction goroutine.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		limiters: make(map[string]*visitorLimiter),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Allow reports whether a request for key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	v, ok := r.limiters[key]
	if !ok {
		v = &visitorLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = v
	}
	v.lastSeen = time.Now()
	r.mu.Unlock()

	return v.limiter.Allow()
}

// Stop ends the eviction goroutine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// evictLoop drops limiters idle for a full window. Their buckets are full
// by then, so a replacement behaves identically.
func (r *RateLimiter) evictLoop() {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.window)
			r.mu.Lock()
			for key, v := range r.limiters {
				if v.lastSeen.Before(cutoff) {
					delete(r.limiters, key)
				}
			}
			r.mu.Unlock()
		}
	}
}
