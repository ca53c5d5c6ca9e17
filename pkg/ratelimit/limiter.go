// Package ratelimit provides a token-bucket limiter used to throttle
// fingerprint submission endpoints, which are the natural target for
// brute-force probing of the similarity matcher.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a single token bucket. Tokens refill continuously at refillRate
// per second up to capacity.
type bucket struct {
	capacity   int
	tokens     float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newBucket(capacity int, refillRate float64) *bucket {
	return &bucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// take consumes one token if available.
func (b *bucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// Limiter tracks one token bucket per key. Idle buckets are swept after the
// TTL so the map stays bounded under churning client populations.
type Limiter struct {
	capacity   int
	refillRate float64
	ttl        time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLimiter creates a keyed limiter allowing bursts of capacity and a
// sustained refillRate requests per second per key. A positive ttl starts a
// background sweep of idle buckets.
func NewLimiter(capacity int, refillRate float64, ttl time.Duration) *Limiter {
	l := &Limiter{
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
		buckets:    make(map[string]*bucket),
	}
	if ttl > 0 {
		go l.sweep()
	}
	return l
}

// Allow reports whether the key may proceed, consuming one token if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = newBucket(l.capacity, l.refillRate)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	return b.take()
}

// ActiveKeys returns how many keys currently hold a bucket.
func (l *Limiter) ActiveKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for key, b := range l.buckets {
			b.mu.Lock()
			idle := now.Sub(b.lastRefill) > l.ttl
			b.mu.Unlock()
			if idle {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
