package security

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// Quota describes a token bucket class: Capacity tokens, refilled at
// RefillCount tokens per RefillPeriod.
type Quota struct {
	Capacity     int
	RefillCount  int
	RefillPeriod time.Duration
}

// LoginQuota returns the bucket class for login attempts per origin+identity pair
func LoginQuota(capacity int, window time.Duration) Quota {
	return Quota{Capacity: capacity, RefillCount: capacity, RefillPeriod: window}
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// TokenBucketLimiter is a fixed-quota-per-interval limiter keyed by an
// arbitrary string. Buckets are created lazily on first use and refilled
// continuously from elapsed time at consumption, never by a timer.
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	logger  *slog.Logger
}

// NewTokenBucketLimiter creates an empty limiter
func NewTokenBucketLimiter(logger *slog.Logger) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
		logger:  logger,
	}
}

// TryConsume takes one token from the bucket for key, creating it at full
// capacity on first use. Returns false when no token is available; callers
// must treat that as an immediate rejection, not a retry signal.
func (l *TokenBucketLimiter) TryConsume(key string, q Quota) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(q.Capacity), lastRefill: now}
		l.buckets[key] = b
	} else if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		// Continuous refill rather than discrete window reset, so a burst
		// straddling a window boundary is not granted twice the quota.
		refill := float64(q.RefillCount) * (float64(elapsed) / float64(q.RefillPeriod))
		b.tokens = math.Min(b.tokens+refill, float64(q.Capacity))
		b.lastRefill = now
	}

	if b.tokens < 1 {
		l.logger.Warn("rate limit exceeded", slog.String("key", key))
		return false
	}

	b.tokens--
	return true
}

// PurgeStale removes buckets that have not been touched within maxIdle.
// A purged bucket is indistinguishable from a fresh one: it would have
// refilled to capacity by the time it is next consulted.
func (l *TokenBucketLimiter) PurgeStale(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
