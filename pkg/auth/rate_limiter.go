package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether a keyed request may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

const bucketIdleTTL = time.Hour

// TokenBucketLimiter refills one token per interval up to a burst
// ceiling. Buckets idle for over an hour are evicted by a janitor.
type TokenBucketLimiter struct {
	mu             sync.Mutex
	buckets        map[string]*bucket
	burst          int
	refillInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// NewTokenBucketLimiter creates a limiter allowing requestsPerMinute
// sustained with bursts up to burst. The janitor runs at
// cleanupInterval; zero disables it.
func NewTokenBucketLimiter(requestsPerMinute, burst int, cleanupInterval time.Duration) *TokenBucketLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}

	limiter := &TokenBucketLimiter{
		buckets:        make(map[string]*bucket),
		burst:          burst,
		refillInterval: time.Minute / time.Duration(requestsPerMinute),
		stopCh:         make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go limiter.janitor(cleanupInterval)
	}

	return limiter
}

// Allow takes one token for the key if any is available.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{tokens: l.burst, lastRefill: now}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	refilled := int(now.Sub(b.lastRefill) / l.refillInterval)
	if refilled > 0 {
		b.tokens = min(b.tokens+refilled, l.burst)
		b.lastRefill = now
	}
	b.lastAccess = now

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Reset forgets the bucket for a key.
func (l *TokenBucketLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
	return nil
}

// Stop terminates the janitor.
func (l *TokenBucketLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *TokenBucketLimiter) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.dropIdle()
		}
	}
}

func (l *TokenBucketLimiter) dropIdle() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastAccess) > bucketIdleTTL
		b.mu.Unlock()
		if idle {
			delete(l.buckets, key)
		}
	}
}

// IPRateLimiter keys a token bucket by client IP.
type IPRateLimiter struct {
	limiter *TokenBucketLimiter
}

// NewIPRateLimiter creates an IP limiter with the given sustained rate
// and burst.
func NewIPRateLimiter(requestsPerMinute, burst int, cleanupInterval time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: NewTokenBucketLimiter(requestsPerMinute, burst, cleanupInterval),
	}
}

// Allow checks whether a request from the IP may proceed.
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, "ip:"+ip)
}

// Stop terminates the underlying janitor.
func (l *IPRateLimiter) Stop() {
	l.limiter.Stop()
}

// UserRateLimiter keys a token bucket by authenticated user.
type UserRateLimiter struct {
	limiter *TokenBucketLimiter
}

// NewUserRateLimiter creates a per-user limiter with the given
// sustained rate and burst.
func NewUserRateLimiter(requestsPerMinute, burst int, cleanupInterval time.Duration) *UserRateLimiter {
	return &UserRateLimiter{
		limiter: NewTokenBucketLimiter(requestsPerMinute, burst, cleanupInterval),
	}
}

// Allow checks whether a request from the user may proceed.
func (l *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	return l.limiter.Allow(ctx, "user:"+userID)
}

// Stop terminates the underlying janitor.
func (l *UserRateLimiter) Stop() {
	l.limiter.Stop()
}
