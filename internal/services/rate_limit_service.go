package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
)

// RateLimitChecker is the fixed-window contract shared by the in-memory and Redis limiters
type RateLimitChecker interface {
	Check(ctx context.Context, key string, window time.Duration, maxRequests int) (*models.RateLimitResult, error)
}

// RateLimiter is a per-process fixed-window counter keyed by an arbitrary string.
// Construct one at startup and schedule Sweep to bound memory.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*models.RateLimitBucket
	now     func() time.Time
}

// NewRateLimiter creates an empty RateLimiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*models.RateLimitBucket),
		now:     time.Now,
	}
}

// SetClock overrides the time source (tests)
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Check counts one request against key and reports whether it is allowed
func (l *RateLimiter) Check(_ context.Context, key string, window time.Duration, maxRequests int) (*models.RateLimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.WindowResetAt) {
		bucket = &models.RateLimitBucket{
			Key:           key,
			Count:         1,
			WindowResetAt: now.Add(window),
		}
		l.buckets[key] = bucket
		return allowedResult(maxRequests, bucket.Count, bucket.WindowResetAt), nil
	}

	bucket.Count++
	if bucket.Count > maxRequests {
		return rejectedResult(bucket.WindowResetAt, now), nil
	}

	return allowedResult(maxRequests, bucket.Count, bucket.WindowResetAt), nil
}

// Sweep drops every bucket whose window has passed at now and returns how many were removed
func (l *RateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, bucket := range l.buckets {
		if now.After(bucket.WindowResetAt) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live buckets
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Now exposes the limiter's clock to the sweep task
func (l *RateLimiter) Now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now()
}

func allowedResult(maxRequests, count int, resetAt time.Time) *models.RateLimitResult {
	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

func rejectedResult(resetAt, now time.Time) *models.RateLimitResult {
	return &models.RateLimitResult{
		Allowed:           false,
		Remaining:         0,
		ResetAt:           resetAt,
		RetryAfterSeconds: retryAfterSeconds(resetAt.Sub(now)),
	}
}

// retryAfterSeconds rounds up and never reports less than one second
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
