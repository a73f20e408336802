package services

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultRateLimitPrefix = "ratelimit:"

// fixedWindowLua counts one hit and returns {count, pttl}.
// KEYS[1] = bucket key
// ARGV[1] = window in milliseconds
var fixedWindowLua = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisRateLimiter shares fixed-window buckets across instances through Redis.
// Buckets expire with their window, so no sweep is needed.
type RedisRateLimiter struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter creates a limiter storing buckets under prefix
func NewRedisRateLimiter(redisClient redis.UniversalClient, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RedisRateLimiter{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

// SetClock overrides the time source used to compute ResetAt (tests)
func (l *RedisRateLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Check counts one request against key and reports whether it is allowed
func (l *RedisRateLimiter) Check(ctx context.Context, key string, window time.Duration, maxRequests int) (*models.RateLimitResult, error) {
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}

	values, err := fixedWindowLua.Run(ctx, l.redis, []string{l.prefix + key}, windowMs).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRateLimiterUnavailable, err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("%w: unexpected script reply %v", models.ErrRateLimiterUnavailable, values)
	}

	count := int(values[0])
	ttl := time.Duration(values[1]) * time.Millisecond
	now := l.now()
	resetAt := now.Add(ttl)

	if count > maxRequests {
		return rejectedResult(resetAt, now), nil
	}

	return allowedResult(maxRequests, count, resetAt), nil
}

// Ping checks the Redis connection
func (l *RedisRateLimiter) Ping(ctx context.Context) error {
	if err := l.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrRateLimiterUnavailable, err)
	}
	return nil
}
