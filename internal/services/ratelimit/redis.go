package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/yeargame/internal/dependencies/clock"
	"github.com/mcoot/yeargame/internal/model"
)

const redisKeyPrefix = "yeargame:ratelimit:"

// slidingWindow prunes, counts and records in one round trip.
// Returns 0 when the attempt was recorded, otherwise the retry delay in milliseconds.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= max then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local retry = tonumber(oldest[2]) + window - now
  if retry < 1 then
    retry = 1
  end
  return retry
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 0
`)

// RedisLimiter is a sliding-window limiter shared by every process using the same Redis.
// Keys expire on their own, so it needs no sweep loop.
type RedisLimiter struct {
	client *redis.Client
	clock  clock.Clock
}

// Ensure RedisLimiter implements Checker
var _ Checker = (*RedisLimiter)(nil)

// NewRedis creates a RedisLimiter using an existing client
func NewRedis(client *redis.Client, clock clock.Clock) *RedisLimiter {
	return &RedisLimiter{client: client, clock: clock}
}

// CheckLimit implements Checker
func (l *RedisLimiter) CheckLimit(ctx context.Context, key string, maxAttempts int, window time.Duration) error {
	if maxAttempts <= 0 {
		return nil
	}
	now := l.clock.Now().UnixMilli()

	retryMs, err := slidingWindow.Run(ctx, l.client,
		[]string{redisKeyPrefix + key},
		now, window.Milliseconds(), maxAttempts, uuid.NewString(),
	).Int64()
	if err != nil {
		return err
	}

	if retryMs > 0 {
		return &model.RateLimitedError{
			Key:        key,
			RetryAfter: time.Duration(retryMs) * time.Millisecond,
		}
	}
	return nil
}
