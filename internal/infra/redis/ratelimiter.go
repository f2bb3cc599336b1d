package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/ratelimit"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec = 10
	rateLimitKeyPrefix = "maternal-notify:ratelimit"
	minRetryAfter      = time.Millisecond
)

// slidingWindowScript admits a request when fewer than ARGV[3] requests were admitted after
// the cutoff ARGV[2]. ARGV[1] is now and ARGV[5] the window, both in milliseconds. It returns 0
// on admission, otherwise the milliseconds until the oldest admitted request leaves the window.
var slidingWindowScript = goredis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
if redis.call("ZCARD", KEYS[1]) < tonumber(ARGV[3]) then
  redis.call("ZADD", KEYS[1], ARGV[1], ARGV[4])
  redis.call("PEXPIRE", KEYS[1], ARGV[5])
  return 0
end
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
return tonumber(oldest[2]) + tonumber(ARGV[5]) - tonumber(ARGV[1])
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter admits at most limit requests per key in any trailing window, shared by
// every replica through one sorted set per key.
type RedisRateLimiter struct {
	client *goredis.Client
	limit  int
	window time.Duration
	now    func() time.Time
	newID  func() string
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRedisRateLimiter allows limitPerSec requests per key in any one-second window.
func NewRedisRateLimiter(client *goredis.Client, limitPerSec int) (*RedisRateLimiter, error) {
	return NewSlidingWindowLimiter(client, limitPerSec, time.Second)
}

func NewSlidingWindowLimiter(client *goredis.Client, limit int, window time.Duration) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limit <= 0 {
		limit = defaultLimitPerSec
	}
	if window < time.Millisecond {
		return nil, fmt.Errorf("rate limit window must be at least 1ms")
	}

	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
		newID:  uuid.NewString,
		sleep:  sleepWithContext,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	retryAfter, err := r.reserve(ctx, key)
	if err != nil {
		return false, err
	}
	return retryAfter == 0, nil
}

// Wait blocks until key is admitted, sleeping for the delay the window reports between tries.
func (r *RedisRateLimiter) Wait(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		retryAfter, err := r.reserve(ctx, key)
		if err != nil {
			return err
		}
		if retryAfter == 0 {
			return nil
		}
		if err := r.sleep(ctx, retryAfter); err != nil {
			return err
		}
	}
}

// reserve returns zero when the request was admitted, otherwise how long until a slot frees.
func (r *RedisRateLimiter) reserve(ctx context.Context, key string) (time.Duration, error) {
	if r == nil || r.client == nil {
		return 0, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return 0, fmt.Errorf("rate limit key is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	setKey := fmt.Sprintf("%s:%s", rateLimitKeyPrefix, normalizedKey)
	nowMs := r.now().UTC().UnixMilli()
	windowMs := r.window.Milliseconds()
	waitMs, err := slidingWindowScript.Run(ctx, r.client, []string{setKey},
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(nowMs-windowMs, 10),
		strconv.Itoa(r.limit),
		r.newID(),
		strconv.FormatInt(windowMs, 10),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	if waitMs <= 0 {
		return 0, nil
	}
	retryAfter := time.Duration(waitMs) * time.Millisecond
	if retryAfter < minRetryAfter {
		retryAfter = minRetryAfter
	}
	return retryAfter, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
