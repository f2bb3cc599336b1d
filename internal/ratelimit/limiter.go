package ratelimit

import "context"

// RateLimiter controls throughput per key, e.g. a delivery channel or a client address.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
