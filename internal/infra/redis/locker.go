package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "maternal-notify:lock"

// Locker hands out exclusive leases that expire on their own, so that only one replica
// fires a scheduled trigger per tick.
type Locker struct {
	client *goredis.Client
	owner  string
}

func NewLocker(client *goredis.Client) (*Locker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Locker{client: client, owner: uuid.NewString()}, nil
}

// TryLock takes the lease name for ttl and reports whether this caller got it.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("lock name is required")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("lock ttl must be positive")
	}

	key := fmt.Sprintf("%s:%s", lockKeyPrefix, name)
	ok, err := l.client.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %q: %w", name, err)
	}
	return ok, nil
}
