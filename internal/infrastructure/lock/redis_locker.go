package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/mgallardo/gamestore/internal/domain/settlement"
	"github.com/redis/go-redis/v9"
)

// RedisLocker serializes settlements per gateway token across process
// instances. Obtain does not wait: a busy key means another instance is
// already settling that token, so the caller backs off immediately.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (settlement.Lock, error) {
	held, err := l.client.Obtain(ctx, "settlement:"+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, settlement.ErrInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("lock: obtain %q: %w", key, err)
	}
	return &redisLock{held: held}, nil
}

type redisLock struct {
	held *redislock.Lock
}

func (l *redisLock) Release(ctx context.Context) error {
	err := l.held.Release(ctx)
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("lock: release: %w", err)
	}
	return nil
}
