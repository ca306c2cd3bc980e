package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when another holder owns the key.
var ErrLockNotObtained = errors.New("platform/cache: lock not obtained")

// Locker hands out short-lived exclusive Redis locks.
type Locker struct {
	client *redislock.Client
	retry  redislock.RetryStrategy
}

// NewLocker wraps client. Obtain retries every 100ms for up to wait before
// giving up; a zero wait tries once.
func NewLocker(client redis.UniversalClient, wait time.Duration) *Locker {
	retry := redislock.NoRetry()
	if wait > 0 {
		retry = redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(wait/(100*time.Millisecond)))
	}
	return &Locker{client: redislock.New(client), retry: retry}
}

// Obtain acquires key for ttl and returns the function releasing it.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
		}
		return nil, fmt.Errorf("platform/cache: obtain %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}
