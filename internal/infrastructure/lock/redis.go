// Package lock provides a Redis-backed lock.Locker for multi-instance
// deployments.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"freshledger/internal/core/apperror"
	corelock "freshledger/internal/core/lock"
	"freshledger/pkg/logger"
)

const keyPrefix = "freshledger:lock:"

// RedisConfig tunes lock acquisition.
type RedisConfig struct {
	// TTL bounds how long a crashed holder keeps the key.
	TTL time.Duration
	// RetryInterval and MaxRetries control waiting for a busy key.
	RetryInterval time.Duration
	MaxRetries    int
}

// DefaultRedisConfig waits up to ~10s for a busy key.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		TTL:           time.Minute,
		RetryInterval: 100 * time.Millisecond,
		MaxRetries:    100,
	}
}

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// RedisLocker implements corelock.Locker on top of bsm/redislock.
type RedisLocker struct {
	client obtainer
	cfg    RedisConfig
}

var _ corelock.Locker = (*RedisLocker)(nil)

// NewRedisLocker wraps an existing go-redis client.
func NewRedisLocker(rdb redis.UniversalClient, cfg RedisConfig) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), cfg: cfg}
}

// Acquire obtains key, retrying linearly until MaxRetries is exhausted.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (corelock.Release, error) {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.cfg.RetryInterval), l.cfg.MaxRetries),
	}

	lk, err := l.client.Obtain(ctx, keyPrefix+key, l.cfg.TTL, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperror.NewLockBusy(key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) {
		if lk == nil {
			return
		}
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "failed to release lock", "key", key, "error", err)
		}
	}, nil
}
