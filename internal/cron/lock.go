package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/angelmondragon/marketplace-backend/pkg/redis"
)

const defaultLockTTL = 4 * time.Minute

// Lock coordinates exclusive cron runs across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RedisLock holds a named redis lock for one cycle. The token makes Release a no-op once
// the TTL lapsed and another replica took over.
type RedisLock struct {
	client pkgredis.Locker
	name   string
	ttl    time.Duration
	token  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client pkgredis.Locker, name string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, name: name, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.AcquireLock(ctx, l.name, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.name, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release frees the lock only if this instance still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if err := l.client.ReleaseLock(ctx, l.name, token); err != nil {
		return fmt.Errorf("release lock %s: %w", l.name, err)
	}
	return nil
}
