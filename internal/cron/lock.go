package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/pkg/instance"
)

const defaultLockTTL = 4 * time.Minute

// Lock keeps a cron cycle to one worker at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a SETNX lock whose value names the owning worker and cycle.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	owner  string
	holder string
}

// NewRedisLock builds a lock on key. The TTL should be shorter than the cron
// interval so a crashed worker never blocks the next cycle.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl, owner: instance.GetID()}, nil
}

// Acquire reports whether this worker now holds the lock.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	holder := l.owner + ":" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, holder, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.holder = holder
	}
	return ok, nil
}

// Release deletes the key only while it still carries this cycle's value.
// A lock that expired and was taken by another worker is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.holder == "" {
		return nil
	}
	holder := l.holder
	l.holder = ""
	if _, err := l.client.CompareAndDelete(ctx, l.key, holder); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
