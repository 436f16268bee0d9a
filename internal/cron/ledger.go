package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/pennyekart/pennyekart-backend/pkg/redis"
)

const ledgerTTL = 30 * 24 * time.Hour

// RunLedger remembers when each job last succeeded so cadenced jobs stay on
// schedule whichever worker holds the lock.
type RunLedger interface {
	LastRun(ctx context.Context, job string) (time.Time, bool, error)
	RecordRun(ctx context.Context, job string, at time.Time) error
}

type ledgerStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(name string) string
}

// RedisRunLedger keeps last-run times under pk:cache:cron:last_run:<job>.
type RedisRunLedger struct {
	store ledgerStore
}

func NewRedisRunLedger(store ledgerStore) *RedisRunLedger {
	return &RedisRunLedger{store: store}
}

func (l *RedisRunLedger) key(job string) string {
	return l.store.CacheKey("cron:last_run:" + job)
}

func (l *RedisRunLedger) LastRun(ctx context.Context, job string) (time.Time, bool, error) {
	raw, err := l.store.Get(ctx, l.key(job))
	if err != nil {
		if pkgredis.IsNil(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read last run of %s: %w", job, err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// Unreadable entries are treated as never run.
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (l *RedisRunLedger) RecordRun(ctx context.Context, job string, at time.Time) error {
	return l.store.Set(ctx, l.key(job), at.UTC().Format(time.RFC3339Nano), ledgerTTL)
}

type memoryLedger struct {
	mu   sync.Mutex
	runs map[string]time.Time
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{runs: map[string]time.Time{}}
}

func (m *memoryLedger) LastRun(_ context.Context, job string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.runs[job]
	return at, ok, nil
}

func (m *memoryLedger) RecordRun(_ context.Context, job string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[job] = at
	return nil
}
