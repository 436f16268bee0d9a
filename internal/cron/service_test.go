package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunOnceRunsAllJobsAndCombinesErrors(t *testing.T) {
	t.Parallel()
	ok := &testJob{name: StockReportJobName}
	bad := &testJob{name: LowStockJobName, err: errors.New("boom")}
	worse := &testJob{name: OutboxRetentionJobName, err: errors.New("bang")}
	lock := &fakeLock{}
	svc := newTestService(t, lock, bad, ok, worse)

	err := svc.RunOnce(context.Background())
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 combined errors, got %d (%v)", got, err)
	}
	if ok.runs != 1 || bad.runs != 1 || worse.runs != 1 {
		t.Fatalf("expected every job to run once, got %d %d %d", ok.runs, bad.runs, worse.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("expected lock released once, held=%v releases=%d", lock.held, lock.releases)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	t.Parallel()
	job := &testJob{name: StockReportJobName}
	svc := newTestService(t, &fakeLock{held: true}, job)

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected skip without error, got %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d", job.runs)
	}
}

func TestRunJobByName(t *testing.T) {
	t.Parallel()
	target := &testJob{name: LowStockJobName}
	other := &testJob{name: StockReportJobName}
	svc := newTestService(t, &fakeLock{}, other, target)

	if err := svc.RunJob(context.Background(), LowStockJobName); err != nil {
		t.Fatalf("run job: %v", err)
	}
	if target.runs != 1 || other.runs != 0 {
		t.Fatalf("expected only the named job to run, got %d and %d", target.runs, other.runs)
	}
	err := svc.RunJob(context.Background(), "nope")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	job := &testJob{name: StockReportJobName}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the first cycle to run immediately, ran %d", job.runs)
	}
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	t.Parallel()
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected lock error")
	}
}

func TestRunOnceHonoursJobCadence(t *testing.T) {
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	every := &testJob{name: "stock-report-refresh"}
	daily := &testJob{name: "outbox-retention"}
	registry := NewRegistry(every)
	registry.RegisterEvery(daily, 24*time.Hour)
	ledger := newMemoryLedger()

	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     &fakeLock{},
		Ledger:   ledger,
		Now:      func() time.Time { return clock },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	ctx := context.Background()
	for _, step := range []time.Duration{0, time.Hour, 23 * time.Hour} {
		clock = clock.Add(step)
		if err := svc.RunOnce(ctx); err != nil {
			t.Fatalf("run once: %v", err)
		}
	}
	if every.runs != 3 {
		t.Fatalf("expected every-cycle job to run 3 times, got %d", every.runs)
	}
	if daily.runs != 2 {
		t.Fatalf("expected daily job to run at start and after 24h, got %d", daily.runs)
	}

	if err := svc.RunJob(ctx, "outbox-retention"); err != nil {
		t.Fatalf("run job: %v", err)
	}
	if daily.runs != 3 {
		t.Fatalf("manual runs ignore cadence, got %d", daily.runs)
	}
}

func TestFailedCadencedJobRetriesNextCycle(t *testing.T) {
	daily := &testJob{name: "outbox-retention", err: errors.New("db down")}
	registry := NewRegistry()
	registry.RegisterEvery(daily, 24*time.Hour)
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: &fakeLock{}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	_ = svc.RunOnce(context.Background())
	daily.err = nil
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if daily.runs != 2 {
		t.Fatalf("failed runs must not be recorded, got %d runs", daily.runs)
	}
}

func TestRedisRunLedger(t *testing.T) {
	store := newMemoryRedis()
	ledger := NewRedisRunLedger(store)
	ctx := context.Background()

	if _, ok, err := ledger.LastRun(ctx, "outbox-retention"); err != nil || ok {
		t.Fatalf("expected no record, got %v %v", ok, err)
	}
	at := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	if err := ledger.RecordRun(ctx, "outbox-retention", at); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, ok := store.values["pk:cache:cron:last_run:outbox-retention"]; !ok {
		t.Fatalf("expected namespaced key, have %v", store.values)
	}
	got, ok, err := ledger.LastRun(ctx, "outbox-retention")
	if err != nil || !ok || !got.Equal(at) {
		t.Fatalf("expected %v, got %v %v %v", at, got, ok, err)
	}
}
