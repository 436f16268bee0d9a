package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// Ledger defaults to an in-process record, which only holds cadences
	// for a single worker.
	Ledger RunLedger
	Now    func() time.Time
}

// Service ticks every interval under a shared lock and runs each job that
// is due on its cadence.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	ledger   RunLedger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ledger := params.Ledger
	if ledger == nil {
		ledger = newMemoryLedger()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		ledger:   ledger,
		now:      now,
	}, nil
}

// Run executes a cycle immediately, then every interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

// RunOnce runs every due job when the lock is free. Job failures do not
// stop later jobs; they come back combined.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		var errs error
		for _, job := range s.registry.Jobs() {
			due, err := s.due(ctx, job.Name())
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if due {
				errs = multierr.Append(errs, s.runJob(ctx, job))
			}
		}
		return errs
	})
}

func (s *Service) due(ctx context.Context, name string) (bool, error) {
	every := s.registry.Every(name)
	if every <= 0 {
		return true, nil
	}
	last, ok, err := s.ledger.LastRun(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return !ok || s.now().Sub(last) >= every, nil
}

// RunJob runs a single named job under the lock, regardless of cadence.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "unknown cron job %q", name).
			WithDetails(map[string]any{"jobs": s.registry.Names()})
	}
	return s.withLock(ctx, func() error { return s.runJob(ctx, job) })
}

func (s *Service) withLock(ctx context.Context, fn func() error) (err error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled run starting")
	err = fn()
	s.logg.Info(s.logg.WithField(ctx, "failed_jobs", len(multierr.Errors(err))), "scheduled run complete")
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")
	start := s.now()
	err := job.Run(jobCtx)
	duration := s.now().Sub(start)
	s.metrics.Observe(job.Name(), duration, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	if every := s.registry.Every(job.Name()); every > 0 {
		if err := s.ledger.RecordRun(ctx, job.Name(), start); err != nil {
			s.logg.Error(jobCtx, "failed to record job run", err)
		}
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}
