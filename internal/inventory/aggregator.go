package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pennyekart/pennyekart-backend/internal/demand"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	pkgredis "github.com/pennyekart/pennyekart-backend/pkg/redis"
)

// ReportCacheName is the cache entry holding the latest stock report.
const ReportCacheName = "stock_report"

type demandSource interface {
	Snapshot(ctx context.Context) (demand.Snapshot, error)
}

// reportCache is satisfied by pkg/redis.Client.
type reportCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(name string) string
}

// ReportService builds and serves the stock read model.
type ReportService interface {
	Build(ctx context.Context) (*Report, error)
	Refresh(ctx context.Context) (*Report, error)
	View(ctx context.Context, filter Filter) (*View, error)
	Invalidate(ctx context.Context) error
}

type reportService struct {
	repo   Repository
	demand demandSource
	cache  reportCache
	ttl    time.Duration
	logg   *logger.Logger
	now    func() time.Time
}

// NewReportService wires the aggregator. cache may be nil, in which case every
// read rebuilds the report.
func NewReportService(repo Repository, demandSvc demandSource, cache reportCache, ttl time.Duration, logg *logger.Logger) (ReportService, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if demandSvc == nil {
		return nil, fmt.Errorf("demand source required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &reportService{
		repo:   repo,
		demand: demandSvc,
		cache:  cache,
		ttl:    ttl,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// Build aggregates the report straight from the database.
func (s *reportService) Build(ctx context.Context) (*Report, error) {
	products, err := s.repo.ReportProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	totals, err := s.repo.ProductTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate stock")
	}
	batches, err := s.repo.AllBatches(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batches")
	}
	godowns, err := s.repo.AllGodowns(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load godowns")
	}
	snapshot, err := s.demand.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	report := BuildReport(products, totals, batches, godowns, snapshot, s.now())
	return &report, nil
}

// Refresh rebuilds the report and stores it in the cache. A failed cache
// write is an error here.
func (s *reportService) Refresh(ctx context.Context) (*Report, error) {
	report, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store(ctx, report); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"products":       len(report.Entries),
		"sampled_orders": report.SampledOrders,
	}), "stock report refreshed")
	return report, nil
}

// View serves the cached report when present and otherwise rebuilds it from
// the database. An unreachable cache only costs the rebuild.
func (s *reportService) View(ctx context.Context, filter Filter) (*View, error) {
	report := s.cached(ctx)
	if report == nil {
		built, err := s.Build(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.store(ctx, built); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stock report cache write failed")
		}
		report = built
	}
	view := report.Apply(filter)
	return &view, nil
}

// Invalidate drops the cached report so the next read rebuilds it.
func (s *reportService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Del(ctx, s.cache.CacheKey(ReportCacheName)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate stock report")
	}
	return nil
}

func (s *reportService) store(ctx context.Context, report *Report) error {
	if s.cache == nil {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode stock report")
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey(ReportCacheName), payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache stock report")
	}
	return nil
}

func (s *reportService) cached(ctx context.Context) *Report {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey(ReportCacheName))
	if err != nil {
		if !pkgredis.IsNil(err) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stock report cache read failed")
		}
		return nil
	}
	var report Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stock report cache corrupt")
		return nil
	}
	return &report
}
