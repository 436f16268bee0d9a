package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/internal/inventory"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
)

// LowStockJobName scans the stock report for products needing reorder.
const LowStockJobName = "low-stock-scan"

const defaultAlertTTL = 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reportBuilder interface {
	Build(ctx context.Context) (*inventory.Report, error)
}

// alertStore suppresses repeat alerts; satisfied by pkg/redis.Client.
type alertStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CacheKey(name string) string
}

type LowStockJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Reports  reportBuilder
	Outbox   outbox.Emitter
	Alerts   alertStore
	AlertTTL time.Duration
}

type lowStockJob struct {
	logg     *logger.Logger
	db       txRunner
	reports  reportBuilder
	outbox   outbox.Emitter
	alerts   alertStore
	alertTTL time.Duration
	now      func() time.Time
}

func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reports == nil {
		return nil, fmt.Errorf("report service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert store required")
	}
	ttl := params.AlertTTL
	if ttl <= 0 {
		ttl = defaultAlertTTL
	}
	return &lowStockJob{
		logg:     params.Logger,
		db:       params.DB,
		reports:  params.Reports,
		outbox:   params.Outbox,
		alerts:   params.Alerts,
		alertTTL: ttl,
		now:      time.Now,
	}, nil
}

func (j *lowStockJob) Name() string { return LowStockJobName }

// Run emits stock.low_detected once per product and status within the alert
// TTL. Active products only.
func (j *lowStockJob) Run(ctx context.Context) error {
	report, err := j.reports.Build(ctx)
	if err != nil {
		return err
	}
	var errs error
	emitted := 0
	for _, entry := range report.Entries {
		if !entry.IsActive || entry.Status == enums.StockStatusInStock {
			continue
		}
		key := j.alerts.CacheKey(fmt.Sprintf("low_stock:%s:%s", entry.ProductID, entry.Status))
		fresh, err := j.alerts.SetNX(ctx, key, entry.TotalQuantity, j.alertTTL)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("alert guard %s: %w", entry.ProductID, err))
			continue
		}
		if !fresh {
			continue
		}
		if err := j.emit(ctx, entry); err != nil {
			if delErr := j.alerts.Del(ctx, key); delErr != nil {
				err = multierr.Append(err, delErr)
			}
			errs = multierr.Append(errs, fmt.Errorf("emit %s: %w", entry.ProductID, err))
			continue
		}
		emitted++
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"products": len(report.Entries),
		"emitted":  emitted,
		"failed":   len(multierr.Errors(errs)),
	}), "low stock scan complete")
	return errs
}

func (j *lowStockJob) emit(ctx context.Context, entry inventory.StockEntry) error {
	at := j.now().UTC()
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockLowDetected,
			AggregateType: enums.AggregateProduct,
			AggregateID:   entry.ProductID,
			OccurredAt:    at,
			Data: payloads.StockLowDetectedEvent{
				ProductID:     entry.ProductID,
				Name:          entry.Name,
				TotalQuantity: entry.TotalQuantity,
				ReorderLevel:  entry.ReorderLevel,
				Status:        entry.Status,
				DetectedAt:    at,
			},
		})
	})
}
