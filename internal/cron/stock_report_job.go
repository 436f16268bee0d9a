package cron

import (
	"context"
	"fmt"

	"github.com/pennyekart/pennyekart-backend/internal/inventory"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

// StockReportJobName refreshes the cached stock read model.
const StockReportJobName = "stock-report-refresh"

type reportRefresher interface {
	Refresh(ctx context.Context) (*inventory.Report, error)
}

type stockReportJob struct {
	logg    *logger.Logger
	reports reportRefresher
}

func NewStockReportJob(logg *logger.Logger, reports reportRefresher) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if reports == nil {
		return nil, fmt.Errorf("report service required")
	}
	return &stockReportJob{logg: logg, reports: reports}, nil
}

func (j *stockReportJob) Name() string { return StockReportJobName }

func (j *stockReportJob) Run(ctx context.Context) error {
	report, err := j.reports.Refresh(ctx)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"products":     len(report.Entries),
		"out_of_stock": report.Stats.OutOfStock,
		"low_stock":    report.Stats.LowStock,
	}), "stock report cached")
	return nil
}
