package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pennyekart/pennyekart-backend/internal/cron"
	"github.com/pennyekart/pennyekart-backend/internal/demand"
	"github.com/pennyekart/pennyekart-backend/internal/inventory"
	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/db"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/metrics"
	"github.com/pennyekart/pennyekart-backend/pkg/migrate"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
	"github.com/pennyekart/pennyekart-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	jobName := flag.String("job", "", "run a single job once and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
		Ledger:   cron.NewRedisRunLedger(redisClient),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	if *jobName != "" {
		ctx = logg.WithField(ctx, "job", *jobName)
		logg.Info(ctx, "running single cron job")
		if err := service.RunJob(ctx, *jobName); err != nil {
			logg.Error(ctx, "cron job failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	demandSvc, err := demand.NewService(demand.NewRepository(conn), cfg.Commerce.DemandWindow)
	if err != nil {
		return nil, err
	}
	reports, err := inventory.NewReportService(inventory.NewRepository(conn), demandSvc, redisClient, cfg.Cron.ReportTTL, logg)
	if err != nil {
		return nil, err
	}
	outboxRepo := outbox.NewRepository(conn)

	stockReport, err := cron.NewStockReportJob(logg, reports)
	if err != nil {
		return nil, fmt.Errorf("stock report job: %w", err)
	}
	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:  logg,
		DB:      dbClient,
		Reports: reports,
		Outbox:  outbox.NewService(outboxRepo, logg),
		Alerts:  redisClient,
	})
	if err != nil {
		return nil, fmt.Errorf("low stock job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		Events:           outboxRepo,
		DeadLetters:      outbox.NewDLQRepository(conn),
		Retention:        cfg.Outbox.Retention,
		DLQRetention:     cfg.Outbox.DLQRetention,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	registry := cron.NewRegistry(stockReport, lowStock)
	registry.RegisterEvery(retention, cfg.Cron.RetentionEvery)
	return registry, nil
}
