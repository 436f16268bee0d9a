package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/router"
	"github.com/pennyekart/pennyekart-backend/internal/analytics/worker"
	"github.com/pennyekart/pennyekart-backend/internal/analytics/writer"
	"github.com/pennyekart/pennyekart-backend/pkg/bigquery"
	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/metrics"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/idempotency"
	"github.com/pennyekart/pennyekart-backend/pkg/pubsub"
	"github.com/pennyekart/pennyekart-backend/pkg/redis"
)

const flushTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery,
		[]bigquery.TableSpec{writer.FulfillmentTable(cfg.BigQuery.FulfillmentTable)}, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}

	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL, cfg.Eventing.ClaimLease)
	requireResource(ctx, logg, "idempotency claims", err)

	analyticsWriter, err := writer.New(bqClient, writer.Config{
		FulfillmentTable: cfg.BigQuery.FulfillmentTable,
		RetryPolicy:      writer.RetryPolicy{MaxAttempts: cfg.BigQuery.InsertMaxAttempts},
	})
	requireResource(ctx, logg, "fulfillment bigquery writer", err)

	routingHandler, err := router.NewRouter(analyticsWriter, logg, nil)
	requireResource(ctx, logg, "analytics router", err)

	service, err := worker.NewService(worker.Params{
		Subscriber: subscription,
		Handler:    routingHandler,
		Claims:     claims,
		Logger:     logg,
		Metrics:    metrics.NewConsumerMetrics(prometheus.DefaultRegisterer),
	})
	requireResource(ctx, logg, "analytics worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.AnalyticsSubscription,
		"table":        cfg.BigQuery.FulfillmentTable,
	})
	logg.Info(runCtx, "analytics worker ready")

	go func() {
		if err := metrics.Serve(runCtx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(runCtx, "metrics listener failed", err)
		}
	}()

	runErr := service.Run(runCtx)

	// buffered rows would otherwise be lost on shutdown
	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := analyticsWriter.Flush(flushCtx); err != nil {
		logg.Error(runCtx, "failed to flush fulfillment rows", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", runErr)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
