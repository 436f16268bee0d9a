package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pennyekart/pennyekart-backend/api/controllers"
	"github.com/pennyekart/pennyekart-backend/api/routes"
	"github.com/pennyekart/pennyekart-backend/internal/cart"
	"github.com/pennyekart/pennyekart-backend/internal/catalog"
	checkoutsvc "github.com/pennyekart/pennyekart-backend/internal/checkout"
	"github.com/pennyekart/pennyekart-backend/internal/demand"
	"github.com/pennyekart/pennyekart-backend/internal/fulfillment"
	"github.com/pennyekart/pennyekart-backend/internal/geography"
	"github.com/pennyekart/pennyekart-backend/internal/godowns"
	"github.com/pennyekart/pennyekart-backend/internal/inventory"
	"github.com/pennyekart/pennyekart-backend/internal/orders"
	"github.com/pennyekart/pennyekart-backend/internal/staff"
	"github.com/pennyekart/pennyekart-backend/internal/users"
	"github.com/pennyekart/pennyekart-backend/internal/wallet"
	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/db"
	"github.com/pennyekart/pennyekart-backend/pkg/instance"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/metrics"
	"github.com/pennyekart/pennyekart-backend/pkg/migrate"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
	"github.com/pennyekart/pennyekart-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	services, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Idempotency: redisClient,
			Ready: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
			Metrics:     prometheus.DefaultGatherer,
			HTTPMetrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		}, *services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*routes.Services, error) {
	conn := dbClient.DB()
	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	profiles := users.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	geo, err := geography.NewService(geography.NewRepository(conn), logg)
	if err != nil {
		return nil, err
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), geo)
	if err != nil {
		return nil, err
	}
	cartStore, err := cart.NewRedisStore(redisClient, cfg.Commerce.CartTTL)
	if err != nil {
		return nil, err
	}
	cartSvc, err := cart.NewService(cartStore, catalogSvc, logg)
	if err != nil {
		return nil, err
	}
	checkout, err := checkoutsvc.NewService(
		dbClient,
		ordersRepo,
		cartSvc,
		emitter,
		checkoutsvc.RejectingCoupons{},
		checkoutsvc.EmptyWallet{},
		cfg.Commerce.PlatformFeeAmount(),
		commerceMetrics,
		logg,
	)
	if err != nil {
		return nil, err
	}
	ordersSvc, err := orders.NewService(ordersRepo)
	if err != nil {
		return nil, err
	}
	walletSvc, err := wallet.NewService(dbClient, wallet.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	fulfillmentSvc, err := fulfillment.NewService(
		dbClient,
		ordersRepo,
		walletSvc,
		profiles,
		emitter,
		cfg.Commerce.DeliveryCreditAmount(),
		commerceMetrics,
		logg,
	)
	if err != nil {
		return nil, err
	}
	staffSvc, err := staff.NewService(dbClient, staff.NewRepository(conn), profiles, logg)
	if err != nil {
		return nil, err
	}
	demandSvc, err := demand.NewService(demand.NewRepository(conn), cfg.Commerce.DemandWindow)
	if err != nil {
		return nil, err
	}
	inventoryRepo := inventory.NewRepository(conn)
	reports, err := inventory.NewReportService(inventoryRepo, demandSvc, redisClient, cfg.Cron.ReportTTL, logg)
	if err != nil {
		return nil, err
	}
	purchases, err := inventory.NewPurchaseService(dbClient, inventoryRepo, emitter, reports, logg)
	if err != nil {
		return nil, err
	}
	godownSvc, err := godowns.NewService(dbClient, godowns.NewRepository(conn), logg)
	if err != nil {
		return nil, err
	}

	return &routes.Services{
		Catalog:     catalogSvc,
		Cart:        cartSvc,
		Checkout:    checkout,
		Orders:      ordersSvc,
		Fulfillment: fulfillmentSvc,
		Wallet:      walletSvc,
		Staff:       staffSvc,
		StockReport: reports,
		Purchases:   purchases,
		Godowns:     godownSvc,
	}, nil
}
