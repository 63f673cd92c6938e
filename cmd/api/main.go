package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealerworks/dms-backend/api/controllers"
	"github.com/dealerworks/dms-backend/api/routes"
	"github.com/dealerworks/dms-backend/internal/coretracking"
	"github.com/dealerworks/dms-backend/internal/customers"
	"github.com/dealerworks/dms-backend/internal/integration"
	"github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/internal/loyalty"
	"github.com/dealerworks/dms-backend/internal/parts"
	"github.com/dealerworks/dms-backend/internal/purchasing"
	"github.com/dealerworks/dms-backend/internal/settings"
	"github.com/dealerworks/dms-backend/pkg/auth/session"
	"github.com/dealerworks/dms-backend/pkg/config"
	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/instance"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/metrics"
	"github.com/dealerworks/dms-backend/pkg/migrate"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/pubsub"
	"github.com/dealerworks/dms-backend/pkg/redis"
	"github.com/dealerworks/dms-backend/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

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

	tracer, err := tracing.Init(context.Background(), "dms-api", cfg.App.Env, cfg.Tracing, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize tracing", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

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

	var sessions session.AccessSessionChecker
	if cfg.JWT.RequireSession {
		sessionManager, err := session.NewManager(redisClient, cfg.JWT)
		if err != nil {
			logg.Error(context.Background(), "failed to create session manager", err)
			os.Exit(1)
		}
		sessions = sessionManager
	}

	// Pub/Sub is only pinged for readiness here; cmd/outbox-publisher does the publishing.
	var pubsubPinger controllers.Pinger
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		pubsubPinger = pubsubClient
	}

	deps, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.PubSub = pubsubPinger
	deps.Sessions = sessions

	if cfg.Loyalty.TierFile != "" {
		defs, err := loyalty.LoadTierFile(cfg.Loyalty.TierFile)
		if err != nil {
			logg.Error(context.Background(), "failed to load loyalty tier file", err)
			os.Exit(1)
		}
		if err := deps.Loyalty.SyncTiers(context.Background(), defs); err != nil {
			logg.Error(context.Background(), "failed to sync loyalty tiers", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(context.Background(), "tiers", len(defs)), "loyalty tiers synced")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID("api"),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Deps, error) {
	var deps routes.Deps
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)

	partSvc, err := parts.NewService(parts.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return deps, err
	}
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		Repo:              inventoryRepo,
		DB:                dbClient,
		Outbox:            outboxSvc,
		Metrics:           domainMetrics,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
	})
	if err != nil {
		return deps, err
	}
	purchasingSvc, err := purchasing.NewService(purchasing.ServiceParams{
		Repo:              purchasing.NewRepository(dbClient.DB()),
		DB:                dbClient,
		Outbox:            outboxSvc,
		Inventory:         inventorySvc,
		Stock:             inventoryRepo,
		Logger:            logg,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
	})
	if err != nil {
		return deps, err
	}
	coreSvc, err := coretracking.NewService(coretracking.ServiceParams{
		Repo:   coretracking.NewRepository(dbClient.DB()),
		DB:     dbClient,
		Outbox: outboxSvc,
		Logger: logg,
	})
	if err != nil {
		return deps, err
	}
	customerSvc, err := customers.NewService(customers.NewRepository(dbClient.DB()))
	if err != nil {
		return deps, err
	}
	loyaltySvc, err := loyalty.NewService(loyalty.ServiceParams{
		Repo:             loyalty.NewRepository(dbClient.DB()),
		DB:               dbClient,
		Outbox:           outboxSvc,
		Metrics:          domainMetrics,
		Logger:           logg,
		PointsExpiryDays: cfg.Loyalty.PointsExpiryDays,
	})
	if err != nil {
		return deps, err
	}
	settingsSvc, err := settings.NewService(settings.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return deps, err
	}
	integrationSvc, err := integration.NewService(cfg.Integration, &http.Client{}, logg)
	if err != nil {
		return deps, err
	}

	deps.Parts = partSvc
	deps.Inventory = inventorySvc
	deps.Cores = coreSvc
	deps.Customers = customerSvc
	deps.Loyalty = loyaltySvc
	deps.Settings = settingsSvc
	deps.Integration = integrationSvc
	deps.Purchasing = purchasingSvc
	return deps, nil
}
