package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealerworks/dms-backend/internal/cron"
	"github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/internal/loyalty"
	"github.com/dealerworks/dms-backend/pkg/config"
	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/instance"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/metrics"
	"github.com/dealerworks/dms-backend/pkg/migrate"
	"github.com/dealerworks/dms-backend/pkg/outbox"
	"github.com/dealerworks/dms-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
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

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)
	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)

	loyaltySvc, err := loyalty.NewService(loyalty.ServiceParams{
		Repo:             loyalty.NewRepository(dbClient.DB()),
		DB:               dbClient,
		Outbox:           outboxSvc,
		Metrics:          domainMetrics,
		Logger:           logg,
		PointsExpiryDays: cfg.Loyalty.PointsExpiryDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create loyalty service", err)
		os.Exit(1)
	}
	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		Repo:              inventory.NewRepository(dbClient.DB()),
		DB:                dbClient,
		Outbox:            outboxSvc,
		Metrics:           domainMetrics,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(logg, cfg.Cron, dbClient, outboxRepo, loyaltySvc, inventorySvc)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redis.CronLockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(cfg.Service.Kind),
		"jobs":        len(registry.Jobs()),
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(logg *logger.Logger, cadence config.CronConfig, dbClient *db.Client, outboxRepo *outbox.Repository, loyaltySvc loyalty.Service, inventorySvc inventory.Service) (*cron.Registry, error) {
	pointsJob, err := cron.NewPointsExpiryJob(cron.PointsExpiryJobParams{Logger: logg, Loyalty: loyaltySvc})
	if err != nil {
		return nil, err
	}
	redemptionJob, err := cron.NewRedemptionExpiryJob(cron.RedemptionExpiryJobParams{Logger: logg, Loyalty: loyaltySvc})
	if err != nil {
		return nil, err
	}
	lowStockJob, err := cron.NewLowStockJob(cron.LowStockJobParams{Logger: logg, Inventory: inventorySvc})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		return nil, err
	}
	registry := cron.NewRegistry(redemptionJob, lowStockJob)
	if err := registry.Register(pointsJob, cadence.PointsExpiryEvery); err != nil {
		return nil, err
	}
	if err := registry.Register(retentionJob, cadence.OutboxRetentionEvery); err != nil {
		return nil, err
	}
	return registry, nil
}

