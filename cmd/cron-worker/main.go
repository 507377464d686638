package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/groupcart-backend/internal/cart"
	"github.com/angelmondragon/groupcart-backend/internal/cron"
	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/db"
	"github.com/angelmondragon/groupcart-backend/pkg/instance"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
	"github.com/angelmondragon/groupcart-backend/pkg/migrate"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox"
	"github.com/angelmondragon/groupcart-backend/pkg/redis"
)

func main() {
	runJob := flag.String("run", "", "run one job (cart-expiry, outbox-retention) once and exit")
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error releasing cron worker resources", err)
		}
	}()

	registerer := prometheus.DefaultRegisterer
	outboxRepo := outbox.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cart.ServiceParams{
		Repository: cart.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Events:     outbox.NewService(outboxRepo, logg),
		Metrics:    metrics.NewCartMetrics(registerer),
		Logger:     logg,
		TTL:        cfg.Carts.TTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewCartExpiryJob(cron.CartExpiryJobParams{
		Logger:    logg,
		Carts:     cartService,
		BatchSize: cfg.Carts.ExpiryBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart expiry job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Retention:   cfg.Outbox.RetentionDays,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cfg.Service.Kind), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(expiryJob, retentionJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(registerer),
		Interval: cfg.Cron.Interval,
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
		"instance":    instance.GetID(),
		"interval":    cfg.Cron.Interval.String(),
	})

	if *runJob != "" {
		if err := service.RunJob(ctx, *runJob); err != nil {
			logg.Error(ctx, "cron job failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return metrics.Serve(groupCtx, ":"+cfg.App.Port, prometheus.DefaultGatherer)
	})
	group.Go(func() error {
		return service.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
