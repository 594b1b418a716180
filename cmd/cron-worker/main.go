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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ideasdevops/lead-ia/internal/cron"
	"github.com/ideasdevops/lead-ia/internal/searches"
	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db"
	"github.com/ideasdevops/lead-ia/pkg/instance"
	"github.com/ideasdevops/lead-ia/pkg/logger"
	"github.com/ideasdevops/lead-ia/pkg/metrics"
	"github.com/ideasdevops/lead-ia/pkg/migrate"
	"github.com/ideasdevops/lead-ia/pkg/outbox"
	"github.com/ideasdevops/lead-ia/pkg/providers"
	"github.com/ideasdevops/lead-ia/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
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

	var lock cron.Lock = cron.NewLocalLock()
	if cfg.Redis.Enabled() {
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
		lock, err = cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+cfg.App.Env), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "redis disabled: cron lock is process-local, run a single worker")
	}

	registry := prometheus.NewRegistry()
	outboxRepo := outbox.NewRepository(dbClient.DB())

	// The worker only reads searches, so no provider is registered.
	searchSvc, err := searches.NewService(searches.ServiceParams{
		DB:        dbClient,
		Providers: providers.NewRegistry(),
		Outbox:    outbox.NewService(outboxRepo, logg),
		Metrics:   metrics.NewSearchMetrics(registry),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	staleJob, err := cron.NewStaleSearchJob(cron.StaleSearchJobParams{
		Logger:     logg,
		Searches:   searchSvc,
		Outbox:     outboxRepo,
		StaleAfter: cfg.Search.StaleAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale search job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	jobs, err := cron.NewRegistry(staleJob, retentionJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(registry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.ID(),
		"interval": cfg.Cron.Interval.String(),
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
