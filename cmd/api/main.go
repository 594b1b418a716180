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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/ideasdevops/lead-ia/api/routes"
	"github.com/ideasdevops/lead-ia/internal/auth"
	"github.com/ideasdevops/lead-ia/internal/facade"
	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/internal/leads"
	"github.com/ideasdevops/lead-ia/internal/searches"
	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	"github.com/ideasdevops/lead-ia/pkg/instance"
	"github.com/ideasdevops/lead-ia/pkg/logger"
	"github.com/ideasdevops/lead-ia/pkg/metrics"
	"github.com/ideasdevops/lead-ia/pkg/migrate"
	"github.com/ideasdevops/lead-ia/pkg/outbox"
	"github.com/ideasdevops/lead-ia/pkg/providers"
	"github.com/ideasdevops/lead-ia/pkg/providers/googlemaps"
	"github.com/ideasdevops/lead-ia/pkg/providers/yelp"
	"github.com/ideasdevops/lead-ia/pkg/redis"
	"github.com/ideasdevops/lead-ia/pkg/security"
)

const shutdownTimeout = 30 * time.Second

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var (
		redisClient *redis.Client
		rateLimiter routes.RateLimiter
		redisPinger db.Pinger
		cache       identity.Cache
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		rateLimiter, redisPinger, cache = redisClient, redisClient, redisClient
	} else {
		logg.Warn(ctx, "redis disabled: auth rate limits and permission caching are off")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hasher := security.NewHasher(cfg.Password)
	identitySvc, err := identity.NewService(identity.ServiceParams{
		DB:         dbClient,
		Hasher:     hasher,
		Resolver:   identity.NewPermissionResolver(identity.NewRepository(dbClient.DB()), cache, cfg.Search.PermissionCacheTTL, logg),
		MaxPerPage: cfg.Search.MaxPerPage,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	if cfg.FeatureFlags.AutoBootstrap {
		in := identity.BootstrapInput{Email: cfg.Bootstrap.SuperadminEmail, Password: cfg.Bootstrap.SuperadminPassword}
		if in.Password == "" {
			logg.Warn(ctx, "superadmin password not set: seeding roles and permissions only")
			in.Email = ""
		}
		if err := identitySvc.Bootstrap(ctx, in); err != nil {
			return err
		}
	}

	authSvc, err := auth.NewService(auth.ServiceParams{UserRepo: identitySvc.Repository(), JWTConfig: cfg.JWT})
	if err != nil {
		return err
	}
	registerSvc, err := auth.NewRegisterService(auth.RegisterServiceParams{Users: identitySvc, Hasher: hasher})
	if err != nil {
		return err
	}

	searchSvc, err := searches.NewService(searches.ServiceParams{
		DB:              dbClient,
		Providers:       buildProviders(ctx, cfg.Providers, logg),
		Outbox:          outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:         metrics.NewSearchMetrics(registry),
		ProviderTimeout: cfg.Search.ProviderTimeout,
		Async:           cfg.Search.Async,
		Logger:          logg,
	})
	if err != nil {
		return err
	}
	defer searchSvc.Wait()

	leadSvc, err := leads.NewService(dbClient.DB(), cfg.Search.MaxPerPage)
	if err != nil {
		return err
	}
	f, err := facade.New(facade.Params{Identity: identitySvc, Searches: searchSvc, Leads: leadSvc})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisPinger,
			RateLimiter: rateLimiter,
			Metrics:     registry,
			Auth:        authSvc,
			Register:    registerSvc,
			Resolver:    identitySvc.Resolver(),
			Facade:      f,
		}),
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"async":    cfg.Search.Async,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildProviders registers a fetcher for every source with credentials configured.
// Executing a search for an unconfigured source fails with a provider error.
func buildProviders(ctx context.Context, cfg config.ProvidersConfig, logg *logger.Logger) *providers.Registry {
	reg := providers.NewRegistry()

	if cfg.GoogleMapsAPIKey != "" {
		client, err := googlemaps.NewClient(cfg.GoogleMapsAPIKey, googlemaps.WithBaseURL(cfg.GoogleMapsBaseURL))
		if err != nil {
			logg.Error(ctx, "google maps provider disabled", err)
		} else {
			reg.Register(enums.SearchSourceGoogleMaps, client)
		}
	}
	if cfg.YelpAPIKey != "" {
		client, err := yelp.NewClient(cfg.YelpAPIKey, yelp.WithBaseURL(cfg.YelpBaseURL), yelp.WithRateLimit(cfg.YelpRatePerSecond))
		if err != nil {
			logg.Error(ctx, "yelp provider disabled", err)
		} else {
			reg.Register(enums.SearchSourceYelp, client)
		}
	}

	sources := reg.Sources()
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, string(s))
	}
	logg.Info(logg.WithField(ctx, "sources", names), "lead providers configured")
	return reg
}
