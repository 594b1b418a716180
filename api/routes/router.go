package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ideasdevops/lead-ia/api/controllers"
	"github.com/ideasdevops/lead-ia/api/middleware"
	"github.com/ideasdevops/lead-ia/internal/auth"
	"github.com/ideasdevops/lead-ia/internal/facade"
	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db"
	"github.com/ideasdevops/lead-ia/pkg/logger"
)

// RateLimiter counts auth attempts. Redis implements it.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AccessResolver loads the caller's current grants for every authenticated request.
type AccessResolver interface {
	Resolve(ctx context.Context, userID uint) (*identity.Access, error)
}

// Params bundles everything the HTTP surface needs. RateLimiter, Redis and
// Metrics may be nil.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       db.Pinger
	RateLimiter RateLimiter
	Metrics     prometheus.Gatherer
	Auth        auth.Service
	Register    auth.RegisterService
	Resolver    AccessResolver
	Facade      *facade.Facade
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	if p.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/health", func(r chi.Router) {
		r.Get("/", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})

	authenticate := middleware.Auth(cfg.JWT, p.Resolver, logg)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.RateLimiter, logg)).Post("/register", controllers.AuthRegister(p.Register, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.With(authenticate).Get("/me", controllers.AuthMe(p.Auth, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/list", controllers.ListUsers(p.Facade, logg))
			r.Get("/pending", controllers.ListPendingUsers(p.Facade, logg))
			r.Get("/{userId}", controllers.GetUser(p.Facade, logg))
			r.Put("/{userId}", controllers.UpdateUser(p.Facade, logg))
			r.Delete("/{userId}", controllers.DeleteUser(p.Facade, logg))
			r.Post("/{userId}/approve", controllers.ApproveUser(p.Facade, logg))
		})

		r.Route("/api/roles", func(r chi.Router) {
			r.Get("/list", controllers.ListRoles(p.Facade, logg))
			r.Get("/permissions", controllers.ListPermissions(p.Facade, logg))
			r.Post("/create", controllers.CreateRole(p.Facade, logg))
			r.Get("/{roleId}", controllers.GetRole(p.Facade, logg))
			r.Put("/{roleId}", controllers.UpdateRole(p.Facade, logg))
			r.Delete("/{roleId}", controllers.DeleteRole(p.Facade, logg))
		})

		r.Route("/api/search", func(r chi.Router) {
			r.Post("/start", controllers.StartSearch(p.Facade, logg))
			r.Post("/execute/{searchId}", controllers.ExecuteSearch(p.Facade, logg))
			r.Get("/list", controllers.ListSearches(p.Facade, logg))
			r.Get("/{searchId}", controllers.GetSearch(p.Facade, logg))
		})

		r.Route("/api/leads", func(r chi.Router) {
			r.Get("/list", controllers.ListLeads(p.Facade, logg))
			r.Get("/export", controllers.ExportLeads(p.Facade, logg))
			r.Get("/{leadId}", controllers.GetLead(p.Facade, logg))
		})

		r.Get("/api/dashboard/stats", controllers.DashboardStats(p.Facade, logg))
	})

	return r
}
