package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ideasdevops/lead-ia/api/responses"
	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/logger"
)

const readyTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LeadIA-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "healthy"})
	}
}

// HealthReady pings every named dependency. A nil pinger is reported as disabled.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LeadIA-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed []string
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "disabled"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = append(failed, name)
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "up"
		}
		if len(failed) > 0 {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
