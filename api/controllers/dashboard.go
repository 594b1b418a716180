package controllers

import (
	"net/http"

	"github.com/ideasdevops/lead-ia/api/middleware"
	"github.com/ideasdevops/lead-ia/api/responses"
	"github.com/ideasdevops/lead-ia/internal/facade"
	"github.com/ideasdevops/lead-ia/pkg/logger"
)

func DashboardStats(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := f.GetDashboardStats(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
