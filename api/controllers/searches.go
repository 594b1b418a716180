package controllers

import (
	"net/http"

	"github.com/ideasdevops/lead-ia/api/middleware"
	"github.com/ideasdevops/lead-ia/api/responses"
	"github.com/ideasdevops/lead-ia/api/validators"
	"github.com/ideasdevops/lead-ia/internal/facade"
	"github.com/ideasdevops/lead-ia/internal/searches"
	"github.com/ideasdevops/lead-ia/pkg/logger"
)

type startSearchRequest struct {
	Query    string   `json:"query" validate:"required,max=255"`
	Location string   `json:"location" validate:"required,max=255"`
	Source   string   `json:"source" validate:"required"`
	Zoom     *float64 `json:"zoom" validate:"omitempty,gt=0"`
}

// StartSearch records a pending search. Execution is a separate call.
func StartSearch(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body startSearchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		search, err := f.StartSearch(r.Context(), middleware.PrincipalFromContext(r.Context()), searches.StartInput{
			Query:    body.Query,
			Location: body.Location,
			Source:   body.Source,
			Zoom:     body.Zoom,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"search_query": searches.FromSearch(*search)})
	}
}

// ExecuteSearch answers 202 when the run continues in the background.
func ExecuteSearch(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "searchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		search, err := f.ExecuteSearch(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if !search.Status.IsTerminal() {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, map[string]any{"search_query": searches.FromSearch(*search)})
	}
}

func ListSearches(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := f.ListSearches(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"searches": searches.FromSearches(list)})
	}
}

func GetSearch(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "searchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		search, err := f.GetSearch(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"search_query": searches.FromSearch(*search)})
	}
}
