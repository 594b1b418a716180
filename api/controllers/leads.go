package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ideasdevops/lead-ia/api/middleware"
	"github.com/ideasdevops/lead-ia/api/responses"
	"github.com/ideasdevops/lead-ia/api/validators"
	"github.com/ideasdevops/lead-ia/internal/facade"
	"github.com/ideasdevops/lead-ia/internal/leads"
	"github.com/ideasdevops/lead-ia/pkg/logger"
	"github.com/ideasdevops/lead-ia/pkg/pagination"
)

// leadFilter reads ?search_query_id=&source=&page=&per_page=.
func leadFilter(r *http.Request) (leads.Filter, error) {
	searchID, err := validators.ParseQueryID(r, "search_query_id")
	if err != nil {
		return leads.Filter{}, err
	}
	page, err := validators.ParseQueryInt(r, "page", 1)
	if err != nil {
		return leads.Filter{}, err
	}
	perPage, err := validators.ParseQueryInt(r, "per_page", pagination.DefaultPerPage)
	if err != nil {
		return leads.Filter{}, err
	}
	return leads.Filter{
		SearchQueryID: searchID,
		Source:        strings.TrimSpace(r.URL.Query().Get("source")),
		Page:          page,
		PerPage:       perPage,
	}, nil
}

func ListLeads(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := leadFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := f.ListLeads(r.Context(), middleware.PrincipalFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.Map(page, leads.FromModel))
	}
}

func GetLead(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lead, err := f.GetLead(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"lead": leads.FromModel(*lead)})
	}
}

// ExportLeads streams CSV. Paging parameters are ignored.
func ExportLeads(f *facade.Facade, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := leadFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := &csvResponse{
			ResponseWriter: w,
			filename:       fmt.Sprintf("leads_%s.csv", time.Now().UTC().Format("20060102_150405")),
		}
		err = f.ExportLeads(r.Context(), middleware.PrincipalFromContext(r.Context()), out, filter)
		if err == nil {
			if !out.started {
				out.start()
			}
			return
		}
		if !out.started {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Error(r.Context(), "lead export aborted mid-stream", err)
		}
	}
}

// csvResponse defers the CSV headers until the first byte so that errors raised
// before any row is written still produce a JSON error response.
type csvResponse struct {
	http.ResponseWriter
	filename string
	started  bool
}

func (c *csvResponse) start() {
	c.started = true
	h := c.Header()
	h.Set("Content-Type", "text/csv; charset=utf-8")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.filename))
	c.ResponseWriter.WriteHeader(http.StatusOK)
}

func (c *csvResponse) Write(p []byte) (int, error) {
	if !c.started {
		c.start()
	}
	return c.ResponseWriter.Write(p)
}
