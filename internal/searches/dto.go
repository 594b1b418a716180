package searches

import (
	"time"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
)

// Scope selects whose searches ListSearches returns.
type Scope int

const (
	ScopeMine Scope = iota
	ScopeAll
)

// StartInput describes a new search. Zoom only applies to google_maps.
type StartInput struct {
	Query    string
	Location string
	Source   string
	Zoom     *float64
}

// Search is a stored search plus its derived lead count.
type Search struct {
	models.SearchQuery
	LeadsCount int64
}

// SearchDTO is the transport shape of a search.
type SearchDTO struct {
	ID          uint               `json:"id"`
	UserID      uint               `json:"user_id"`
	Query       string             `json:"query"`
	Location    string             `json:"location"`
	Source      enums.SearchSource `json:"source"`
	Zoom        *float64           `json:"zoom,omitempty"`
	Status      enums.SearchStatus `json:"status"`
	LeadsCount  int64              `json:"leads_count"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

func FromSearch(s Search) SearchDTO {
	return SearchDTO{
		ID:          s.ID,
		UserID:      s.UserID,
		Query:       s.Query,
		Location:    s.Location,
		Source:      s.Source,
		Zoom:        s.Zoom,
		Status:      s.Status,
		LeadsCount:  s.LeadsCount,
		CreatedAt:   s.CreatedAt,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}

// FromSearches maps a list for JSON responses.
func FromSearches(list []Search) []SearchDTO {
	out := make([]SearchDTO, 0, len(list))
	for _, s := range list {
		out = append(out, FromSearch(s))
	}
	return out
}
