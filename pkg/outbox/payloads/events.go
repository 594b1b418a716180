package payloads

import (
	"time"

	"github.com/ideasdevops/lead-ia/pkg/enums"
)

// SearchCompletedEvent is emitted once a search has stored its leads.
type SearchCompletedEvent struct {
	SearchQueryID uint               `json:"search_query_id"`
	UserID        uint               `json:"user_id"`
	Source        enums.SearchSource `json:"source"`
	Query         string             `json:"query"`
	Location      string             `json:"location"`
	LeadsCount    int64              `json:"leads_count"`
	CompletedAt   time.Time          `json:"completed_at"`
}

// SearchFailedEvent carries the provider error that ended a search.
type SearchFailedEvent struct {
	SearchQueryID uint               `json:"search_query_id"`
	UserID        uint               `json:"user_id"`
	Source        enums.SearchSource `json:"source"`
	Error         string             `json:"error"`
	FailedAt      time.Time          `json:"failed_at"`
}
