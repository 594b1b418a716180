package leads

import (
	"time"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
)

// Filter narrows List and Export. OwnerID restricts results to one user's searches.
type Filter struct {
	SearchQueryID *uint
	Source        string
	OwnerID       *uint
	Page          int
	PerPage       int
}

// LeadDTO is the transport shape of a lead.
type LeadDTO struct {
	ID            uint      `json:"id"`
	SearchQueryID uint      `json:"search_query_id"`
	Title         string    `json:"title"`
	Address       string    `json:"address"`
	PhoneNumber   string    `json:"phone_number"`
	WebsiteURL    string    `json:"website_url"`
	Tags          string    `json:"tags"`
	SourceURL     string    `json:"source_url"`
	CreatedAt     time.Time `json:"created_at"`
}

func FromModel(l models.Lead) LeadDTO {
	return LeadDTO{
		ID:            l.ID,
		SearchQueryID: l.SearchQueryID,
		Title:         l.Title,
		Address:       l.Address,
		PhoneNumber:   l.PhoneNumber,
		WebsiteURL:    l.WebsiteURL,
		Tags:          l.Tags,
		SourceURL:     l.SourceURL,
		CreatedAt:     l.CreatedAt,
	}
}
