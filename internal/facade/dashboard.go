package facade

import (
	"context"

	"github.com/ideasdevops/lead-ia/internal/searches"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
)

// DashboardStats is computed live on every call.
type DashboardStats struct {
	TotalSearches    int64                        `json:"total_searches"`
	TotalLeads       int64                        `json:"total_leads"`
	TotalUsers       int64                        `json:"total_users"`
	SearchesByStatus map[enums.SearchStatus]int64 `json:"searches_by_status"`
	LeadsBySource    map[enums.SearchSource]int64 `json:"leads_by_source"`
	RecentSearches   int64                        `json:"recent_searches"`
	RecentLeads      int64                        `json:"recent_leads"`
	SearchesByMonth  []searches.MonthCount        `json:"searches_by_month"`
}

// GetDashboardStats counts the caller's data, or everything for a superadmin.
func (f *Facade) GetDashboardStats(ctx context.Context, p Principal) (*DashboardStats, error) {
	if err := requirePermission(p, enums.PermissionViewDashboard); err != nil {
		return nil, err
	}
	owner := p.ownerScope()
	since := f.now().UTC().Add(-RecentWindow)

	searchStats, err := f.searches.Stats(ctx, owner, since, MonthsOnDashboard)
	if err != nil {
		return nil, err
	}
	totalLeads, err := f.leads.Count(ctx, owner)
	if err != nil {
		return nil, err
	}
	recentLeads, err := f.leads.CountSince(ctx, owner, since)
	if err != nil {
		return nil, err
	}
	bySource, err := f.leads.CountBySource(ctx, owner)
	if err != nil {
		return nil, err
	}
	leadsBySource := make(map[enums.SearchSource]int64, len(enums.SearchSources()))
	for _, source := range enums.SearchSources() {
		leadsBySource[source] = bySource[source]
	}

	totalUsers := int64(1)
	if p.Superadmin {
		totalUsers, err = f.identity.Repository().CountUsers(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
		}
	}

	return &DashboardStats{
		TotalSearches:    searchStats.Total,
		TotalLeads:       totalLeads,
		TotalUsers:       totalUsers,
		SearchesByStatus: searchStats.ByStatus,
		LeadsBySource:    leadsBySource,
		RecentSearches:   searchStats.Recent,
		RecentLeads:      recentLeads,
		SearchesByMonth:  searchStats.ByMonth,
	}, nil
}
