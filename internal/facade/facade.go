package facade

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/internal/leads"
	"github.com/ideasdevops/lead-ia/internal/searches"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/pagination"
)

const (
	// RecentWindow bounds the "recent" dashboard counters.
	RecentWindow = 7 * 24 * time.Hour
	// MonthsOnDashboard is the number of calendar months in searches_by_month.
	MonthsOnDashboard = 6
)

// Params bundles the stores the facade composes.
type Params struct {
	Identity *identity.Service
	Searches *searches.Service
	Leads    *leads.Service
	Now      func() time.Time
}

// Facade is the authorization-enforcing entry point over identity, searches and leads.
type Facade struct {
	identity *identity.Service
	searches *searches.Service
	leads    *leads.Service
	now      func() time.Time
}

func New(params Params) (*Facade, error) {
	if params.Identity == nil {
		return nil, fmt.Errorf("identity service is required")
	}
	if params.Searches == nil {
		return nil, fmt.Errorf("search service is required")
	}
	if params.Leads == nil {
		return nil, fmt.Errorf("lead service is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Facade{
		identity: params.Identity,
		searches: params.Searches,
		leads:    params.Leads,
		now:      now,
	}, nil
}

var errSearchNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "search not found")

func (f *Facade) StartSearch(ctx context.Context, p Principal, in searches.StartInput) (*searches.Search, error) {
	if err := requirePermission(p, enums.PermissionCreateSearch); err != nil {
		return nil, err
	}
	return f.searches.StartSearch(ctx, p.UserID, in)
}

// ExecuteSearch runs the caller's pending search. Holders of manage_users may run anyone's.
func (f *Facade) ExecuteSearch(ctx context.Context, p Principal, searchID uint) (*searches.Search, error) {
	if err := requirePermission(p, enums.PermissionCreateSearch); err != nil {
		return nil, err
	}
	override := p.Can(enums.PermissionManageUsers)
	result, err := f.searches.ExecuteSearch(ctx, searchID, p.UserID, override)
	if pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		return nil, errSearchNotFound
	}
	return result, err
}

func (f *Facade) GetSearch(ctx context.Context, p Principal, searchID uint) (*searches.Search, error) {
	if err := requirePermission(p, enums.PermissionViewLeads); err != nil {
		return nil, err
	}
	return f.visibleSearch(ctx, p, searchID)
}

func (f *Facade) ListSearches(ctx context.Context, p Principal) ([]searches.Search, error) {
	if err := requirePermission(p, enums.PermissionViewLeads); err != nil {
		return nil, err
	}
	scope := searches.ScopeMine
	if p.Superadmin {
		scope = searches.ScopeAll
	}
	return f.searches.ListSearches(ctx, p.UserID, scope)
}

func (f *Facade) ListLeads(ctx context.Context, p Principal, filter leads.Filter) (pagination.Page[models.Lead], error) {
	if err := requirePermission(p, enums.PermissionViewLeads); err != nil {
		return pagination.Page[models.Lead]{}, err
	}
	scoped, err := f.scopeLeadFilter(ctx, p, filter)
	if err != nil {
		return pagination.Page[models.Lead]{}, err
	}
	return f.leads.List(ctx, scoped)
}

func (f *Facade) GetLead(ctx context.Context, p Principal, leadID uint) (*models.Lead, error) {
	if err := requirePermission(p, enums.PermissionViewLeads); err != nil {
		return nil, err
	}
	lead, err := f.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if _, err := f.visibleSearch(ctx, p, lead.SearchQueryID); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, err
	}
	return lead, nil
}

func (f *Facade) ExportLeads(ctx context.Context, p Principal, w io.Writer, filter leads.Filter) error {
	if err := requirePermission(p, enums.PermissionExportLeads); err != nil {
		return err
	}
	scoped, err := f.scopeLeadFilter(ctx, p, filter)
	if err != nil {
		return err
	}
	return f.leads.Export(ctx, w, scoped)
}

// scopeLeadFilter restricts non-superadmins to their own searches.
func (f *Facade) scopeLeadFilter(ctx context.Context, p Principal, filter leads.Filter) (leads.Filter, error) {
	if filter.SearchQueryID != nil {
		if _, err := f.visibleSearch(ctx, p, *filter.SearchQueryID); err != nil {
			return leads.Filter{}, err
		}
	}
	filter.OwnerID = p.ownerScope()
	return filter, nil
}

// visibleSearch hides other users' searches behind NotFound.
func (f *Facade) visibleSearch(ctx context.Context, p Principal, searchID uint) (*searches.Search, error) {
	search, err := f.searches.GetSearch(ctx, searchID)
	if err != nil {
		return nil, err
	}
	if !p.owns(search.UserID) {
		return nil, errSearchNotFound
	}
	return search, nil
}
