package leads

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/pagination"
)

// ExportHeader is the fixed CSV column order.
var ExportHeader = []string{"title", "address", "phone_number", "website_url", "tags", "source_url"}

// Service exposes filtered lead reads and CSV export.
type Service struct {
	repo       *Repository
	maxPerPage int
}

func NewService(db *gorm.DB, maxPerPage int) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if maxPerPage <= 0 {
		maxPerPage = pagination.DefaultMaxPerPage
	}
	return &Service{repo: NewRepository(db), maxPerPage: maxPerPage}, nil
}

// List validates paging before touching storage.
func (s *Service) List(ctx context.Context, f Filter) (pagination.Page[models.Lead], error) {
	params := pagination.Params{Page: f.Page, PerPage: f.PerPage}
	if params.Page == 0 {
		params.Page = 1
	}
	if params.PerPage == 0 {
		params.PerPage = pagination.DefaultPerPage
	}
	if err := params.Validate(s.maxPerPage); err != nil {
		return pagination.Page[models.Lead]{}, err
	}
	c, err := toCriteria(f)
	if err != nil {
		return pagination.Page[models.Lead]{}, err
	}
	rows, total, err := s.repo.List(ctx, c, params)
	if err != nil {
		return pagination.Page[models.Lead]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list leads")
	}
	return pagination.NewPage(rows, total, params), nil
}

// Export writes every matching lead as CSV. The header is written even when nothing matches.
// Paging fields of f are ignored.
func (s *Service) Export(ctx context.Context, w io.Writer, f Filter) error {
	c, err := toCriteria(f)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv header")
	}
	err = s.repo.Each(ctx, c, func(batch []models.Lead) error {
		for _, l := range batch {
			if err := cw.Write([]string{l.Title, l.Address, l.PhoneNumber, l.WebsiteURL, l.Tags, l.SourceURL}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "export leads")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush csv")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Lead, error) {
	lead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load lead")
	}
	return lead, nil
}

func (s *Service) CountBySearch(ctx context.Context, searchID uint) (int64, error) {
	n, err := s.repo.CountBySearch(ctx, searchID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count leads")
	}
	return n, nil
}

// Count totals leads, optionally for one owner.
func (s *Service) Count(ctx context.Context, ownerID *uint) (int64, error) {
	n, err := s.repo.Count(ctx, ownerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count leads")
	}
	return n, nil
}

func (s *Service) CountBySource(ctx context.Context, ownerID *uint) (map[enums.SearchSource]int64, error) {
	out, err := s.repo.CountBySource(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count leads by source")
	}
	return out, nil
}

func (s *Service) CountSince(ctx context.Context, ownerID *uint, since time.Time) (int64, error) {
	n, err := s.repo.CountSince(ctx, ownerID, since.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count recent leads")
	}
	return n, nil
}

func toCriteria(f Filter) (criteria, error) {
	c := criteria{searchID: f.SearchQueryID, ownerID: f.OwnerID}
	if f.Source != "" {
		source, err := enums.ParseSearchSource(f.Source)
		if err != nil {
			return criteria{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown source").
				WithDetails(map[string]any{"source": f.Source})
		}
		c.source = source
	}
	return c, nil
}
