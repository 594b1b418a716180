package leads

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/internal/repo"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	"github.com/ideasdevops/lead-ia/pkg/pagination"
)

const exportBatchSize = 500

// Repository reads leads. Leads are written by the search registry only.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// criteria is a validated Filter.
type criteria struct {
	searchID *uint
	source   enums.SearchSource
	ownerID  *uint
}

func (r *Repository) scoped(ctx context.Context, c criteria) *gorm.DB {
	q := r.DB(ctx).Model(&models.Lead{})
	if c.searchID != nil {
		q = q.Where("search_query_id = ?", *c.searchID)
	}
	if c.source != "" || c.ownerID != nil {
		sub := r.DB(ctx).Model(&models.SearchQuery{}).Select("id")
		if c.source != "" {
			sub = sub.Where("source = ?", c.source)
		}
		if c.ownerID != nil {
			sub = sub.Where("user_id = ?", *c.ownerID)
		}
		q = q.Where("search_query_id IN (?)", sub)
	}
	return q
}

// List returns one page ordered by id.
func (r *Repository) List(ctx context.Context, c criteria, params pagination.Params) ([]models.Lead, int64, error) {
	var out []models.Lead
	total, err := repo.Paginate(r.scoped(ctx, c).Order("id ASC"), params, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Each walks every matching lead in id order, one batch at a time.
func (r *Repository) Each(ctx context.Context, c criteria, fn func(batch []models.Lead) error) error {
	var batch []models.Lead
	return r.scoped(ctx, c).FindInBatches(&batch, exportBatchSize, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := r.DB(ctx).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *Repository) Count(ctx context.Context, ownerID *uint) (int64, error) {
	var n int64
	err := r.scoped(ctx, criteria{ownerID: ownerID}).Count(&n).Error
	return n, err
}

func (r *Repository) CountBySearch(ctx context.Context, searchID uint) (int64, error) {
	var n int64
	err := r.scoped(ctx, criteria{searchID: &searchID}).Count(&n).Error
	return n, err
}

func (r *Repository) CountSince(ctx context.Context, ownerID *uint, since time.Time) (int64, error) {
	var n int64
	err := r.scoped(ctx, criteria{ownerID: ownerID}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

type sourceCountRow struct {
	Source enums.SearchSource
	Total  int64
}

// CountBySource groups leads by the source of their search.
func (r *Repository) CountBySource(ctx context.Context, ownerID *uint) (map[enums.SearchSource]int64, error) {
	q := r.DB(ctx).Table("leads").
		Select("search_queries.source AS source, COUNT(leads.id) AS total").
		Joins("JOIN search_queries ON search_queries.id = leads.search_query_id")
	if ownerID != nil {
		q = q.Where("search_queries.user_id = ?", *ownerID)
	}
	var rows []sourceCountRow
	if err := q.Group("search_queries.source").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.SearchSource]int64, len(rows))
	for _, row := range rows {
		out[row.Source] = row.Total
	}
	return out, nil
}
