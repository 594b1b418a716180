package searches

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/internal/repo"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
)

const leadInsertBatchSize = 200

// Repository persists search queries and the leads they produce.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to db, which may be a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, search *models.SearchQuery) error {
	return r.DB(ctx).Create(search).Error
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.SearchQuery, error) {
	var search models.SearchQuery
	if err := r.DB(ctx).First(&search, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &search, nil
}

// Claim moves a pending search to running. It reports false when another caller got there first
// or the search is no longer pending.
func (r *Repository) Claim(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.move(ctx, id, enums.SearchStatusPending, enums.SearchStatusRunning, "started_at", at)
}

// Finish moves a running search to a terminal status and stamps completed_at.
func (r *Repository) Finish(ctx context.Context, id uint, status enums.SearchStatus, at time.Time) (bool, error) {
	return r.move(ctx, id, enums.SearchStatusRunning, status, "completed_at", at)
}

// move is a compare-and-set on status. Only edges of the state machine are accepted.
func (r *Repository) move(ctx context.Context, id uint, from, to enums.SearchStatus, stampColumn string, at time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("search transition %s -> %s not allowed", from, to)
	}
	res := r.DB(ctx).Model(&models.SearchQuery{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":    to,
			stampColumn: at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// InsertLeads stores leads in slice order so ids follow provider order.
func (r *Repository) InsertLeads(ctx context.Context, leads []models.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return r.DB(ctx).CreateInBatches(leads, leadInsertBatchSize).Error
}

func (r *Repository) CountLeads(ctx context.Context, searchID uint) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Lead{}).Where("search_query_id = ?", searchID).Count(&n).Error
	return n, err
}

type leadCountRow struct {
	SearchQueryID uint
	Total         int64
}

// CountLeadsFor returns lead counts keyed by search id. Searches without leads are absent.
func (r *Repository) CountLeadsFor(ctx context.Context, ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []leadCountRow
	err := r.DB(ctx).Model(&models.Lead{}).
		Select("search_query_id, COUNT(*) AS total").
		Where("search_query_id IN ?", ids).
		Group("search_query_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.SearchQueryID] = row.Total
	}
	return counts, nil
}

// List returns searches newest first. A nil owner lists every user's searches.
func (r *Repository) List(ctx context.Context, ownerID *uint) ([]models.SearchQuery, error) {
	q := r.DB(ctx).Model(&models.SearchQuery{})
	if ownerID != nil {
		q = q.Where("user_id = ?", *ownerID)
	}
	var out []models.SearchQuery
	err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error
	return out, err
}

// ListRunningStartedBefore returns running searches claimed before cutoff, oldest first.
func (r *Repository) ListRunningStartedBefore(ctx context.Context, cutoff time.Time) ([]models.SearchQuery, error) {
	var out []models.SearchQuery
	err := r.DB(ctx).
		Where("status = ? AND started_at < ?", enums.SearchStatusRunning, cutoff).
		Order("started_at ASC").Order("id ASC").
		Find(&out).Error
	return out, err
}
