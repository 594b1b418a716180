package searches

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
)

type statusCountRow struct {
	Status enums.SearchStatus
	Total  int64
}

func (r *Repository) owned(ctx context.Context, ownerID *uint) *gorm.DB {
	q := r.DB(ctx).Model(&models.SearchQuery{})
	if ownerID != nil {
		q = q.Where("user_id = ?", *ownerID)
	}
	return q
}

// CountByStatus groups searches by status, optionally for one owner.
func (r *Repository) CountByStatus(ctx context.Context, ownerID *uint) (map[enums.SearchStatus]int64, error) {
	var rows []statusCountRow
	err := r.owned(ctx, ownerID).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.SearchStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *Repository) CountSince(ctx context.Context, ownerID *uint, since time.Time) (int64, error) {
	var n int64
	err := r.owned(ctx, ownerID).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

// CreatedSince returns creation times so callers can bucket them without dialect-specific date SQL.
func (r *Repository) CreatedSince(ctx context.Context, ownerID *uint, since time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.owned(ctx, ownerID).Where("created_at >= ?", since).Pluck("created_at", &out).Error
	return out, err
}

// MonthCount is the number of searches created in one calendar month.
type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// Stats summarizes searches for the dashboard.
type Stats struct {
	Total    int64
	ByStatus map[enums.SearchStatus]int64
	Recent   int64
	ByMonth  []MonthCount
}

// Stats counts searches, optionally for one owner. Every status and each of the last
// months (current one included) appear, zero-filled.
func (s *Service) Stats(ctx context.Context, ownerID *uint, recentSince time.Time, months int) (*Stats, error) {
	byStatus, err := s.repo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count searches by status")
	}
	stats := &Stats{ByStatus: make(map[enums.SearchStatus]int64, len(enums.SearchStatuses()))}
	for _, status := range enums.SearchStatuses() {
		stats.ByStatus[status] = byStatus[status]
		stats.Total += byStatus[status]
	}

	stats.Recent, err = s.repo.CountSince(ctx, ownerID, recentSince.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count recent searches")
	}

	stats.ByMonth, err = s.countByMonth(ctx, ownerID, months)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) countByMonth(ctx context.Context, ownerID *uint, months int) ([]MonthCount, error) {
	if months <= 0 {
		return []MonthCount{}, nil
	}
	now := s.now().UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := current.AddDate(0, -(months - 1), 0)

	created, err := s.repo.CreatedSince(ctx, ownerID, first)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load search creation times")
	}
	buckets := make(map[string]int64, months)
	for _, at := range created {
		buckets[at.UTC().Format("2006-01")]++
	}

	out := make([]MonthCount, 0, months)
	for i := 0; i < months; i++ {
		key := first.AddDate(0, i, 0).Format("2006-01")
		out = append(out, MonthCount{Month: key, Count: buckets[key]})
	}
	return out, nil
}
