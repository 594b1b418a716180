package models

import (
	"time"

	"github.com/ideasdevops/lead-ia/pkg/enums"
)

// SearchQuery is one provider query and its execution state.
// UserID is kept after the owner is deleted.
type SearchQuery struct {
	ID          uint               `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      uint               `gorm:"column:user_id;not null;index"`
	Query       string             `gorm:"column:query;not null"`
	Location    string             `gorm:"column:location;not null"`
	Source      enums.SearchSource `gorm:"column:source;not null;index"`
	Zoom        *float64           `gorm:"column:zoom"`
	Status      enums.SearchStatus `gorm:"column:status;not null;index"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	StartedAt   *time.Time         `gorm:"column:started_at"`
	CompletedAt *time.Time         `gorm:"column:completed_at"`
}
