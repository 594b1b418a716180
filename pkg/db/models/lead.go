package models

import "time"

// Lead is a single listing collected by a completed search. Rows are never updated.
type Lead struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement"`
	SearchQueryID uint      `gorm:"column:search_query_id;not null;index"`
	Title         string    `gorm:"column:title"`
	Address       string    `gorm:"column:address"`
	PhoneNumber   string    `gorm:"column:phone_number"`
	WebsiteURL    string    `gorm:"column:website_url"`
	Tags          string    `gorm:"column:tags"`
	SourceURL     string    `gorm:"column:source_url"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
