package models

import "time"

// Permission is an entry of the fixed permission catalog.
type Permission struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
