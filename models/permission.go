package models

import "time"

// Permission is an entry of the seeded permission catalog.
type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Category    string    `gorm:"size:64;not null;index" json:"category"`
}
