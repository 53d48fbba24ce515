package models

import "time"

// Entry types shared by categories and records.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// ValidEntryType reports whether t is one of the supported entry types.
func ValidEntryType(t string) bool {
	return t == TypeIncome || t == TypeExpense
}

// Record is a single income or expense entry belonging to exactly one user.
type Record struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Type        string    `gorm:"size:16;not null;index" json:"type"`
	Description string    `gorm:"size:512" json:"description"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	CategoryID  uint      `gorm:"index;not null" json:"category_id"`
}
