package models

// DefaultCategoryColor is applied when a category is created without a color.
const DefaultCategoryColor = "#000000"

// Category groups records. Categories with IsDefault set have no owner and are
// visible to every user.
type Category struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:128;not null" json:"name"`
	Type      string `gorm:"size:16;not null;index" json:"type"`
	Icon      string `gorm:"size:64" json:"icon"`
	Color     string `gorm:"size:16" json:"color"`
	IsDefault bool   `gorm:"not null;index" json:"is_default"`
	UserID    *uint  `gorm:"index" json:"user_id"`
}
