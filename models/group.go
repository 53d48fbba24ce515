package models

import "time"

// Names of the seeded, protected groups.
const (
	GroupOwner = "owner"
	GroupAdmin = "admin"
	GroupUser  = "user"
)

// DefaultGroupLevel is used when a new group is created without an explicit level.
const DefaultGroupLevel = 5

// Group carries a privilege level (lower is more privileged), an admin flag and
// a set of named permissions.
type Group struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Name        string       `gorm:"size:64;uniqueIndex;not null" json:"name"`
	IsAdmin     bool         `gorm:"not null" json:"is_admin"`
	IsSystem    bool         `gorm:"not null" json:"is_system"`
	Level       int          `gorm:"not null" json:"level"`
	Description string       `gorm:"size:255" json:"description"`
	Permissions []Permission `gorm:"many2many:group_permissions;" json:"permissions"`
}

// GroupPermission links a group to a permission of the catalog.
type GroupPermission struct {
	GroupID      uint `gorm:"primaryKey;autoIncrement:false"`
	PermissionID uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt    time.Time
}
