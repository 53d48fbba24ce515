package models

import (
	"time"
)

// User is an account. Groups are loaded eagerly whenever a user is resolved for
// an authorization decision.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Username       string    `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Email          string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Nickname       string    `gorm:"size:255" json:"nickname"`
	HashedPassword []byte    `gorm:"not null" json:"-"`
	Groups         []Group   `gorm:"many2many:user_groups;" json:"groups"`
}

// GroupNames returns the names of the user's groups in load order.
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	return names
}

// UserGroup is the membership link between a user and a group.
type UserGroup struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	GroupID   uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}
