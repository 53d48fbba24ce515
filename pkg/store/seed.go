package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"duckpay/models"
)

// SystemGroups are the protected groups that always exist.
var SystemGroups = []models.Group{
	{Name: models.GroupOwner, IsAdmin: true, IsSystem: true, Level: 0, Description: "System owner with all permissions"},
	{Name: models.GroupAdmin, IsAdmin: true, IsSystem: true, Level: 1, Description: "System administrator with limited permissions"},
	{Name: models.GroupUser, IsAdmin: false, IsSystem: true, Level: 3, Description: "Regular user with basic permissions"},
}

// Permission categories of the seeded catalog.
const (
	CategoryUserManagement  = "user_management"
	CategoryGroupManagement = "group_management"
)

// Names of the seeded permissions.
const (
	PermCreateUser         = "create_user"
	PermDeleteUser         = "delete_user"
	PermEditUser           = "edit_user"
	PermChangeUserPassword = "change_user_password"
	PermChangeUserInfo     = "change_user_info"
	PermChangeUsername     = "change_username"
	PermManageGroups       = "manage_groups"
)

// SeedPermissions is the permission catalog created at startup.
var SeedPermissions = []models.Permission{
	{Name: PermCreateUser, Description: "Create new users", Category: CategoryUserManagement},
	{Name: PermDeleteUser, Description: "Delete users", Category: CategoryUserManagement},
	{Name: PermEditUser, Description: "Edit user information", Category: CategoryUserManagement},
	{Name: PermChangeUserPassword, Description: "Change user passwords", Category: CategoryUserManagement},
	{Name: PermChangeUserInfo, Description: "Change user info (nickname, email, groups)", Category: CategoryUserManagement},
	{Name: PermChangeUsername, Description: "Change username", Category: CategoryUserManagement},
	{Name: PermManageGroups, Description: "Manage groups (edit name, delete, change permissions)", Category: CategoryGroupManagement},
}

// Seed makes sure the system groups and the permission catalog exist. Existing
// system groups get their canonical level back; owner and admin receive the
// full catalog only while their grid is still empty. Seed is idempotent and
// runs in one transaction.
func (s *Store) Seed(ctx context.Context) error {
	err := s.Transaction(ctx, func(tx *Store) error {
		groups := make(map[string]*models.Group, len(SystemGroups))
		for _, want := range SystemGroups {
			g, err := tx.ensureSystemGroup(want)
			if err != nil {
				return err
			}
			groups[g.Name] = g
		}

		for _, want := range SeedPermissions {
			var n int64
			if err := tx.db.Model(&models.Permission{}).Where("name = ?", want.Name).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				p := want
				if err := tx.db.Create(&p).Error; err != nil {
					return fmt.Errorf("create permission %s: %w", want.Name, err)
				}
			}
		}
		var catalog []models.Permission
		if err := tx.db.Find(&catalog).Error; err != nil {
			return err
		}

		for _, name := range []string{models.GroupOwner, models.GroupAdmin} {
			g := groups[name]
			var n int64
			if err := tx.db.Model(&models.GroupPermission{}).Where("group_id = ?", g.ID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			if err := tx.grant(g.ID, catalog); err != nil {
				return fmt.Errorf("grant catalog to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	s.PurgeCatalog()
	s.log.Info("default groups and permissions ensured")
	return nil
}

func (s *Store) ensureSystemGroup(want models.Group) (*models.Group, error) {
	var g models.Group
	err := s.db.Where("name = ?", want.Name).First(&g).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		g = want
		if err := s.db.Create(&g).Error; err != nil {
			return nil, fmt.Errorf("create group %s: %w", want.Name, err)
		}
		s.log.WithField("group", want.Name).Info("seeded group")
		return &g, nil
	case err != nil:
		return nil, err
	}
	if g.Level != want.Level {
		if err := s.db.Model(&models.Group{}).Where("id = ?", g.ID).Update("level", want.Level).Error; err != nil {
			return nil, fmt.Errorf("reset level of %s: %w", want.Name, err)
		}
		g.Level = want.Level
	}
	return &g, nil
}
