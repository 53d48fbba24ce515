package store

import (
	"context"

	"gorm.io/gorm/clause"

	"duckpay/models"
	"duckpay/pkg/apperr"
)

// GroupPatch lists the group fields an update may change. IsSystem is set at
// creation only.
type GroupPatch struct {
	Name        *string
	IsAdmin     *bool
	Description *string
	Level       *int
}

func (p GroupPatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.IsAdmin != nil {
		cols["is_admin"] = *p.IsAdmin
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Level != nil {
		cols["level"] = *p.Level
	}
	return cols
}

// GridEntry is one row of a group's permission grid.
type GridEntry struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Assigned    bool   `json:"assigned"`
}

var errOwnerImmutable = apperr.Forbidden("the owner group cannot be modified")

func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("level, id").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Store) GetGroup(ctx context.Context, id uint) (*models.Group, error) {
	var g models.Group
	if err := s.db.WithContext(ctx).Preload("Permissions").First(&g, id).Error; err != nil {
		return nil, translate(err, "group")
	}
	return &g, nil
}

func (s *Store) FindGroupByName(ctx context.Context, name string) (*models.Group, error) {
	var g models.Group
	if err := s.db.WithContext(ctx).Preload("Permissions").Where("name = ?", name).First(&g).Error; err != nil {
		return nil, translate(err, "group")
	}
	return &g, nil
}

func (s *Store) groupNameTaken(ctx context.Context, name string, exceptID uint) error {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.Group{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("group name already exists")
	}
	return nil
}

// CreateGroup inserts g without permissions.
func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.Name == "" {
		return apperr.Invalid("group name is required")
	}
	if err := s.groupNameTaken(ctx, g.Name, 0); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(g).Error; err != nil {
		return translate(err, "group")
	}
	return nil
}

// UpdateGroup applies patch and returns the reloaded group. The owner group
// rejects every change.
func (s *Store) UpdateGroup(ctx context.Context, id uint, patch GroupPatch) (*models.Group, error) {
	g, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Name == models.GroupOwner {
		return nil, errOwnerImmutable
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, apperr.Invalid("group name is required")
		}
		if err := s.groupNameTaken(ctx, *patch.Name, id); err != nil {
			return nil, err
		}
	}
	if cols := patch.columns(); len(cols) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return nil, translate(err, "group")
		}
	}
	return s.GetGroup(ctx, id)
}

// DeleteGroup removes a non-system group with its permission grid and
// memberships.
func (s *Store) DeleteGroup(ctx context.Context, id uint) error {
	g, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if g.Name == models.GroupOwner {
		return errOwnerImmutable
	}
	if g.IsSystem {
		return apperr.Forbidden("system groups cannot be deleted")
	}
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Where("group_id = ?", id).Delete(&models.GroupPermission{}).Error; err != nil {
			return err
		}
		if err := tx.db.Where("group_id = ?", id).Delete(&models.UserGroup{}).Error; err != nil {
			return err
		}
		return tx.db.Delete(&models.Group{}, id).Error
	})
}

// SetGroupPermissions replaces the group's permission grid. Unknown permission
// ids are skipped.
func (s *Store) SetGroupPermissions(ctx context.Context, groupID uint, permissionIDs []uint) error {
	g, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.Name == models.GroupOwner {
		return errOwnerImmutable
	}
	return s.Transaction(ctx, func(tx *Store) error {
		var perms []models.Permission
		if len(permissionIDs) > 0 {
			if err := tx.db.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
				return err
			}
		}
		if err := tx.db.Where("group_id = ?", groupID).Delete(&models.GroupPermission{}).Error; err != nil {
			return err
		}
		return tx.grant(groupID, perms)
	})
}

func (s *Store) grant(groupID uint, perms []models.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	links := make([]models.GroupPermission, 0, len(perms))
	for _, p := range perms {
		links = append(links, models.GroupPermission{GroupID: groupID, PermissionID: p.ID})
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

// GroupPermissionGrid lists the whole catalog with a flag for the permissions
// the group holds.
func (s *Store) GroupPermissionGrid(ctx context.Context, groupID uint) ([]GridEntry, error) {
	g, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	held := make(map[uint]bool, len(g.Permissions))
	for _, p := range g.Permissions {
		held[p.ID] = true
	}
	perms, err := s.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	grid := make([]GridEntry, 0, len(perms))
	for _, p := range perms {
		grid = append(grid, GridEntry{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Assigned:    held[p.ID],
		})
	}
	return grid, nil
}
