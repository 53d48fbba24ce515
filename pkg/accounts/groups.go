package accounts

import (
	"context"

	"duckpay/models"
	"duckpay/pkg/authz"
	"duckpay/pkg/store"
)

// NewGroup describes a group to create. Level defaults to
// models.DefaultGroupLevel when nil.
type NewGroup struct {
	Name        string
	IsAdmin     bool
	IsSystem    bool
	Level       *int
	Description string
}

func (s *Service) ListGroups(ctx context.Context, actor *models.User) ([]models.Group, error) {
	if err := authz.CheckAdminRole(actor); err != nil {
		return nil, err
	}
	return s.store.ListGroups(ctx)
}

// CreateGroup is reserved to the owner.
func (s *Service) CreateGroup(ctx context.Context, actor *models.User, in NewGroup) (*models.Group, error) {
	if err := authz.CheckOwnerRole(actor); err != nil {
		return nil, err
	}
	g := &models.Group{
		Name:        in.Name,
		IsAdmin:     in.IsAdmin,
		IsSystem:    in.IsSystem,
		Level:       models.DefaultGroupLevel,
		Description: in.Description,
	}
	if in.Level != nil {
		g.Level = *in.Level
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	s.log.WithField("actor", actor.Username).WithField("group", g.Name).Info("group created")
	return s.store.GetGroup(ctx, g.ID)
}

func (s *Service) UpdateGroup(ctx context.Context, actor *models.User, id uint, patch store.GroupPatch) (*models.Group, error) {
	if err := authz.CheckOwnerRole(actor); err != nil {
		return nil, err
	}
	return s.store.UpdateGroup(ctx, id, patch)
}

func (s *Service) DeleteGroup(ctx context.Context, actor *models.User, id uint) error {
	if err := authz.CheckOwnerRole(actor); err != nil {
		return err
	}
	return s.store.DeleteGroup(ctx, id)
}

// SetGroupPermissions replaces a group's permission grid and returns the new grid.
func (s *Service) SetGroupPermissions(ctx context.Context, actor *models.User, id uint, permissionIDs []uint) ([]store.GridEntry, error) {
	if err := authz.CheckOwnerRole(actor); err != nil {
		return nil, err
	}
	if err := s.store.SetGroupPermissions(ctx, id, permissionIDs); err != nil {
		return nil, err
	}
	return s.store.GroupPermissionGrid(ctx, id)
}

func (s *Service) GroupPermissionGrid(ctx context.Context, actor *models.User, id uint) ([]store.GridEntry, error) {
	if err := authz.CheckAdminRole(actor); err != nil {
		return nil, err
	}
	return s.store.GroupPermissionGrid(ctx, id)
}

func (s *Service) ListPermissions(ctx context.Context, actor *models.User) ([]models.Permission, error) {
	if err := authz.CheckAdminRole(actor); err != nil {
		return nil, err
	}
	return s.store.ListPermissions(ctx)
}

// PermissionCatalog needs no actor; clients render permission pickers from it
// before login.
func (s *Service) PermissionCatalog(ctx context.Context) ([]store.CatalogCategory, error) {
	return s.store.PermissionCatalog(ctx)
}
