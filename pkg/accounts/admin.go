package accounts

import (
	"context"
	"fmt"

	"duckpay/models"
	"duckpay/pkg/apperr"
	"duckpay/pkg/authz"
	"duckpay/pkg/store"
)

// NewUser is an admin-created account with its requested groups.
type NewUser struct {
	Profile
	// Groups defaults to the user group when empty.
	Groups []string
}

// UserUpdate is an admin edit of another account. A nil or empty Groups
// leaves the memberships untouched.
type UserUpdate struct {
	ProfileUpdate
	Groups []string
}

func errCannotAssign(group string) error {
	return apperr.Forbidden("only owner can assign %s group", group)
}

func checkAssignable(actor *models.User, groups []string) error {
	for _, g := range groups {
		if !authz.CanAssignGroup(actor, g) {
			return errCannotAssign(g)
		}
	}
	return nil
}

// ListUsers returns every account. Admins only.
func (s *Service) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := authz.CheckAdminRole(actor); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// CreateUser creates an account on behalf of an admin. Every requested group
// is checked before anything is written.
func (s *Service) CreateUser(ctx context.Context, actor *models.User, in NewUser) (*models.User, error) {
	if err := authz.CheckAdminRole(actor); err != nil {
		return nil, err
	}
	groups := in.Groups
	if len(groups) == 0 {
		groups = []string{models.GroupUser}
	}
	if err := checkAssignable(actor, groups); err != nil {
		return nil, err
	}
	if err := in.Profile.normalize(); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Username: in.Username, Email: in.Email, Nickname: in.Nickname, HashedPassword: digest}
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.AssignGroups(ctx, u.ID, groups)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("actor", actor.Username).WithField("username", u.Username).Info("user created")
	return s.store.FindUserByID(ctx, u.ID)
}

// editableTarget loads the user behind id once the actor is known to be an
// admin, then applies guard to it. Non-admins never learn whether id exists.
func (s *Service) editableTarget(ctx context.Context, actor *models.User, id uint, guard func(*models.User) authz.Guard) (*models.User, error) {
	if err := authz.Check(actor, authz.RequireAdmin); err != nil {
		return nil, err
	}
	target, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, guard(target)); err != nil {
		return nil, err
	}
	return target, nil
}

// UpdateUser edits another account: admin role, then the edit rule, then the
// per-group assignment rule, then one transaction for the field patch and the
// group replacement.
func (s *Service) UpdateUser(ctx context.Context, actor *models.User, id uint, u UserUpdate) (*models.User, error) {
	target, err := s.editableTarget(ctx, actor, id, authz.RequireEdit)
	if err != nil {
		return nil, err
	}
	if err := checkAssignable(actor, u.Groups); err != nil {
		return nil, err
	}
	p, err := s.patch(u.ProfileUpdate)
	if err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.UpdateUser(ctx, target.ID, p); err != nil {
			return err
		}
		if len(u.Groups) == 0 {
			return nil
		}
		return tx.AssignGroups(ctx, target.ID, u.Groups)
	})
	if err != nil {
		return nil, err
	}
	return s.store.FindUserByID(ctx, target.ID)
}

// DeleteUser removes an account the actor may edit.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User, id uint) error {
	target, err := s.editableTarget(ctx, actor, id, authz.RequireDelete)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, target.ID); err != nil {
		return err
	}
	s.log.WithField("actor", actor.Username).WithField("username", target.Username).Info("user deleted")
	return nil
}

// ChangeRole replaces the target's groups with the single named group, under
// the promotion rule: owners may set any group, other admins may only promote
// a non-admin to admin.
func (s *Service) ChangeRole(ctx context.Context, actor *models.User, id uint, group string) (*models.User, error) {
	if err := authz.CheckAdminRole(actor); err != nil {
		return nil, err
	}
	target, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanChangeRole(actor, target, group) {
		return nil, apperr.Forbidden("you don't have permission to change this user's role")
	}
	if _, err := s.store.FindGroupByName(ctx, group); err != nil {
		return nil, err
	}
	if err := s.store.AssignGroups(ctx, target.ID, []string{group}); err != nil {
		return nil, err
	}
	s.log.WithField("actor", actor.Username).WithField("username", target.Username).WithField("group", group).Info("role changed")
	return s.store.FindUserByID(ctx, target.ID)
}
