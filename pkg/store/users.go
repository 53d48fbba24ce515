package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"duckpay/models"
	"duckpay/pkg/apperr"
)

// UserPatch lists the user fields that may be changed after creation. Nil
// fields are left untouched. Group membership is changed through AssignGroups.
type UserPatch struct {
	Username       *string
	Email          *string
	Nickname       *string
	HashedPassword []byte
}

func (p UserPatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Username != nil {
		cols["username"] = *p.Username
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Nickname != nil {
		cols["nickname"] = *p.Nickname
	}
	if p.HashedPassword != nil {
		cols["hashed_password"] = p.HashedPassword
	}
	return cols
}

// users preloads groups and their permissions so authorization never sees a
// partial group set.
func (s *Store) users(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Groups.Permissions")
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	if err := s.users(ctx).Where(query, arg).First(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

// ListUsers returns every user with groups loaded, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.users(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// SignupGroup picks the group of a self-registered account: owner while no
// user exists, user afterwards. The owner group row stays locked until the
// surrounding transaction ends, so concurrent first sign-ups are decided one
// at a time. Call it inside Transaction, before inserting the account.
func (s *Store) SignupGroup(ctx context.Context) (string, error) {
	var owner models.Group
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", models.GroupOwner).
		First(&owner).Error
	if err != nil {
		return "", fmt.Errorf("lock owner group: %w", err)
	}
	n, err := s.CountUsers(ctx)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return models.GroupOwner, nil
	}
	return models.GroupUser, nil
}

// ensureUnique fails with Conflict when username or email is held by a user
// other than exceptID.
func (s *Store) ensureUnique(ctx context.Context, username, email *string, exceptID uint) error {
	check := func(column, value, msg string) error {
		var n int64
		q := s.db.WithContext(ctx).Model(&models.User{}).Where(column+" = ?", value)
		if exceptID != 0 {
			q = q.Where("id <> ?", exceptID)
		}
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("%s", msg)
		}
		return nil
	}
	if username != nil {
		if err := check("username", *username, "username already registered"); err != nil {
			return err
		}
	}
	if email != nil {
		if err := check("email", *email, "email already registered"); err != nil {
			return err
		}
	}
	return nil
}

// CreateUser inserts u without touching its Groups. The nickname defaults to
// the username. Duplicate usernames or emails fail with Conflict.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.ensureUnique(ctx, &u.Username, &u.Email, 0); err != nil {
		return err
	}
	if u.Nickname == "" {
		u.Nickname = u.Username
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return translate(err, "user")
	}
	return nil
}

// UpdateUser applies patch to the user with the given id.
func (s *Store) UpdateUser(ctx context.Context, id uint, patch UserPatch) error {
	if _, err := s.FindUserByID(ctx, id); err != nil {
		return err
	}
	if err := s.ensureUnique(ctx, patch.Username, patch.Email, id); err != nil {
		return err
	}
	cols := patch.columns()
	if len(cols) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols).Error
	return translate(err, "user")
}

// AssignGroups replaces the user's group set with the groups named in names.
// Unknown names are skipped. The replacement is atomic.
func (s *Store) AssignGroups(ctx context.Context, userID uint, names []string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		var n int64
		if err := tx.db.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("user not found")
		}
		var groups []models.Group
		if len(names) > 0 {
			if err := tx.db.Where("name IN ?", names).Find(&groups).Error; err != nil {
				return err
			}
		}
		if err := tx.db.Where("user_id = ?", userID).Delete(&models.UserGroup{}).Error; err != nil {
			return err
		}
		if len(groups) == 0 {
			return nil
		}
		links := make([]models.UserGroup, 0, len(groups))
		for _, g := range groups {
			links = append(links, models.UserGroup{UserID: userID, GroupID: g.ID})
		}
		return tx.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	})
}

// DeleteUser removes the user together with its memberships, refresh tokens,
// records and privately owned categories.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		for _, dep := range []any{&models.UserGroup{}, &models.RefreshToken{}, &models.Record{}, &models.Category{}} {
			if err := tx.db.Where("user_id = ?", id).Delete(dep).Error; err != nil {
				return err
			}
		}
		res := tx.db.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("user not found")
		}
		return nil
	})
}
