package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"duckpay/models"
	"duckpay/pkg/apperr"
	"duckpay/pkg/store"
)

var errBadCredentials = apperr.Unauthenticated("incorrect username or password")

// Register creates an account. The very first account joins the owner group,
// every later one the user group.
func (s *Service) Register(ctx context.Context, p Profile) (*models.User, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Username: p.Username, Email: p.Email, Nickname: p.Nickname, HashedPassword: digest}
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		group, err := tx.SignupGroup(ctx)
		if err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.AssignGroups(ctx, u.ID, []string{group})
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("username", u.Username).Info("user registered")
	return s.store.FindUserByID(ctx, u.ID)
}

// Authenticate checks a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, apperr.Invalid("username and password are required")
	}
	u, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, u.HashedPassword) {
		return nil, errBadCredentials
	}
	return u, nil
}

// Login authenticates and opens a session with a fresh refresh token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	raw, hash, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if err := s.store.CreateRefreshToken(ctx, u.ID, hash, s.now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}
	return s.accessToken(u, raw)
}

// Refresh rotates a refresh token and issues an access token carrying the
// user's current groups.
func (s *Service) Refresh(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, apperr.Unauthenticated("invalid or expired refresh token")
	}
	next, nextHash, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	now := s.now()
	old, err := s.store.RotateRefreshToken(ctx, hashRefreshToken(raw), nextHash, now, now.Add(s.refreshTTL))
	if err != nil {
		return nil, err
	}
	u, err := s.store.FindUserByID(ctx, old.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthenticated("invalid or expired refresh token")
	}
	if err != nil {
		return nil, err
	}
	return s.accessToken(u, next)
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.store.RevokeRefreshToken(ctx, hashRefreshToken(raw))
}

// CurrentUser resolves a bearer token to the live user record. The groups in
// the token are ignored.
func (s *Service) CurrentUser(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.store.FindUserByUsername(ctx, claims.Subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthenticated("could not validate credentials")
	}
	if err != nil {
		return nil, err
	}
	if claims.UserID != 0 && claims.UserID != u.ID {
		return nil, apperr.Unauthenticated("could not validate credentials")
	}
	return u, nil
}

// ProfileUpdate lists the fields a user may change on its own account.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Nickname *string
	Password *string
}

func (s *Service) patch(u ProfileUpdate) (store.UserPatch, error) {
	var p store.UserPatch
	if u.Username != nil {
		name := strings.TrimSpace(*u.Username)
		if name == "" {
			return p, apperr.Invalid("username is required")
		}
		p.Username = &name
	}
	if u.Email != nil {
		email := strings.TrimSpace(*u.Email)
		if email == "" {
			return p, apperr.Invalid("email is required")
		}
		p.Email = &email
	}
	p.Nickname = u.Nickname
	if u.Password != nil {
		if err := checkPassword(*u.Password); err != nil {
			return p, err
		}
		digest, err := s.hasher.Hash(*u.Password)
		if err != nil {
			return p, fmt.Errorf("hash password: %w", err)
		}
		p.HashedPassword = digest
	}
	return p, nil
}

// UpdateSelf applies u to the actor's own account.
func (s *Service) UpdateSelf(ctx context.Context, actor *models.User, u ProfileUpdate) (*models.User, error) {
	if actor == nil {
		return nil, apperr.Unauthenticated("authentication required")
	}
	p, err := s.patch(u)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateUser(ctx, actor.ID, p); err != nil {
		return nil, err
	}
	return s.store.FindUserByID(ctx, actor.ID)
}
