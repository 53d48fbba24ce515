package store

import (
	"context"
	"time"

	"duckpay/models"
	"duckpay/pkg/apperr"
)

// CreateRefreshToken stores the hash of a freshly issued refresh token.
func (s *Store) CreateRefreshToken(ctx context.Context, userID uint, hash string, expiresAt time.Time) error {
	rt := models.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: expiresAt}
	return translate(s.db.WithContext(ctx).Create(&rt).Error, "refresh token")
}

// RotateRefreshToken revokes the live token stored under oldHash and stores
// newHash for the same user. It returns the revoked token. Unknown, revoked or
// expired tokens fail with Unauthenticated.
func (s *Store) RotateRefreshToken(ctx context.Context, oldHash, newHash string, now, expiresAt time.Time) (*models.RefreshToken, error) {
	var old models.RefreshToken
	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Where("token_hash = ?", oldHash).First(&old).Error; err != nil {
			return apperr.Unauthenticated("invalid or expired refresh token")
		}
		if !old.Usable(now) {
			return apperr.Unauthenticated("invalid or expired refresh token")
		}
		res := tx.db.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", old.ID, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Unauthenticated("invalid or expired refresh token")
		}
		return tx.CreateRefreshToken(ctx, old.UserID, newHash, expiresAt)
	})
	if err != nil {
		return nil, err
	}
	old.Revoked = true
	return &old, nil
}

// RevokeRefreshToken marks the token stored under hash as revoked.
func (s *Store) RevokeRefreshToken(ctx context.Context, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hash).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("refresh token not found")
	}
	return nil
}
