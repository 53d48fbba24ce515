// Package token issues and parses the signed, time-limited access tokens that
// carry a user's identity between requests.
package token

import (
	"errors"
	"fmt"
	"time"

	"duckpay/models"
	"duckpay/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the access token lifetime when none is configured.
const DefaultTTL = 30 * time.Minute

// Claims is the payload of an access token. Groups reflects the user's
// memberships at issue time and is advisory only: authorization always
// re-resolves live group data.
type Claims struct {
	UserID uint     `json:"user_id"`
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// Service signs and verifies access tokens with an HMAC secret.
type Service struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithAlgorithm selects HS256, HS384 or HS512.
func WithAlgorithm(alg string) Option {
	return func(s *Service) {
		if m, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC); ok {
			s.method = m
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service. A non-positive ttl falls back to DefaultTTL.
func New(secret []byte, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{secret: secret, method: jwt.SigningMethodHS256, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured access token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for u embedding its username, id and current group names.
func (s *Service) Issue(u *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: u.ID,
		Groups: u.GroupNames(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its claims. Every failure (expiry, bad
// signature, malformed payload, missing subject) is reported as
// apperr.ErrUnauthenticated.
func (s *Service) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthenticated("token expired")
		}
		return nil, apperr.Unauthenticated("could not validate credentials")
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, apperr.Unauthenticated("could not validate credentials")
	}
	return claims, nil
}
