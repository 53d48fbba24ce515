// Package accounts composes the identity store, token service, password hasher
// and authorization rules into the operations the HTTP layer calls.
package accounts

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"duckpay/models"
	"duckpay/pkg/apperr"
	"duckpay/pkg/store"
	"duckpay/pkg/token"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// DefaultRefreshTTL is used when no refresh lifetime is configured.
const DefaultRefreshTTL = 30 * 24 * time.Hour

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) ([]byte, error)
	Verify(plain string, digest []byte) bool
}

// Service is safe for concurrent use.
type Service struct {
	store      *store.Store
	tokens     *token.Service
	hasher     PasswordHasher
	log        *logrus.Logger
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Service)

// WithRefreshTTL sets the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock replaces time.Now for refresh token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *logrus.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func New(st *store.Store, tokens *token.Service, hasher PasswordHasher, opts ...Option) *Service {
	s := &Service{
		store:      st,
		tokens:     tokens,
		hasher:     hasher,
		log:        logrus.StandardLogger(),
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is what a successful login or refresh hands back.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Profile carries the fields of a new account.
type Profile struct {
	Username string
	Email    string
	Nickname string
	Password string
}

func (p *Profile) normalize() error {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)
	p.Nickname = strings.TrimSpace(p.Nickname)
	if p.Username == "" {
		return apperr.Invalid("username is required")
	}
	if p.Email == "" {
		return apperr.Invalid("email is required")
	}
	return checkPassword(p.Password)
}

func checkPassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return apperr.Invalid("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// newRefreshToken returns a random opaque token and the hash that is stored.
func newRefreshToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, hashRefreshToken(raw), nil
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *Service) accessToken(u *models.User, refresh string) (*Session, error) {
	access, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.TTL() / time.Second),
	}, nil
}
