// Package store is the identity store: users, groups, the permission catalog,
// their link tables and refresh tokens, persisted through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"duckpay/models"
)

// DefaultCatalogTTL bounds how long the public permission catalog is served from memory.
const DefaultCatalogTTL = 5 * time.Minute

const catalogKey = "catalog"

// Store wraps a gorm handle. A Store obtained through Transaction shares the
// logger and catalog cache of its parent.
type Store struct {
	db      *gorm.DB
	log     *logrus.Logger
	catalog *expirable.LRU[string, []CatalogCategory]
}

type Option func(*options)

type options struct {
	catalogTTL time.Duration
}

// WithCatalogTTL overrides DefaultCatalogTTL. Non-positive values are ignored.
func WithCatalogTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.catalogTTL = ttl
		}
	}
}

// New registers the explicit link models on db and returns a Store.
func New(db *gorm.DB, log *logrus.Logger, opts ...Option) (*Store, error) {
	o := options{catalogTTL: DefaultCatalogTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := db.SetupJoinTable(&models.User{}, "Groups", &models.UserGroup{}); err != nil {
		return nil, fmt.Errorf("setup user_groups: %w", err)
	}
	if err := db.SetupJoinTable(&models.Group{}, "Permissions", &models.GroupPermission{}); err != nil {
		return nil, fmt.Errorf("setup group_permissions: %w", err)
	}
	return &Store{
		db:      db,
		log:     log,
		catalog: expirable.NewLRU[string, []CatalogCategory](1, nil, o.catalogTTL),
	}, nil
}

// DB exposes the underlying handle for packages that share the connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn against a Store bound to a single database transaction.
// Any error returned by fn rolls the whole transaction back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log, catalog: s.catalog})
	})
}

// Migrate creates or updates the schema, referenced tables first. Every model
// is migrated even when an earlier one fails; the failures are logged and
// returned together.
func (s *Store) Migrate(ctx context.Context) error {
	tables := []struct {
		name  string
		model any
	}{
		{"permissions", &models.Permission{}},
		{"groups", &models.Group{}},
		{"users", &models.User{}},
		{"user_groups", &models.UserGroup{}},
		{"group_permissions", &models.GroupPermission{}},
		{"categories", &models.Category{}},
		{"records", &models.Record{}},
		{"refresh_tokens", &models.RefreshToken{}},
	}
	var errs []error
	db := s.db.WithContext(ctx)
	for _, t := range tables {
		if err := db.AutoMigrate(t.model); err != nil {
			s.log.WithError(err).WithField("table", t.name).Warn("migration warning")
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}
