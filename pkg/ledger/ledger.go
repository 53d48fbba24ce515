// Package ledger serves categories and records scoped to their owning user.
// Records are strictly private. Categories are private to their owner unless
// flagged default, in which case every user sees them and nobody edits them
// through this package's user-facing methods.
package ledger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service runs the scoped queries.
type Service struct {
	db  *gorm.DB
	log *logrus.Logger
	now func() time.Time
}

func New(db *gorm.DB, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{db: db, log: log, now: time.Now}
}

// visibleCategories filters to categories userID may read.
func (s *Service) visibleCategories(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Where("(user_id = ? OR is_default = ?)", userID, true)
}

// ownRecords filters to records owned by userID.
func (s *Service) ownRecords(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Where("user_id = ?", userID)
}
