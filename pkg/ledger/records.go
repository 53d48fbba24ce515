package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"duckpay/models"
	"duckpay/pkg/apperr"
)

// Paging bounds for ListRecords.
const (
	DefaultRecordLimit = 100
	MaxRecordLimit     = 1000
)

type RecordInput struct {
	Amount      float64
	Type        string
	Description string
	CategoryID  uint
	// Date defaults to the current time.
	Date *time.Time
}

// RecordPatch holds the record fields that may change after creation.
type RecordPatch struct {
	Amount      *float64
	Description *string
	CategoryID  *uint
	Date        *time.Time
}

// RecordFilter narrows ListRecords. Start and End are inclusive and optional.
type RecordFilter struct {
	Skip  int
	Limit int
	Start *time.Time
	End   *time.Time
	Type  string
}

var errRecordNotFound = apperr.NotFound("record not found")

// ListRecords returns the user's records, newest first.
func (s *Service) ListRecords(ctx context.Context, userID uint, f RecordFilter) ([]models.Record, error) {
	q := s.ownRecords(ctx, userID)
	if f.Start != nil {
		q = q.Where("date >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("date <= ?", *f.End)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	if limit > MaxRecordLimit {
		limit = MaxRecordLimit
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}
	var out []models.Record
	if err := q.Order("date desc, id desc").Offset(skip).Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetRecord(ctx context.Context, userID, id uint) (*models.Record, error) {
	var r models.Record
	err := s.ownRecords(ctx, userID).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) CreateRecord(ctx context.Context, userID uint, in RecordInput) (*models.Record, error) {
	if !models.ValidEntryType(in.Type) {
		return nil, apperr.Invalid("type must be %q or %q", models.TypeIncome, models.TypeExpense)
	}
	if _, err := s.GetCategory(ctx, userID, in.CategoryID); err != nil {
		return nil, err
	}
	r := models.Record{
		Amount:      in.Amount,
		Type:        in.Type,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		UserID:      userID,
		Date:        s.now(),
	}
	if in.Date != nil {
		r.Date = *in.Date
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) UpdateRecord(ctx context.Context, userID, id uint, patch RecordPatch) (*models.Record, error) {
	if _, err := s.GetRecord(ctx, userID, id); err != nil {
		return nil, err
	}
	cols := map[string]any{}
	if patch.Amount != nil {
		cols["amount"] = *patch.Amount
	}
	if patch.Description != nil {
		cols["description"] = *patch.Description
	}
	if patch.Date != nil {
		cols["date"] = *patch.Date
	}
	if patch.CategoryID != nil {
		if _, err := s.GetCategory(ctx, userID, *patch.CategoryID); err != nil {
			return nil, err
		}
		cols["category_id"] = *patch.CategoryID
	}
	if len(cols) > 0 {
		err := s.ownRecords(ctx, userID).Model(&models.Record{}).Where("id = ?", id).Updates(cols).Error
		if err != nil {
			return nil, err
		}
	}
	return s.GetRecord(ctx, userID, id)
}

func (s *Service) DeleteRecord(ctx context.Context, userID, id uint) error {
	res := s.ownRecords(ctx, userID).Where("id = ?", id).Delete(&models.Record{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errRecordNotFound
	}
	return nil
}
