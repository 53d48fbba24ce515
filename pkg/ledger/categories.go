package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"duckpay/models"
	"duckpay/pkg/apperr"
)

type CategoryInput struct {
	Name  string
	Type  string
	Icon  string
	Color string
}

func (in CategoryInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("category name is required")
	}
	if !models.ValidEntryType(in.Type) {
		return apperr.Invalid("type must be %q or %q", models.TypeIncome, models.TypeExpense)
	}
	return nil
}

func (in CategoryInput) model() models.Category {
	c := models.Category{Name: strings.TrimSpace(in.Name), Type: in.Type, Icon: in.Icon, Color: in.Color}
	if c.Color == "" {
		c.Color = models.DefaultCategoryColor
	}
	return c
}

// CategoryPatch holds the category fields a user may change.
type CategoryPatch struct {
	Name  *string
	Icon  *string
	Color *string
}

var errCategoryNotFound = apperr.NotFound("category not found")

// ListCategories returns the user's own categories plus every default one,
// optionally restricted to one entry type.
func (s *Service) ListCategories(ctx context.Context, userID uint, typ string) ([]models.Category, error) {
	q := s.visibleCategories(ctx, userID)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	var out []models.Category
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetCategory(ctx context.Context, userID, id uint) (*models.Category, error) {
	var c models.Category
	err := s.visibleCategories(ctx, userID).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory creates a private category owned by userID.
func (s *Service) CreateCategory(ctx context.Context, userID uint, in CategoryInput) (*models.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := in.model()
	c.UserID = &userID
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateDefaultCategory creates an ownerless category visible to every user.
// Callers gate it behind the admin role.
func (s *Service) CreateDefaultCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := in.model()
	c.IsDefault = true
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"category_id": c.ID, "name": c.Name}).Info("default category created")
	return &c, nil
}

// editableCategory resolves id through the visibility filter and refuses
// default categories as if they did not exist.
func (s *Service) editableCategory(ctx context.Context, userID, id uint) (*models.Category, error) {
	c, err := s.GetCategory(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.IsDefault {
		return nil, errCategoryNotFound
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, userID, id uint, patch CategoryPatch) (*models.Category, error) {
	c, err := s.editableCategory(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	cols := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Invalid("category name is required")
		}
		cols["name"] = name
	}
	if patch.Icon != nil {
		cols["icon"] = *patch.Icon
	}
	if patch.Color != nil {
		cols["color"] = *patch.Color
	}
	if len(cols) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", c.ID).Updates(cols).Error; err != nil {
			return nil, err
		}
	}
	return s.GetCategory(ctx, userID, id)
}

// DeleteCategory removes one of the user's categories. Categories still
// referenced by records are kept and reported as a conflict.
func (s *Service) DeleteCategory(ctx context.Context, userID, id uint) error {
	c, err := s.editableCategory(ctx, userID, id)
	if err != nil {
		return err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Record{}).Where("category_id = ?", c.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("category is used by %d record(s)", n)
	}
	return s.db.WithContext(ctx).Delete(&models.Category{}, c.ID).Error
}
