package ledger

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"duckpay/models"
	"duckpay/pkg/apperr"
	"duckpay/pkg/testdb"
)

const (
	alice uint = 1
	bob   uint = 2
)

type LedgerSuite struct {
	suite.Suite
	ctx context.Context
	svc *Service
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	db := testdb.Open(s.T())
	s.Require().NoError(db.AutoMigrate(&models.Category{}, &models.Record{}))
	log := logrus.New()
	log.SetOutput(io.Discard)
	s.svc = New(db, log)
	s.svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
}

func (s *LedgerSuite) category(owner uint, name string) *models.Category {
	c, err := s.svc.CreateCategory(s.ctx, owner, CategoryInput{Name: name, Type: models.TypeExpense})
	s.Require().NoError(err)
	return c
}

func (s *LedgerSuite) record(owner, categoryID uint, amount float64, day int) *models.Record {
	d := time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
	r, err := s.svc.CreateRecord(s.ctx, owner, RecordInput{Amount: amount, Type: models.TypeExpense, CategoryID: categoryID, Date: &d})
	s.Require().NoError(err)
	return r
}

func (s *LedgerSuite) TestCreateCategoryBindsOwner() {
	c := s.category(alice, "Food")
	s.Require().NotNil(c.UserID)
	s.Equal(alice, *c.UserID)
	s.False(c.IsDefault)
	s.Equal(models.DefaultCategoryColor, c.Color)
}

func (s *LedgerSuite) TestCreateCategoryValidates() {
	_, err := s.svc.CreateCategory(s.ctx, alice, CategoryInput{Name: "Food", Type: "transfer"})
	s.True(errors.Is(err, apperr.ErrInvalid))
	_, err = s.svc.CreateCategory(s.ctx, alice, CategoryInput{Name: " ", Type: models.TypeIncome})
	s.True(errors.Is(err, apperr.ErrInvalid))
}

func (s *LedgerSuite) TestDefaultCategoriesVisibleToEveryone() {
	def, err := s.svc.CreateDefaultCategory(s.ctx, CategoryInput{Name: "Salary", Type: models.TypeIncome})
	s.Require().NoError(err)
	s.Nil(def.UserID)
	s.category(alice, "Food")
	s.category(bob, "Games")

	for _, tc := range []struct {
		user uint
		want []string
	}{
		{alice, []string{"Salary", "Food"}},
		{bob, []string{"Salary", "Games"}},
		{99, []string{"Salary"}},
	} {
		list, err := s.svc.ListCategories(s.ctx, tc.user, "")
		s.Require().NoError(err)
		var names []string
		for _, c := range list {
			names = append(names, c.Name)
		}
		s.Equal(tc.want, names)
	}

	income, err := s.svc.ListCategories(s.ctx, alice, models.TypeIncome)
	s.Require().NoError(err)
	s.Len(income, 1)
}

func (s *LedgerSuite) TestDefaultCategoriesAreNotEditable() {
	def, err := s.svc.CreateDefaultCategory(s.ctx, CategoryInput{Name: "Salary", Type: models.TypeIncome})
	s.Require().NoError(err)

	name := "Bonus"
	for _, user := range []uint{alice, bob} {
		_, err := s.svc.UpdateCategory(s.ctx, user, def.ID, CategoryPatch{Name: &name})
		s.True(errors.Is(err, apperr.ErrNotFound))
		s.True(errors.Is(s.svc.DeleteCategory(s.ctx, user, def.ID), apperr.ErrNotFound))
	}

	got, err := s.svc.GetCategory(s.ctx, alice, def.ID)
	s.Require().NoError(err)
	s.Equal("Salary", got.Name)
}

func (s *LedgerSuite) TestCategoryIsolation() {
	c := s.category(alice, "Food")

	_, err := s.svc.GetCategory(s.ctx, bob, c.ID)
	s.True(errors.Is(err, apperr.ErrNotFound))

	name := "Stolen"
	_, err = s.svc.UpdateCategory(s.ctx, bob, c.ID, CategoryPatch{Name: &name})
	s.True(errors.Is(err, apperr.ErrNotFound))

	color := "#ff0000"
	updated, err := s.svc.UpdateCategory(s.ctx, alice, c.ID, CategoryPatch{Color: &color})
	s.Require().NoError(err)
	s.Equal("#ff0000", updated.Color)
	s.Equal("Food", updated.Name)

	s.Require().NoError(s.svc.DeleteCategory(s.ctx, alice, c.ID))
	_, err = s.svc.GetCategory(s.ctx, alice, c.ID)
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *LedgerSuite) TestDeleteCategoryInUse() {
	c := s.category(alice, "Food")
	s.record(alice, c.ID, 10, 1)
	s.True(errors.Is(s.svc.DeleteCategory(s.ctx, alice, c.ID), apperr.ErrConflict))
}

func (s *LedgerSuite) TestRecordRequiresVisibleCategory() {
	theirs := s.category(bob, "Games")
	_, err := s.svc.CreateRecord(s.ctx, alice, RecordInput{Amount: 5, Type: models.TypeExpense, CategoryID: theirs.ID})
	s.True(errors.Is(err, apperr.ErrNotFound))

	def, err := s.svc.CreateDefaultCategory(s.ctx, CategoryInput{Name: "Salary", Type: models.TypeIncome})
	s.Require().NoError(err)
	r, err := s.svc.CreateRecord(s.ctx, alice, RecordInput{Amount: 5, Type: models.TypeIncome, CategoryID: def.ID})
	s.Require().NoError(err)
	s.Equal(alice, r.UserID)
	s.Equal(s.svc.now(), r.Date)

	_, err = s.svc.CreateRecord(s.ctx, alice, RecordInput{Amount: 5, Type: "gift", CategoryID: def.ID})
	s.True(errors.Is(err, apperr.ErrInvalid))
}

func (s *LedgerSuite) TestRecordIsolation() {
	c := s.category(alice, "Food")
	r := s.record(alice, c.ID, 10, 1)

	_, err := s.svc.GetRecord(s.ctx, bob, r.ID)
	s.True(errors.Is(err, apperr.ErrNotFound))

	amount := 99.0
	_, err = s.svc.UpdateRecord(s.ctx, bob, r.ID, RecordPatch{Amount: &amount})
	s.True(errors.Is(err, apperr.ErrNotFound))

	s.True(errors.Is(s.svc.DeleteRecord(s.ctx, bob, r.ID), apperr.ErrNotFound))

	list, err := s.svc.ListRecords(s.ctx, bob, RecordFilter{})
	s.Require().NoError(err)
	s.Empty(list)

	got, err := s.svc.GetRecord(s.ctx, alice, r.ID)
	s.Require().NoError(err)
	s.Equal(10.0, got.Amount)
}

func (s *LedgerSuite) TestUpdateRecord() {
	c := s.category(alice, "Food")
	other := s.category(alice, "Rent")
	theirs := s.category(bob, "Games")
	r := s.record(alice, c.ID, 10, 1)

	amount, desc := 12.5, "lunch"
	updated, err := s.svc.UpdateRecord(s.ctx, alice, r.ID, RecordPatch{Amount: &amount, Description: &desc, CategoryID: &other.ID})
	s.Require().NoError(err)
	s.Equal(12.5, updated.Amount)
	s.Equal("lunch", updated.Description)
	s.Equal(other.ID, updated.CategoryID)

	_, err = s.svc.UpdateRecord(s.ctx, alice, r.ID, RecordPatch{CategoryID: &theirs.ID})
	s.True(errors.Is(err, apperr.ErrNotFound))

	s.Require().NoError(s.svc.DeleteRecord(s.ctx, alice, r.ID))
	_, err = s.svc.GetRecord(s.ctx, alice, r.ID)
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *LedgerSuite) TestListRecordsFilters() {
	food := s.category(alice, "Food")
	for day := 1; day <= 5; day++ {
		s.record(alice, food.ID, float64(day), day)
	}
	salary, err := s.svc.CreateDefaultCategory(s.ctx, CategoryInput{Name: "Salary", Type: models.TypeIncome})
	s.Require().NoError(err)
	d := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	_, err = s.svc.CreateRecord(s.ctx, alice, RecordInput{Amount: 100, Type: models.TypeIncome, CategoryID: salary.ID, Date: &d})
	s.Require().NoError(err)

	all, err := s.svc.ListRecords(s.ctx, alice, RecordFilter{})
	s.Require().NoError(err)
	s.Len(all, 6)
	s.Equal(5.0, all[0].Amount)

	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	ranged, err := s.svc.ListRecords(s.ctx, alice, RecordFilter{Start: &start, End: &end, Type: models.TypeExpense})
	s.Require().NoError(err)
	var amounts []float64
	for _, r := range ranged {
		amounts = append(amounts, r.Amount)
	}
	s.Equal([]float64{4, 3, 2}, amounts)

	page, err := s.svc.ListRecords(s.ctx, alice, RecordFilter{Skip: 1, Limit: 2, Type: models.TypeExpense})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(4.0, page[0].Amount)
	s.Equal(3.0, page[1].Amount)
}
