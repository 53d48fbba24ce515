package accounts

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"duckpay/models"
	"duckpay/pkg/apperr"
	"duckpay/pkg/authz"
	"duckpay/pkg/password"
	"duckpay/pkg/store"
	"duckpay/pkg/testdb"
	"duckpay/pkg/token"
)

type AccountsSuite struct {
	suite.Suite
	ctx    context.Context
	store  *store.Store
	tokens *token.Service
	svc    *Service
	now    time.Time
}

func TestAccountsSuite(t *testing.T) {
	suite.Run(t, new(AccountsSuite))
}

func (s *AccountsSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Now()
	log := logrus.New()
	log.SetOutput(io.Discard)

	st, err := store.New(testdb.Open(s.T()), log)
	s.Require().NoError(err)
	s.Require().NoError(st.Migrate(s.ctx))
	s.Require().NoError(st.Seed(s.ctx))
	s.store = st
	s.tokens = token.New([]byte("test-secret"), time.Minute)
	s.svc = New(st, s.tokens, password.NewHasher(bcrypt.MinCost),
		WithLogger(log),
		WithRefreshTTL(time.Hour),
		WithClock(func() time.Time { return s.now }))
}

func (s *AccountsSuite) register(name string) *models.User {
	u, err := s.svc.Register(s.ctx, Profile{Username: name, Email: name + "@example.com", Password: "secret1"})
	s.Require().NoError(err)
	return u
}

func (s *AccountsSuite) reload(u *models.User) *models.User {
	got, err := s.store.FindUserByID(s.ctx, u.ID)
	s.Require().NoError(err)
	return got
}

func (s *AccountsSuite) TestFirstUserIsOwner() {
	alice := s.register("alice")
	bob := s.register("bob")
	s.Equal([]string{models.GroupOwner}, alice.GroupNames())
	s.Equal([]string{models.GroupUser}, bob.GroupNames())
	s.Equal("alice", alice.Nickname)
}

func (s *AccountsSuite) TestRegisterValidation() {
	_, err := s.svc.Register(s.ctx, Profile{Username: "a", Email: "a@example.com", Password: "123"})
	s.True(errors.Is(err, apperr.ErrInvalid))

	s.register("alice")
	_, err = s.svc.Register(s.ctx, Profile{Username: "alice", Email: "x@example.com", Password: "secret1"})
	s.True(errors.Is(err, apperr.ErrConflict))
	_, err = s.svc.Register(s.ctx, Profile{Username: "x", Email: "alice@example.com", Password: "secret1"})
	s.True(errors.Is(err, apperr.ErrConflict))
}

func (s *AccountsSuite) TestAuthenticate() {
	s.register("alice")

	u, err := s.svc.Authenticate(s.ctx, "alice", "secret1")
	s.Require().NoError(err)
	s.Equal("alice", u.Username)

	_, err = s.svc.Authenticate(s.ctx, "alice", "wrong")
	s.True(errors.Is(err, apperr.ErrUnauthenticated))
	_, err = s.svc.Authenticate(s.ctx, "nobody", "secret1")
	s.True(errors.Is(err, apperr.ErrUnauthenticated))
}

func (s *AccountsSuite) TestLoginAndCurrentUser() {
	alice := s.register("alice")

	sess, err := s.svc.Login(s.ctx, "alice", "secret1")
	s.Require().NoError(err)
	s.Equal("bearer", sess.TokenType)
	s.Equal(int64(60), sess.ExpiresIn)
	s.NotEmpty(sess.RefreshToken)

	me, err := s.svc.CurrentUser(s.ctx, sess.AccessToken)
	s.Require().NoError(err)
	s.Equal(alice.ID, me.ID)
	s.True(authz.IsOwner(me))

	_, err = s.svc.CurrentUser(s.ctx, "garbage")
	s.True(errors.Is(err, apperr.ErrUnauthenticated))
}

func (s *AccountsSuite) TestCurrentUserIgnoresTokenGroups() {
	s.register("alice")
	bob := s.register("bob")

	sess, err := s.svc.Login(s.ctx, "bob", "secret1")
	s.Require().NoError(err)

	s.Require().NoError(s.store.AssignGroups(s.ctx, bob.ID, []string{models.GroupAdmin}))
	me, err := s.svc.CurrentUser(s.ctx, sess.AccessToken)
	s.Require().NoError(err)
	s.True(authz.IsAdmin(me))

	s.Require().NoError(s.store.DeleteUser(s.ctx, bob.ID))
	_, err = s.svc.CurrentUser(s.ctx, sess.AccessToken)
	s.True(errors.Is(err, apperr.ErrUnauthenticated))
}

func (s *AccountsSuite) TestRefreshRotatesAndLogoutRevokes() {
	s.register("alice")
	sess, err := s.svc.Login(s.ctx, "alice", "secret1")
	s.Require().NoError(err)

	next, err := s.svc.Refresh(s.ctx, sess.RefreshToken)
	s.Require().NoError(err)
	s.NotEqual(sess.RefreshToken, next.RefreshToken)

	_, err = s.svc.Refresh(s.ctx, sess.RefreshToken)
	s.True(errors.Is(err, apperr.ErrUnauthenticated))

	s.Require().NoError(s.svc.Logout(s.ctx, next.RefreshToken))
	_, err = s.svc.Refresh(s.ctx, next.RefreshToken)
	s.True(errors.Is(err, apperr.ErrUnauthenticated))

	s.True(errors.Is(s.svc.Logout(s.ctx, "unknown"), apperr.ErrNotFound))
}

func (s *AccountsSuite) TestRefreshExpires() {
	s.register("alice")
	sess, err := s.svc.Login(s.ctx, "alice", "secret1")
	s.Require().NoError(err)

	s.now = s.now.Add(2 * time.Hour)
	_, err = s.svc.Refresh(s.ctx, sess.RefreshToken)
	s.True(errors.Is(err, apperr.ErrUnauthenticated))
}

func (s *AccountsSuite) TestUpdateSelfWhitelist() {
	alice := s.register("alice")
	s.register("bob")

	nick, pw := "Al", "newsecret"
	me, err := s.svc.UpdateSelf(s.ctx, alice, ProfileUpdate{Nickname: &nick, Password: &pw})
	s.Require().NoError(err)
	s.Equal("Al", me.Nickname)
	s.Equal([]string{models.GroupOwner}, me.GroupNames())

	_, err = s.svc.Authenticate(s.ctx, "alice", "newsecret")
	s.NoError(err)

	taken := "bob"
	_, err = s.svc.UpdateSelf(s.ctx, alice, ProfileUpdate{Username: &taken})
	s.True(errors.Is(err, apperr.ErrConflict))

	short := "abc"
	_, err = s.svc.UpdateSelf(s.ctx, alice, ProfileUpdate{Password: &short})
	s.True(errors.Is(err, apperr.ErrInvalid))
}

// TestOwnerDelegatesToAuditor walks through group creation and assignment
// with a first user, a regular user and a custom non-admin group.
func (s *AccountsSuite) TestOwnerDelegatesToAuditor() {
	alice := s.register("alice")
	bob := s.register("bob")
	s.Equal([]string{models.GroupOwner}, alice.GroupNames())
	s.Equal([]string{models.GroupUser}, bob.GroupNames())

	level := 2
	auditor, err := s.svc.CreateGroup(s.ctx, alice, NewGroup{Name: "auditor", Level: &level})
	s.Require().NoError(err)
	s.False(auditor.IsAdmin)

	_, err = s.svc.CreateGroup(s.ctx, bob, NewGroup{Name: "mine"})
	s.True(errors.Is(err, apperr.ErrForbidden))

	bob, err = s.svc.UpdateUser(s.ctx, alice, bob.ID, UserUpdate{Groups: []string{"auditor"}})
	s.Require().NoError(err)
	l, ok := authz.Level(bob)
	s.True(ok)
	s.Equal(2, l)

	s.True(errors.Is(authz.CheckAdminRole(bob), apperr.ErrForbidden))
	_, err = s.svc.ListUsers(s.ctx, bob)
	s.True(errors.Is(err, apperr.ErrForbidden))
}

func (s *AccountsSuite) TestAdminCannotAssignOwner() {
	s.register("alice")
	carol := s.register("carol")
	dave := s.register("dave")
	carol, err := s.svc.UpdateUser(s.ctx, s.owner(), carol.ID, UserUpdate{Groups: []string{models.GroupAdmin}})
	s.Require().NoError(err)

	_, err = s.svc.UpdateUser(s.ctx, carol, dave.ID, UserUpdate{Groups: []string{models.GroupUser, models.GroupOwner}})
	s.True(errors.Is(err, apperr.ErrForbidden))
	s.Equal([]string{models.GroupUser}, s.reload(dave).GroupNames())

	_, err = s.svc.CreateUser(s.ctx, carol, NewUser{
		Profile: Profile{Username: "eve", Email: "eve@example.com", Password: "secret1"},
		Groups:  []string{models.GroupOwner},
	})
	s.True(errors.Is(err, apperr.ErrForbidden))
	_, err = s.store.FindUserByUsername(s.ctx, "eve")
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *AccountsSuite) owner() *models.User {
	u, err := s.store.FindUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	return u
}

func (s *AccountsSuite) TestAdminEditsByLevel() {
	s.register("alice")
	carol := s.register("carol")
	dave := s.register("dave")
	owner := s.owner()

	carol, err := s.svc.UpdateUser(s.ctx, owner, carol.ID, UserUpdate{Groups: []string{models.GroupAdmin}})
	s.Require().NoError(err)

	nick := "D"
	dave, err = s.svc.UpdateUser(s.ctx, carol, dave.ID, UserUpdate{ProfileUpdate: ProfileUpdate{Nickname: &nick}})
	s.Require().NoError(err)
	s.Equal("D", dave.Nickname)
	s.Equal([]string{models.GroupUser}, dave.GroupNames())

	_, err = s.svc.UpdateUser(s.ctx, carol, owner.ID, UserUpdate{ProfileUpdate: ProfileUpdate{Nickname: &nick}})
	s.True(errors.Is(err, apperr.ErrForbidden))

	s.True(errors.Is(s.svc.DeleteUser(s.ctx, carol, owner.ID), apperr.ErrForbidden))
	s.True(errors.Is(s.svc.DeleteUser(s.ctx, dave, carol.ID), apperr.ErrForbidden))
	s.Require().NoError(s.svc.DeleteUser(s.ctx, carol, dave.ID))

	_, err = s.svc.UpdateUser(s.ctx, carol, 9999, UserUpdate{})
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *AccountsSuite) TestCreateUserDefaultsToUserGroup() {
	s.register("alice")
	u, err := s.svc.CreateUser(s.ctx, s.owner(), NewUser{
		Profile: Profile{Username: "frank", Email: "frank@example.com", Password: "secret1"},
	})
	s.Require().NoError(err)
	s.Equal([]string{models.GroupUser}, u.GroupNames())

	u, err = s.svc.CreateUser(s.ctx, s.owner(), NewUser{
		Profile: Profile{Username: "grace", Email: "grace@example.com", Password: "secret1"},
		Groups:  []string{models.GroupAdmin, "ghost"},
	})
	s.Require().NoError(err)
	s.Equal([]string{models.GroupAdmin}, u.GroupNames())
}

func (s *AccountsSuite) TestChangeRole() {
	s.register("alice")
	carol := s.register("carol")
	dave := s.register("dave")
	erin := s.register("erin")
	owner := s.owner()

	carol, err := s.svc.ChangeRole(s.ctx, owner, carol.ID, models.GroupAdmin)
	s.Require().NoError(err)
	s.True(authz.IsAdmin(carol))

	_, err = s.svc.ChangeRole(s.ctx, carol, dave.ID, "auditor")
	s.True(errors.Is(err, apperr.ErrForbidden))

	dave, err = s.svc.ChangeRole(s.ctx, carol, dave.ID, models.GroupAdmin)
	s.Require().NoError(err)
	s.Equal([]string{models.GroupAdmin}, dave.GroupNames())

	_, err = s.svc.ChangeRole(s.ctx, carol, dave.ID, models.GroupUser)
	s.True(errors.Is(err, apperr.ErrForbidden))

	_, err = s.svc.ChangeRole(s.ctx, erin, carol.ID, models.GroupAdmin)
	s.True(errors.Is(err, apperr.ErrForbidden))

	_, err = s.svc.ChangeRole(s.ctx, owner, erin.ID, "ghost")
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *AccountsSuite) TestGroupAdministration() {
	s.register("alice")
	carol := s.register("carol")
	owner := s.owner()
	carol, err := s.svc.ChangeRole(s.ctx, owner, carol.ID, models.GroupAdmin)
	s.Require().NoError(err)

	groups, err := s.svc.ListGroups(s.ctx, carol)
	s.Require().NoError(err)
	s.Len(groups, 3)
	s.Equal(models.GroupOwner, groups[0].Name)

	g, err := s.svc.CreateGroup(s.ctx, owner, NewGroup{Name: "helpers"})
	s.Require().NoError(err)
	s.Equal(models.DefaultGroupLevel, g.Level)

	_, err = s.svc.CreateGroup(s.ctx, carol, NewGroup{Name: "x"})
	s.True(errors.Is(err, apperr.ErrForbidden))

	perms, err := s.svc.ListPermissions(s.ctx, carol)
	s.Require().NoError(err)
	grid, err := s.svc.SetGroupPermissions(s.ctx, owner, g.ID, []uint{perms[0].ID, perms[1].ID})
	s.Require().NoError(err)
	assigned := 0
	for _, e := range grid {
		if e.Assigned {
			assigned++
		}
	}
	s.Equal(2, assigned)

	_, err = s.svc.SetGroupPermissions(s.ctx, carol, g.ID, nil)
	s.True(errors.Is(err, apperr.ErrForbidden))

	grid, err = s.svc.GroupPermissionGrid(s.ctx, carol, g.ID)
	s.Require().NoError(err)
	s.Len(grid, len(store.SeedPermissions))

	name := "assistants"
	g, err = s.svc.UpdateGroup(s.ctx, owner, g.ID, store.GroupPatch{Name: &name})
	s.Require().NoError(err)
	s.Equal("assistants", g.Name)

	s.True(errors.Is(s.svc.DeleteGroup(s.ctx, carol, g.ID), apperr.ErrForbidden))
	s.Require().NoError(s.svc.DeleteGroup(s.ctx, owner, g.ID))

	ownerGroup, err := s.store.FindGroupByName(s.ctx, models.GroupOwner)
	s.Require().NoError(err)
	_, err = s.svc.UpdateGroup(s.ctx, owner, ownerGroup.ID, store.GroupPatch{Name: &name})
	s.True(errors.Is(err, apperr.ErrForbidden))

	catalog, err := s.svc.PermissionCatalog(s.ctx)
	s.Require().NoError(err)
	s.Len(catalog, 2)
}

func (s *AccountsSuite) TestGrouplessUserIsPowerless() {
	s.register("alice")
	bob := s.register("bob")
	s.Require().NoError(s.store.AssignGroups(s.ctx, bob.ID, nil))
	bob = s.reload(bob)

	s.False(authz.CanEditUser(bob, bob))
	s.True(errors.Is(authz.CheckAdminRole(bob), apperr.ErrForbidden))
	s.True(errors.Is(authz.CheckOwnerRole(bob), apperr.ErrForbidden))
	_, err := s.svc.ListGroups(s.ctx, bob)
	s.True(errors.Is(err, apperr.ErrForbidden))
}

func (s *AccountsSuite) TestGrouplessUserIsOwnerOnly() {
	s.register("alice")
	carol := s.register("carol")
	bob := s.register("bob")
	owner := s.owner()

	carol, err := s.svc.UpdateUser(s.ctx, owner, carol.ID, UserUpdate{Groups: []string{models.GroupAdmin}})
	s.Require().NoError(err)
	s.Require().NoError(s.store.AssignGroups(s.ctx, bob.ID, nil))

	nick := "B"
	_, err = s.svc.UpdateUser(s.ctx, carol, bob.ID, UserUpdate{ProfileUpdate: ProfileUpdate{Nickname: &nick}})
	s.True(errors.Is(err, apperr.ErrForbidden))
	_, err = s.svc.ChangeRole(s.ctx, carol, bob.ID, models.GroupAdmin)
	s.True(errors.Is(err, apperr.ErrForbidden))
	err = s.svc.DeleteUser(s.ctx, carol, bob.ID)
	s.True(errors.Is(err, apperr.ErrForbidden))
	s.Equal("you don't have permission to delete this user", err.Error())

	bob, err = s.svc.UpdateUser(s.ctx, owner, bob.ID, UserUpdate{Groups: []string{models.GroupUser}})
	s.Require().NoError(err)
	s.Equal([]string{models.GroupUser}, bob.GroupNames())
}
