package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"duckpay/pkg/accounts"
	"duckpay/pkg/apperr"
	"duckpay/pkg/authz"
	"duckpay/pkg/ledger"
	"duckpay/pkg/store"
)

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware(), s.metrics.middleware(), s.accessLog())
	s.setupRoutes(r)
	return r
}

func (s *server) setupRoutes(r *gin.Engine) {
	r.GET("/metrics", s.metrics.handler())

	api := r.Group("/api")
	api.GET("/status", statusHandler)

	users := api.Group("/users")
	users.POST("/register", s.registerHandler)
	users.POST("/login", s.loginHandler)
	users.POST("/refresh", s.refreshHandler)
	users.POST("/logout", s.logoutHandler)

	authed := api.Group("")
	authed.Use(s.jwtAuthMiddleware())
	authed.GET("/users/me", s.meHandler)
	authed.POST("/users/me/update", s.updateMeHandler)

	authed.GET("/categories", s.listCategoriesHandler)
	authed.GET("/categories/:id", s.getCategoryHandler)
	authed.POST("/categories", s.createCategoryHandler)
	authed.POST("/categories/update/:id", s.updateCategoryHandler)
	authed.POST("/categories/delete/:id", s.deleteCategoryHandler)

	authed.GET("/records", s.listRecordsHandler)
	authed.GET("/records/:id", s.getRecordHandler)
	authed.POST("/records", s.createRecordHandler)
	authed.POST("/records/update/:id", s.updateRecordHandler)
	authed.POST("/records/delete/:id", s.deleteRecordHandler)

	// The catalog renders permission pickers before login.
	api.GET("/admin/permission-nodes", s.permissionNodesHandler)

	admin := authed.Group("/admin")
	admin.Use(s.requireGuard(authz.RequireAdmin))
	admin.GET("/users", s.listUsersHandler)
	admin.POST("/users/add", s.addUserHandler)
	admin.POST("/users/update/:id", s.updateUserHandler)
	admin.POST("/users/delete/:id", s.deleteUserHandler)
	admin.POST("/users/:id/role", s.changeRoleHandler)
	admin.GET("/groups", s.listGroupsHandler)
	admin.GET("/groups/:id/permissions", s.groupPermissionsHandler)
	admin.GET("/permissions", s.listPermissionsHandler)
	admin.POST("/categories/default", s.createDefaultCategoryHandler)

	owner := admin.Group("")
	owner.Use(s.requireGuard(authz.RequireOwner))
	owner.POST("/groups/add", s.addGroupHandler)
	owner.POST("/groups/update/:id", s.updateGroupHandler)
	owner.POST("/groups/delete/:id", s.deleteGroupHandler)
	owner.POST("/groups/:id/permissions", s.setGroupPermissionsHandler)
}

func statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "pong"})
}

// categories

type categoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Type  string `json:"type" binding:"required,oneof=income expense"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (r categoryRequest) input() ledger.CategoryInput {
	return ledger.CategoryInput{Name: r.Name, Type: r.Type, Icon: r.Icon, Color: r.Color}
}

type categoryUpdateRequest struct {
	Name  *string `json:"name"`
	Icon  *string `json:"icon"`
	Color *string `json:"color"`
}

func (s *server) listCategoriesHandler(c *gin.Context) {
	list, err := s.ledger.ListCategories(c.Request.Context(), currentUser(c).ID, c.Query("type"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *server) getCategoryHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	cat, err := s.ledger.GetCategory(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *server) createCategoryHandler(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	cat, err := s.ledger.CreateCategory(c.Request.Context(), currentUser(c).ID, req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *server) createDefaultCategoryHandler(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	cat, err := s.ledger.CreateDefaultCategory(c.Request.Context(), req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *server) updateCategoryHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req categoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	cat, err := s.ledger.UpdateCategory(c.Request.Context(), currentUser(c).ID, id,
		ledger.CategoryPatch{Name: req.Name, Icon: req.Icon, Color: req.Color})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *server) deleteCategoryHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.ledger.DeleteCategory(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}

// records

type recordRequest struct {
	Amount      *float64 `json:"amount" binding:"required"`
	Type        string   `json:"type" binding:"required,oneof=income expense"`
	Description string   `json:"description"`
	CategoryID  uint     `json:"category_id" binding:"required"`
	Date        string   `json:"date"`
}

type recordUpdateRequest struct {
	Amount      *float64 `json:"amount"`
	Description *string  `json:"description"`
	CategoryID  *uint    `json:"category_id"`
	Date        *string  `json:"date"`
}

func queryInt(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Invalid("invalid %s", name)
	}
	return n, nil
}

func (s *server) listRecordsHandler(c *gin.Context) {
	var f ledger.RecordFilter
	var err error
	if f.Skip, err = queryInt(c, "skip"); err != nil {
		s.respondError(c, err)
		return
	}
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		s.respondError(c, err)
		return
	}
	if f.Start, err = parseDate(c.Query("start_date")); err != nil {
		s.respondError(c, err)
		return
	}
	if f.End, err = parseDate(c.Query("end_date")); err != nil {
		s.respondError(c, err)
		return
	}
	f.Type = c.Query("type")
	list, err := s.ledger.ListRecords(c.Request.Context(), currentUser(c).ID, f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *server) getRecordHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	rec, err := s.ledger.GetRecord(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) createRecordHandler(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		s.respondError(c, err)
		return
	}
	rec, err := s.ledger.CreateRecord(c.Request.Context(), currentUser(c).ID, ledger.RecordInput{
		Amount:      *req.Amount,
		Type:        req.Type,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Date:        date,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) updateRecordHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req recordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	patch := ledger.RecordPatch{Amount: req.Amount, Description: req.Description, CategoryID: req.CategoryID}
	if req.Date != nil {
		if patch.Date, err = parseDate(*req.Date); err != nil {
			s.respondError(c, err)
			return
		}
	}
	rec, err := s.ledger.UpdateRecord(c.Request.Context(), currentUser(c).ID, id, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) deleteRecordHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.ledger.DeleteRecord(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "record deleted"})
}

// admin: users

type addUserRequest struct {
	registerRequest
	Groups []string `json:"groups"`
}

type updateUserRequest struct {
	profileUpdateRequest
	Groups []string `json:"groups"`
}

type roleRequest struct {
	Group string `json:"group" binding:"required"`
}

func (s *server) listUsersHandler(c *gin.Context) {
	users, err := s.accounts.ListUsers(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *server) addUserHandler(c *gin.Context) {
	var req addUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	u, err := s.accounts.CreateUser(c.Request.Context(), currentUser(c), accounts.NewUser{
		Profile: accounts.Profile{
			Username: req.Username,
			Email:    req.Email,
			Nickname: req.Nickname,
			Password: req.Password,
		},
		Groups: req.Groups,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *server) updateUserHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	u, err := s.accounts.UpdateUser(c.Request.Context(), currentUser(c), id, accounts.UserUpdate{
		ProfileUpdate: req.update(),
		Groups:        req.Groups,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *server) deleteUserHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.accounts.DeleteUser(c.Request.Context(), currentUser(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (s *server) changeRoleHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	u, err := s.accounts.ChangeRole(c.Request.Context(), currentUser(c), id, req.Group)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// admin: groups and permissions

type groupRequest struct {
	Name        string `json:"name" binding:"required"`
	IsAdmin     bool   `json:"is_admin"`
	IsSystem    bool   `json:"is_system"`
	Level       *int   `json:"level"`
	Description string `json:"description"`
}

type groupUpdateRequest struct {
	Name        *string `json:"name"`
	IsAdmin     *bool   `json:"is_admin"`
	Description *string `json:"description"`
	Level       *int    `json:"level"`
}

type groupPermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids"`
}

func (s *server) listGroupsHandler(c *gin.Context) {
	groups, err := s.accounts.ListGroups(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (s *server) addGroupHandler(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	g, err := s.accounts.CreateGroup(c.Request.Context(), currentUser(c), accounts.NewGroup{
		Name:        req.Name,
		IsAdmin:     req.IsAdmin,
		IsSystem:    req.IsSystem,
		Level:       req.Level,
		Description: req.Description,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *server) updateGroupHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req groupUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	g, err := s.accounts.UpdateGroup(c.Request.Context(), currentUser(c), id, store.GroupPatch{
		Name:        req.Name,
		IsAdmin:     req.IsAdmin,
		Description: req.Description,
		Level:       req.Level,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *server) deleteGroupHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.accounts.DeleteGroup(c.Request.Context(), currentUser(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "group deleted"})
}

func (s *server) groupPermissionsHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	grid, err := s.accounts.GroupPermissionGrid(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

func (s *server) setGroupPermissionsHandler(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req groupPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	grid, err := s.accounts.SetGroupPermissions(c.Request.Context(), currentUser(c), id, req.PermissionIDs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

func (s *server) listPermissionsHandler(c *gin.Context) {
	perms, err := s.accounts.ListPermissions(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

func (s *server) permissionNodesHandler(c *gin.Context) {
	catalog, err := s.accounts.PermissionCatalog(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalog)
}
