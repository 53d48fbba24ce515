package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"duckpay/pkg/accounts"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Nickname string `json:"nickname"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type profileUpdateRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Nickname *string `json:"nickname"`
	Password *string `json:"password"`
}

func (r profileUpdateRequest) update() accounts.ProfileUpdate {
	return accounts.ProfileUpdate{Username: r.Username, Email: r.Email, Nickname: r.Nickname, Password: r.Password}
}

func (s *server) registerHandler(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	u, err := s.accounts.Register(c.Request.Context(), accounts.Profile{
		Username: req.Username,
		Email:    req.Email,
		Nickname: req.Nickname,
		Password: req.Password,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// loginHandler accepts JSON or a form post, so OAuth2 password-flow clients
// can log in too.
func (s *server) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	sess, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// refreshHandler exchanges a refresh token for a new access token and rotates
// the refresh token.
func (s *server) refreshHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	sess, err := s.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *server) logoutHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	if err := s.accounts.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func (s *server) meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (s *server) updateMeHandler(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	u, err := s.accounts.UpdateSelf(c.Request.Context(), currentUser(c), req.update())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
