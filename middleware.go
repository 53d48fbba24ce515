package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"duckpay/models"
	"duckpay/pkg/apperr"
	"duckpay/pkg/authz"
)

const (
	ctxUser      = "user"
	ctxRequestID = "request_id"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"request_id": c.GetString(ctxRequestID),
		}
		if u := currentUser(c); u != nil {
			fields["user_id"] = u.ID
		}
		s.log.WithFields(fields).Info("request")
	}
}

// jwtAuthMiddleware resolves the bearer token to the live user and stores it
// in the context.
func (s *server) jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			s.respondError(c, apperr.Unauthenticated("missing or invalid Authorization header"))
			return
		}
		u, err := s.accounts.CurrentUser(c.Request.Context(), authHeader[7:])
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Set(ctxUser, u)
		c.Next()
	}
}

// requireGuard runs the guards against the authenticated user in order.
func (s *server) requireGuard(guards ...authz.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Check(currentUser(c), guards...); err != nil {
			s.respondError(c, err)
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// respondError writes err as {"error": msg} with the status of its kind and
// aborts the chain.
func (s *server) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	switch status {
	case http.StatusUnauthorized:
		c.Header("WWW-Authenticate", "Bearer")
		s.metrics.denied.WithLabelValues("unauthenticated").Inc()
	case http.StatusForbidden:
		s.metrics.denied.WithLabelValues("forbidden").Inc()
	case http.StatusInternalServerError:
		s.log.WithError(err).WithField("request_id", c.GetString(ctxRequestID)).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

func bindError(err error) error {
	return apperr.Invalid("invalid request: %v", err)
}

func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("invalid %s", name)
	}
	return uint(id), nil
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Invalid("invalid date %q", v)
}
