package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"botfleet/internal/api"
	"botfleet/pkg/logging"
)

const (
	HeaderRequestID  = "X-Request-ID"
	HeaderTenantID   = "X-Tenant-ID"
	HeaderAdminToken = "X-Admin-Token"

	ctxRequestID = "botfleet.requestID"
	ctxTenant    = "botfleet.tenant"
	ctxAdmin     = "botfleet.admin"
)

// withRequestID reuses the caller's request id or assigns a fresh one, and
// echoes it on the response.
func withRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		if status >= http.StatusInternalServerError {
			logging.Warn(subsystem, "%s %s -> %d in %s (request %s)", c.Request.Method, c.Request.URL.Path, status, elapsed, requestID(c))
			return
		}
		logging.Debug(subsystem, "%s %s -> %d in %s (request %s)", c.Request.Method, c.Request.URL.Path, status, elapsed, requestID(c))
	}
}

// requireTenant scopes the request to the tenant named in X-Tenant-ID.
func (s *Server) requireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := strings.TrimSpace(c.GetHeader(HeaderTenantID))
		if tenant == "" {
			s.writeError(c, api.NewValidationError(HeaderTenantID, "header is required"))
			return
		}
		c.Set(ctxTenant, tenant)
		c.Next()
	}
}

// requireAdmin rejects requests without the configured admin token. Admin
// requests run with the empty tenant, which skips ownership checks.
func (s *Server) requireAdmin() gin.HandlerFunc {
	want := []byte(s.opts.AdminToken)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HeaderAdminToken))
		if len(got) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{
				Kind:    api.KindOwnership,
				Message: "missing or invalid admin token",
			})
			return
		}
		c.Set(ctxTenant, "")
		c.Set(ctxAdmin, true)
		c.Next()
	}
}

func tenantOf(c *gin.Context) string {
	return c.GetString(ctxTenant)
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(ctxAdmin)
}
