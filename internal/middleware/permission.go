package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
	"github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// RequirePermission checks that the caller's role holds permissionID.
func RequirePermission(checker *permissions.Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := Tenant(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		allowed, err := checker.Check(tenant.Role, permissionID)
		if err != nil {
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles admits only callers whose role is listed.
func RequireRoles(checker *permissions.Checker, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := Tenant(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !checker.CheckRoles(tenant.Role, roles...) {
			response.Error(c, errors.ErrForbidden.WithMessage("Insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}
