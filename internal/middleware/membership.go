package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/auditctx"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

const (
	CtxTenantKey     = "tenant"
	CtxMembershipKey = "membership"
)

// TenantResolver loads the membership an account acts as.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, accountID, organizationID string) (services.Tenant, *models.User, error)
}

// Membership resolves the caller's membership in the token's current
// organization. It must run after Auth.
func Membership(resolver TenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := AccountID(c)
		if accountID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		tenant, user, err := resolver.ResolveTenant(c.Request.Context(), accountID, c.GetString(CtxOrganizationIDKey))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxTenantKey, tenant)
		c.Set(CtxMembershipKey, user)

		actor, _ := auditctx.FromContext(c.Request.Context())
		actor.AccountID = accountID
		actor.Email = tenant.Email
		if actor.IPAddress == "" {
			actor.IPAddress = c.ClientIP()
			actor.UserAgent = c.Request.UserAgent()
		}
		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}

// Tenant returns the tenant resolved by Membership.
func Tenant(c *gin.Context) (services.Tenant, bool) {
	value, ok := c.Get(CtxTenantKey)
	if !ok {
		return services.Tenant{}, false
	}
	tenant, ok := value.(services.Tenant)
	return tenant, ok
}
