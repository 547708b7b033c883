package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// tenantOrAbort returns the resolved tenant or writes a 401.
func tenantOrAbort(c *gin.Context) (services.Tenant, bool) {
	tenant, ok := middleware.Tenant(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return services.Tenant{}, false
	}
	return tenant, true
}

// accountOrAbort returns the authenticated account id or writes a 401.
func accountOrAbort(c *gin.Context) (string, bool) {
	accountID := middleware.AccountID(c)
	if accountID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return accountID, true
}

func sessionMetadata(c *gin.Context) iauth.SessionMetadata {
	return iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
