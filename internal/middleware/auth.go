package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/exteriorcrm/internal/auditctx"
	iauth "github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

const (
	CtxClaimsKey         = "authClaims"
	CtxAccountIDKey      = "accountID"
	CtxOrganizationIDKey = "organizationID"
	CtxSessionIDKey      = "sessionID"
)

// SessionChecker reports whether a session is still live.
type SessionChecker interface {
	IsActive(ctx context.Context, sessionID string) (bool, error)
}

// Auth enforces JWT authentication using the supplied JWT service. When
// sessions is non-nil, tokens whose session was ended are refused.
func Auth(jwt *iauth.JWTService, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			unauthorized(c)
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			unauthorized(c)
			return
		}

		if sessions != nil && claims.SessionID != "" {
			active, err := sessions.IsActive(c.Request.Context(), claims.SessionID)
			if err != nil {
				logger.WithModule("auth").Warn("session lookup failed",
					zap.String("session_id", claims.SessionID),
					zap.Error(err),
				)
				response.Error(c, errors.ErrInternalServer)
				c.Abort()
				return
			}
			if !active {
				unauthorized(c)
				return
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxAccountIDKey, claims.AccountID)
		c.Set(CtxOrganizationIDKey, claims.OrganizationID)
		if claims.SessionID != "" {
			c.Set(CtxSessionIDKey, claims.SessionID)
		}

		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			AccountID: claims.AccountID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}))

		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}

// AccountID returns the authenticated account id, or "" before Auth ran.
func AccountID(c *gin.Context) string {
	return c.GetString(CtxAccountIDKey)
}

// SessionID returns the session id carried by the access token.
func SessionID(c *gin.Context) string {
	return c.GetString(CtxSessionIDKey)
}

// Claims returns the validated access token claims.
func Claims(c *gin.Context) (*iauth.Claims, bool) {
	value, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*iauth.Claims)
	return claims, ok
}
