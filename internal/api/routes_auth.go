package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/handlers"
)

type authRouteDeps struct {
	Auth         *handlers.AuthHandler
	SSO          *handlers.SSOHandler
	Registration *handlers.RegistrationHandler
	Memberships  *handlers.MembershipHandler
}

func registerAuthRoutes(public, account *gin.RouterGroup, deps authRouteDeps) {
	{
		public.POST("/signup", deps.Auth.Signup)
		public.POST("/login", deps.Auth.Login)
		public.POST("/refresh", deps.Auth.Refresh)
		public.GET("/oidc/login", deps.SSO.Login)
		public.GET("/callback", deps.SSO.Callback)
	}

	account.GET("/auth/me", deps.Auth.Me)
	account.POST("/auth/logout", deps.Auth.Logout)
	account.POST("/auth/register-organization", deps.Registration.Register)
	account.GET("/auth/switch-organization", deps.Memberships.List)
	account.POST("/auth/switch-organization", deps.Memberships.Switch)
}
