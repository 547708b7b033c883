package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/handlers"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
)

func registerOrganizationRoutes(tenant *gin.RouterGroup, handler *handlers.OrganizationHandler, checker *permissions.Checker) {
	org := tenant.Group("/organization")
	{
		org.GET("", middleware.RequirePermission(checker, permissions.OrganizationsRead), handler.Get)
		org.PATCH("",
			middleware.RequireRoles(checker, models.RoleOwner),
			middleware.RequirePermission(checker, permissions.OrganizationsUpdate),
			handler.Update,
		)
		org.GET("/stats", middleware.RequirePermission(checker, permissions.ReportsRead), handler.Stats)
	}
}
