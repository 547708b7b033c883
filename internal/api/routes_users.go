package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/handlers"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
)

func registerUserRoutes(tenant *gin.RouterGroup, handler *handlers.UserHandler, checker *permissions.Checker) {
	users := tenant.Group("/users")
	{
		users.GET("", middleware.RequirePermission(checker, permissions.UsersRead), handler.List)
		users.PATCH("/:id/role", middleware.RequireRoles(checker, models.RoleOwner), handler.ChangeRole)
		users.PATCH("/:id/status", middleware.RequirePermission(checker, permissions.UsersUpdate), handler.SetStatus)
	}
}
