package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/handlers"
)

func registerProfileRoutes(tenant *gin.RouterGroup, handler *handlers.ProfileHandler) {
	tenant.GET("/auth/user", handler.Get)
	tenant.PATCH("/auth/user", handler.Update)
}
