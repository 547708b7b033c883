package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/handlers"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
)

func registerInvitationRoutes(public, account, tenant *gin.RouterGroup, handler *handlers.InviteHandler, checker *permissions.Checker) {
	public.GET("/validate-invitation", handler.Validate)
	public.GET("/accept-invitation", handler.Details)
	account.POST("/auth/accept-invitation", handler.Accept)

	inviters := middleware.RequireRoles(checker,
		models.RoleOwner,
		models.RoleOperationsManager,
		models.RoleSalesManager,
	)
	tenant.POST("/auth/invite-user", inviters, handler.Create)
	tenant.GET("/auth/invite-user", inviters, handler.ListPending)

	invitations := tenant.Group("/invitations")
	invitations.Use(middleware.RequirePermission(checker, permissions.InvitationsCreate))
	{
		invitations.POST("/:id/resend", handler.Resend)
		invitations.DELETE("/:id", handler.Revoke)
	}
}
