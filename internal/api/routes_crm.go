package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/handlers"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
)

func registerContactRoutes(tenant *gin.RouterGroup, handler *handlers.ContactHandler, checker *permissions.Checker) {
	contacts := tenant.Group("/contacts")
	{
		contacts.GET("", middleware.RequirePermission(checker, permissions.ContactsRead), handler.List)
		contacts.POST("", middleware.RequirePermission(checker, permissions.ContactsCreate), handler.Create)
		contacts.GET("/:id", middleware.RequirePermission(checker, permissions.ContactsRead), handler.Get)
		contacts.PATCH("/:id", middleware.RequirePermission(checker, permissions.ContactsUpdate), handler.Update)
		contacts.DELETE("/:id", middleware.RequirePermission(checker, permissions.ContactsDelete), handler.Delete)
		contacts.GET("/:id/activities", middleware.RequirePermission(checker, permissions.ContactsRead), handler.Activities)
		contacts.POST("/:id/activities", middleware.RequirePermission(checker, permissions.ContactsUpdate), handler.LogActivity)
	}
}

func registerLeadRoutes(tenant *gin.RouterGroup, handler *handlers.LeadHandler, checker *permissions.Checker) {
	leads := tenant.Group("/leads")
	{
		leads.GET("", middleware.RequirePermission(checker, permissions.LeadsRead), handler.List)
		leads.POST("", middleware.RequirePermission(checker, permissions.LeadsCreate), handler.Create)
		leads.GET("/:id", middleware.RequirePermission(checker, permissions.LeadsRead), handler.Get)
		leads.PATCH("/:id", middleware.RequirePermission(checker, permissions.LeadsUpdate), handler.Update)
		leads.DELETE("/:id", middleware.RequirePermission(checker, permissions.LeadsDelete), handler.Delete)
	}
}

func registerJobRoutes(tenant *gin.RouterGroup, handler *handlers.JobHandler, checker *permissions.Checker) {
	jobs := tenant.Group("/jobs")
	{
		jobs.GET("", middleware.RequirePermission(checker, permissions.JobsRead), handler.List)
		jobs.POST("", middleware.RequirePermission(checker, permissions.JobsCreate), handler.Create)
		jobs.GET("/:id", middleware.RequirePermission(checker, permissions.JobsRead), handler.Get)
		jobs.PATCH("/:id", middleware.RequirePermission(checker, permissions.JobsUpdate), handler.Update)
		jobs.PATCH("/:id/status", middleware.RequirePermission(checker, permissions.JobsUpdate), handler.UpdateStatus)
		jobs.DELETE("/:id", middleware.RequirePermission(checker, permissions.JobsDelete), handler.Delete)
	}
}

func registerEstimateRoutes(tenant *gin.RouterGroup, handler *handlers.EstimateHandler, checker *permissions.Checker) {
	update := middleware.RequirePermission(checker, permissions.EstimatesUpdate)

	estimates := tenant.Group("/estimates")
	{
		estimates.GET("", middleware.RequirePermission(checker, permissions.EstimatesRead), handler.List)
		estimates.POST("", middleware.RequirePermission(checker, permissions.EstimatesCreate), handler.Create)
		estimates.GET("/:id", middleware.RequirePermission(checker, permissions.EstimatesRead), handler.Get)
		estimates.PATCH("/:id", update, handler.Update)
		estimates.DELETE("/:id", middleware.RequirePermission(checker, permissions.EstimatesDelete), handler.Delete)
		estimates.POST("/:id/send", update, handler.Send)
		estimates.POST("/:id/viewed", update, handler.MarkViewed)
		estimates.POST("/:id/accept", update, handler.Accept)
		estimates.POST("/:id/reject", update, handler.Reject)
		estimates.POST("/:id/approve",
			middleware.RequireRoles(checker, models.RoleOwner, models.RoleEstimatingManager),
			handler.Approve,
		)
	}
}

func registerAuditRoutes(tenant *gin.RouterGroup, handler *handlers.AuditHandler, checker *permissions.Checker) {
	tenant.GET("/audit", middleware.RequirePermission(checker, permissions.AuditRead), handler.List)
}
