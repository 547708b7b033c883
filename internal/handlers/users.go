package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// UserHandler administers the organization's team.
type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	opts := listOptions(c)
	users, total, err := h.svc.List(requestContext(c), tenant, services.UserFilters{
		Status: models.UserStatus(c.Query("status")),
		Role:   models.UserRole(c.Query("role")),
	}, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, response.NewMeta(opts.Page, opts.PerPage, total))
}

// PATCH /api/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req changeRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.ChangeRole(requestContext(c), tenant, c.Param("id"), models.UserRole(req.Role))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// PATCH /api/users/:id/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req changeStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.SetStatus(requestContext(c), tenant, c.Param("id"), models.UserStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
