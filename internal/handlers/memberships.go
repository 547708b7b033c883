package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// MembershipHandler lists and switches the organizations an account belongs to.
type MembershipHandler struct {
	svc *services.MembershipService
}

func NewMembershipHandler(svc *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{svc: svc}
}

type switchOrganizationRequest struct {
	OrganizationID string `json:"organization_id"`
}

// GET /api/auth/switch-organization
func (h *MembershipHandler) List(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	list, err := h.svc.List(requestContext(c), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, list)
}

// POST /api/auth/switch-organization
func (h *MembershipHandler) Switch(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	var req switchOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	result, err := h.svc.Switch(requestContext(c), accountID, middleware.SessionID(c), req.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
