package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	appErrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// InviteHandler serves the invitation lifecycle.
type InviteHandler struct {
	invites *services.InviteService
	// exposeToken returns raw invitation tokens in API responses. Development only.
	exposeToken bool
}

func NewInviteHandler(invites *services.InviteService, exposeToken bool) *InviteHandler {
	return &InviteHandler{invites: invites, exposeToken: exposeToken}
}

// Email and role presence is checked by the service so both missing fields are reported together.
type createInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type acceptInviteRequest struct {
	InvitationToken string `json:"invitationToken"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Phone           string `json:"phone"`
	Mobile          string `json:"mobile"`
	Timezone        string `json:"timezone"`
}

type invitationDTO struct {
	ID              string                  `json:"id"`
	Email           string                  `json:"email"`
	Role            models.UserRole         `json:"role"`
	Status          models.InvitationStatus `json:"status"`
	InvitedBy       string                  `json:"invitedBy"`
	InviterName     string                  `json:"inviterName,omitempty"`
	InviterEmail    string                  `json:"inviterEmail,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	ExpiresAt       time.Time               `json:"expiresAt"`
	InvitationToken string                  `json:"invitationToken,omitempty"`
}

func toInvitationDTO(invitation *models.Invitation) invitationDTO {
	dto := invitationDTO{
		ID:        invitation.ID,
		Email:     invitation.Email,
		Role:      invitation.Role,
		Status:    invitation.Status,
		InvitedBy: invitation.InvitedBy,
		CreatedAt: invitation.CreatedAt,
		ExpiresAt: invitation.ExpiresAt,
	}
	if invitation.Inviter != nil {
		dto.InviterName = invitation.Inviter.DisplayName
		dto.InviterEmail = invitation.Inviter.Email
	}
	return dto
}

func (h *InviteHandler) resultDTO(result *services.InviteResult) invitationDTO {
	dto := toInvitationDTO(result.Invitation)
	if h.exposeToken {
		dto.InvitationToken = result.Token
	}
	return dto
}

// POST /api/auth/invite-user
func (h *InviteHandler) Create(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	result, err := h.invites.Create(requestContext(c), tenant, services.CreateInviteInput{
		Email: req.Email,
		Role:  models.UserRole(req.Role),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, h.resultDTO(result))
}

// GET /api/auth/invite-user
func (h *InviteHandler) ListPending(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	invitations, err := h.invites.ListPending(requestContext(c), tenant)
	if err != nil {
		response.Error(c, err)
		return
	}

	dtos := make([]invitationDTO, 0, len(invitations))
	for i := range invitations {
		dtos = append(dtos, toInvitationDTO(&invitations[i]))
	}
	response.Success(c, http.StatusOK, dtos)
}

// GET /api/auth/validate-invitation
func (h *InviteHandler) Validate(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.NewBadRequest("Invitation token is required"))
		return
	}

	preview, err := h.invites.Validate(requestContext(c), token)
	if err != nil {
		// This endpoint reports expiry as a validation failure rather than 410.
		if errors.Is(err, services.ErrInviteExpired) {
			err = appErrors.NewBadRequest("Invitation has expired")
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, preview)
}

// GET /api/auth/accept-invitation
func (h *InviteHandler) Details(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.NewBadRequest("Invitation token is required"))
		return
	}

	details, err := h.invites.Details(requestContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, details)
}

// POST /api/auth/accept-invitation
func (h *InviteHandler) Accept(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	result, err := h.invites.Accept(requestContext(c), accountID, services.AcceptInviteInput{
		Token:     req.InvitationToken,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Mobile:    req.Mobile,
		Timezone:  req.Timezone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// POST /api/invitations/:id/resend
func (h *InviteHandler) Resend(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	result, err := h.invites.Resend(requestContext(c), tenant, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.resultDTO(result))
}

// DELETE /api/invitations/:id
func (h *InviteHandler) Revoke(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	if err := h.invites.Revoke(requestContext(c), tenant, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
