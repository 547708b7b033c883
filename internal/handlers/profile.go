package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// ProfileHandler exposes the caller's own membership profile.
type ProfileHandler struct {
	users *services.UserService
}

func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// Unlisted fields are dropped by the decoder.
type updateProfileRequest struct {
	FirstName               *string                         `json:"first_name" validate:"omitempty,max=128"`
	LastName                *string                         `json:"last_name" validate:"omitempty,max=128"`
	Phone                   *string                         `json:"phone" validate:"omitempty,max=32"`
	Mobile                  *string                         `json:"mobile" validate:"omitempty,max=32"`
	Title                   *string                         `json:"title" validate:"omitempty,max=128"`
	Timezone                *string                         `json:"timezone" validate:"omitempty,max=64"`
	NotificationPreferences *models.NotificationPreferences `json:"notification_preferences"`
}

// GET /api/auth/user
func (h *ProfileHandler) Get(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	profile, err := h.users.Profile(requestContext(c), tenant)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// PATCH /api/auth/user
func (h *ProfileHandler) Update(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(requestContext(c), tenant, services.UpdateProfileInput{
		FirstName:               req.FirstName,
		LastName:                req.LastName,
		Phone:                   req.Phone,
		Mobile:                  req.Mobile,
		Title:                   req.Title,
		Timezone:                req.Timezone,
		NotificationPreferences: req.NotificationPreferences,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
