package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// RegistrationHandler serves self-service organization sign-up.
type RegistrationHandler struct {
	svc *services.RegistrationService
}

func NewRegistrationHandler(svc *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// Required fields are checked by the service so the missing list covers every field at once.
type registerOrganizationRequest struct {
	OrganizationName string `json:"organizationName"`
	OrganizationSlug string `json:"organizationSlug"`
	OwnerFirstName   string `json:"ownerFirstName"`
	OwnerLastName    string `json:"ownerLastName"`
	OwnerEmail       string `json:"ownerEmail"`
	Phone            string `json:"phone"`
	AddressLine1     string `json:"addressLine1"`
	City             string `json:"city"`
	State            string `json:"state"`
	ZipCode          string `json:"zipCode"`
}

// POST /api/auth/register-organization
func (h *RegistrationHandler) Register(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	var req registerOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	org, err := h.svc.Register(requestContext(c), accountID, services.RegisterOrganizationInput{
		OrganizationName: req.OrganizationName,
		OrganizationSlug: req.OrganizationSlug,
		OwnerFirstName:   req.OwnerFirstName,
		OwnerLastName:    req.OwnerLastName,
		OwnerEmail:       req.OwnerEmail,
		Phone:            req.Phone,
		AddressLine1:     req.AddressLine1,
		City:             req.City,
		State:            req.State,
		ZipCode:          req.ZipCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"organizationId": org.ID,
		"message":        "Organization registered successfully",
	})
}
