package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// OrganizationHandler serves the caller's organization.
type OrganizationHandler struct {
	svc *services.OrganizationService
}

func NewOrganizationHandler(svc *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{svc: svc}
}

type updateOrganizationRequest struct {
	Name         *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Phone        *string        `json:"phone" validate:"omitempty,max=32"`
	AddressLine1 *string        `json:"address_line1"`
	AddressLine2 *string        `json:"address_line2"`
	City         *string        `json:"city"`
	State        *string        `json:"state"`
	ZipCode      *string        `json:"zip_code"`
	WebsiteURL   *string        `json:"website_url"`
	LogoURL      *string        `json:"logo_url"`
	TaxID        *string        `json:"tax_id"`
	Settings     map[string]any `json:"settings"`
}

// GET /api/organization
func (h *OrganizationHandler) Get(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	org, err := h.svc.Get(requestContext(c), tenant)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, org)
}

// PATCH /api/organization
func (h *OrganizationHandler) Update(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req updateOrganizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.svc.Update(requestContext(c), tenant, services.UpdateOrganizationInput{
		Name:         req.Name,
		Phone:        req.Phone,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		WebsiteURL:   req.WebsiteURL,
		LogoURL:      req.LogoURL,
		TaxID:        req.TaxID,
		Settings:     req.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, org)
}

// GET /api/organization/stats
func (h *OrganizationHandler) Stats(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(requestContext(c), tenant)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}
