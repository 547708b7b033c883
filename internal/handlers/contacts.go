package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// ContactHandler serves contacts and their communication log.
type ContactHandler struct {
	svc *services.ContactService
}

func NewContactHandler(svc *services.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// addressRequest is embedded by requests that carry a street address.
type addressRequest struct {
	AddressLine1 *string `json:"address_line_1" validate:"omitempty,max=255"`
	AddressLine2 *string `json:"address_line_2" validate:"omitempty,max=255"`
	City         *string `json:"city" validate:"omitempty,max=128"`
	State        *string `json:"state" validate:"omitempty,max=64"`
	ZipCode      *string `json:"zip_code" validate:"omitempty,max=16"`
}

type contactRequest struct {
	Type        *models.ContactType `json:"type"`
	DisplayName *string             `json:"display_name" validate:"omitempty,max=255"`
	FirstName   *string             `json:"first_name" validate:"omitempty,max=128"`
	LastName    *string             `json:"last_name" validate:"omitempty,max=128"`
	CompanyName *string             `json:"company_name" validate:"omitempty,max=255"`
	Email       *string             `json:"email" validate:"omitempty,max=255"`
	Phone       *string             `json:"phone" validate:"omitempty,max=32"`
	Mobile      *string             `json:"mobile" validate:"omitempty,max=32"`
	addressRequest
	Website      *string        `json:"website" validate:"omitempty,max=255"`
	Notes        *string        `json:"notes"`
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
	IsActive     *bool          `json:"is_active"`
}

func (r contactRequest) input() services.ContactInput {
	return services.ContactInput{
		Type:         r.Type,
		DisplayName:  r.DisplayName,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		CompanyName:  r.CompanyName,
		Email:        r.Email,
		Phone:        r.Phone,
		Mobile:       r.Mobile,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		ZipCode:      r.ZipCode,
		Website:      r.Website,
		Notes:        r.Notes,
		Tags:         r.Tags,
		CustomFields: r.CustomFields,
		IsActive:     r.IsActive,
	}
}

type activityRequest struct {
	Type       string     `json:"type" validate:"required"`
	Subject    string     `json:"subject" validate:"max=255"`
	Body       string     `json:"body"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// GET /api/contacts
func (h *ContactHandler) List(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	active, err := parseBoolQuery(c, "is_active")
	if err != nil {
		response.Error(c, err)
		return
	}

	opts := listOptions(c)
	contacts, total, err := h.svc.List(requestContext(c), tenant, services.ContactFilters{
		Type:     models.ContactType(c.Query("type")),
		IsActive: active,
		Query:    c.Query("q"),
	}, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, contacts, response.NewMeta(opts.Page, opts.PerPage, total))
}

// GET /api/contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	contact, err := h.svc.Get(requestContext(c), tenant, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, contact)
}

// POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req contactRequest
	if !bindAndValidate(c, &req) {
		return
	}

	contact, err := h.svc.Create(requestContext(c), tenant, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, contact)
}

// PATCH /api/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req contactRequest
	if !bindAndValidate(c, &req) {
		return
	}

	contact, err := h.svc.Update(requestContext(c), tenant, c.Param("id"), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, contact)
}

// DELETE /api/contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), tenant, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/contacts/:id/activities
func (h *ContactHandler) Activities(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	activities, err := h.svc.Activities(requestContext(c), tenant, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, activities)
}

// POST /api/contacts/:id/activities
func (h *ContactHandler) LogActivity(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req activityRequest
	if !bindAndValidate(c, &req) {
		return
	}

	activity, err := h.svc.LogActivity(requestContext(c), tenant, c.Param("id"), services.ActivityInput{
		Type:       models.CommunicationType(req.Type),
		Subject:    req.Subject,
		Body:       req.Body,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, activity)
}
