package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// LeadHandler serves the sales pipeline.
type LeadHandler struct {
	svc *services.LeadService
}

func NewLeadHandler(svc *services.LeadService) *LeadHandler {
	return &LeadHandler{svc: svc}
}

type leadRequest struct {
	Title             *string            `json:"title" validate:"omitempty,max=255"`
	Description       *string            `json:"description"`
	ContactID         *string            `json:"contact_id"`
	AssignedTo        *string            `json:"assigned_to"`
	Division          *models.Division   `json:"division"`
	Source            *models.LeadSource `json:"source"`
	Status            *models.LeadStatus `json:"status"`
	EstimatedValue    *float64           `json:"estimated_value"`
	Probability       *int               `json:"probability"`
	Priority          *int               `json:"priority"`
	ExpectedCloseDate *time.Time         `json:"expected_close_date"`
	addressRequest
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
}

func (r leadRequest) input() services.LeadInput {
	return services.LeadInput{
		Title:             r.Title,
		Description:       r.Description,
		ContactID:         r.ContactID,
		AssignedTo:        r.AssignedTo,
		Division:          r.Division,
		Source:            r.Source,
		Status:            r.Status,
		EstimatedValue:    r.EstimatedValue,
		Probability:       r.Probability,
		Priority:          r.Priority,
		ExpectedCloseDate: r.ExpectedCloseDate,
		AddressLine1:      r.AddressLine1,
		AddressLine2:      r.AddressLine2,
		City:              r.City,
		State:             r.State,
		ZipCode:           r.ZipCode,
		Tags:              r.Tags,
		CustomFields:      r.CustomFields,
	}
}

// GET /api/leads
func (h *LeadHandler) List(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	opts := listOptions(c)
	leads, total, err := h.svc.List(requestContext(c), tenant, services.LeadFilters{
		Status:     models.LeadStatus(c.Query("status")),
		Division:   models.Division(c.Query("division")),
		Source:     models.LeadSource(c.Query("source")),
		AssignedTo: c.Query("assigned_to"),
	}, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, leads, response.NewMeta(opts.Page, opts.PerPage, total))
}

// GET /api/leads/:id
func (h *LeadHandler) Get(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(requestContext(c), tenant, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, lead)
}

// POST /api/leads
func (h *LeadHandler) Create(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req leadRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lead, err := h.svc.Create(requestContext(c), tenant, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, lead)
}

// PATCH /api/leads/:id
func (h *LeadHandler) Update(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req leadRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lead, err := h.svc.Update(requestContext(c), tenant, c.Param("id"), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, lead)
}

// DELETE /api/leads/:id
func (h *LeadHandler) Delete(c *gin.Context) {
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
