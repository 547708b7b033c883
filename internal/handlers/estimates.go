package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// EstimateHandler serves estimates and their approval workflow.
type EstimateHandler struct {
	svc *services.EstimateService
}

func NewEstimateHandler(svc *services.EstimateService) *EstimateHandler {
	return &EstimateHandler{svc: svc}
}

type estimateRequest struct {
	Title       *string          `json:"title" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	ContactID   *string          `json:"contact_id"`
	LeadID      *string          `json:"lead_id"`
	Division    *models.Division `json:"division"`
	Subtotal    *float64         `json:"subtotal"`
	TaxRate     *float64         `json:"tax_rate"`
	ValidUntil  *time.Time       `json:"valid_until"`
	PreparedBy  *string          `json:"prepared_by"`
	Terms       *string          `json:"terms"`
	Notes       *string          `json:"notes"`
}

func (r estimateRequest) input() services.EstimateInput {
	return services.EstimateInput{
		Title:       r.Title,
		Description: r.Description,
		ContactID:   r.ContactID,
		LeadID:      r.LeadID,
		Division:    r.Division,
		Subtotal:    r.Subtotal,
		TaxRate:     r.TaxRate,
		ValidUntil:  r.ValidUntil,
		PreparedBy:  r.PreparedBy,
		Terms:       r.Terms,
		Notes:       r.Notes,
	}
}

// GET /api/estimates
func (h *EstimateHandler) List(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	opts := listOptions(c)
	estimates, total, err := h.svc.List(requestContext(c), tenant, services.EstimateFilters{
		Status:    models.EstimateStatus(c.Query("status")),
		Division:  models.Division(c.Query("division")),
		ContactID: c.Query("contact_id"),
		LeadID:    c.Query("lead_id"),
	}, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, estimates, response.NewMeta(opts.Page, opts.PerPage, total))
}

// GET /api/estimates/:id
func (h *EstimateHandler) Get(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	estimate, err := h.svc.Get(requestContext(c), tenant, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, estimate)
}

// POST /api/estimates
func (h *EstimateHandler) Create(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req estimateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	estimate, err := h.svc.Create(requestContext(c), tenant, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, estimate)
}

// PATCH /api/estimates/:id
func (h *EstimateHandler) Update(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req estimateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	estimate, err := h.svc.Update(requestContext(c), tenant, c.Param("id"), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, estimate)
}

// DELETE /api/estimates/:id
func (h *EstimateHandler) Delete(c *gin.Context) {
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

type estimateTransition func(ctx context.Context, tenant services.Tenant, id string) (*models.Estimate, error)

func (h *EstimateHandler) transition(c *gin.Context, apply estimateTransition) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	estimate, err := apply(requestContext(c), tenant, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, estimate)
}

// POST /api/estimates/:id/send
func (h *EstimateHandler) Send(c *gin.Context) { h.transition(c, h.svc.Send) }

// POST /api/estimates/:id/viewed
func (h *EstimateHandler) MarkViewed(c *gin.Context) { h.transition(c, h.svc.MarkViewed) }

// POST /api/estimates/:id/accept
func (h *EstimateHandler) Accept(c *gin.Context) { h.transition(c, h.svc.Accept) }

// POST /api/estimates/:id/reject
func (h *EstimateHandler) Reject(c *gin.Context) { h.transition(c, h.svc.Reject) }

// POST /api/estimates/:id/approve
func (h *EstimateHandler) Approve(c *gin.Context) { h.transition(c, h.svc.Approve) }
