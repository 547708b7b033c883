package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// JobHandler serves jobs and their status workflow.
type JobHandler struct {
	svc *services.JobService
}

func NewJobHandler(svc *services.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

type jobRequest struct {
	JobNumber           *string           `json:"job_number" validate:"omitempty,max=32"`
	Title               *string           `json:"title" validate:"omitempty,max=255"`
	Description         *string           `json:"description"`
	ContactID           *string           `json:"contact_id"`
	LeadID              *string           `json:"lead_id"`
	Division            *models.Division  `json:"division"`
	Status              *models.JobStatus `json:"status"`
	ContractValue       *float64          `json:"contract_value"`
	StartDate           *time.Time        `json:"start_date"`
	ScheduledCompletion *time.Time        `json:"scheduled_completion"`
	ActualCompletion    *time.Time        `json:"actual_completion"`
	ProjectManagerID    *string           `json:"project_manager_id"`
	FieldManagerID      *string           `json:"field_manager_id"`
	Notes               *string           `json:"notes"`
	addressRequest
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
}

func (r jobRequest) input() services.JobInput {
	return services.JobInput{
		JobNumber:           r.JobNumber,
		Title:               r.Title,
		Description:         r.Description,
		ContactID:           r.ContactID,
		LeadID:              r.LeadID,
		Division:            r.Division,
		Status:              r.Status,
		ContractValue:       r.ContractValue,
		StartDate:           r.StartDate,
		ScheduledCompletion: r.ScheduledCompletion,
		ActualCompletion:    r.ActualCompletion,
		ProjectManagerID:    r.ProjectManagerID,
		FieldManagerID:      r.FieldManagerID,
		Notes:               r.Notes,
		AddressLine1:        r.AddressLine1,
		AddressLine2:        r.AddressLine2,
		City:                r.City,
		State:               r.State,
		ZipCode:             r.ZipCode,
		Tags:                r.Tags,
		CustomFields:        r.CustomFields,
	}
}

type jobStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// GET /api/jobs
func (h *JobHandler) List(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	opts := listOptions(c)
	jobs, total, err := h.svc.List(requestContext(c), tenant, services.JobFilters{
		Status:    models.JobStatus(c.Query("status")),
		Division:  models.Division(c.Query("division")),
		ContactID: c.Query("contact_id"),
	}, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, jobs, response.NewMeta(opts.Page, opts.PerPage, total))
}

// GET /api/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	job, err := h.svc.Get(requestContext(c), tenant, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, job)
}

// POST /api/jobs
func (h *JobHandler) Create(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req jobRequest
	if !bindAndValidate(c, &req) {
		return
	}

	job, err := h.svc.Create(requestContext(c), tenant, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, job)
}

// PATCH /api/jobs/:id
func (h *JobHandler) Update(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req jobRequest
	if !bindAndValidate(c, &req) {
		return
	}

	job, err := h.svc.Update(requestContext(c), tenant, c.Param("id"), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, job)
}

// PATCH /api/jobs/:id/status
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	tenant, ok := tenantOrAbort(c)
	if !ok {
		return
	}

	var req jobStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	job, err := h.svc.UpdateStatus(requestContext(c), tenant, c.Param("id"), models.JobStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, job)
}

// DELETE /api/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
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
