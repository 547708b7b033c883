package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/sanitize"
)

var (
	ErrJobNotFound    = apperrors.New("JOB_NOT_FOUND", "Job not found", http.StatusNotFound)
	ErrJobNumberTaken = apperrors.New("JOB_NUMBER_TAKEN", "Job number already exists", http.StatusConflict)
)

// JobInput carries job fields. On update nil fields are left alone.
type JobInput struct {
	JobNumber           *string
	Title               *string
	Description         *string
	ContactID           *string
	LeadID              *string
	Division            *models.Division
	Status              *models.JobStatus
	ContractValue       *float64
	StartDate           *time.Time
	ScheduledCompletion *time.Time
	ActualCompletion    *time.Time
	ProjectManagerID    *string
	FieldManagerID      *string
	Notes               *string
	AddressLine1        *string
	AddressLine2        *string
	City                *string
	State               *string
	ZipCode             *string
	Tags                []string
	CustomFields        map[string]any
}

// JobFilters narrows job listings.
type JobFilters struct {
	Status    models.JobStatus
	Division  models.Division
	ContactID string
}

// JobService manages jobs.
type JobService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

// NewJobService constructs a JobService.
func NewJobService(db *gorm.DB, audit *AuditService) (*JobService, error) {
	if db == nil {
		return nil, errors.New("job service: db is required")
	}
	return &JobService{db: db, audit: audit, now: time.Now}, nil
}

// visibleJobs restricts field management to jobs they manage.
func visibleJobs(tx *gorm.DB, tenant Tenant) *gorm.DB {
	query := inOrganization(tx, tenant)
	if tenant.Role == models.RoleFieldManagement {
		query = query.Where("(field_manager_id = ? OR project_manager_id = ?)", tenant.UserID, tenant.UserID)
	}
	return query
}

// List returns the jobs visible to the caller.
func (s *JobService) List(ctx context.Context, tenant Tenant, filters JobFilters, opts ListOptions) ([]models.Job, int64, error) {
	page, perPage := opts.normalise()

	var (
		jobs  []models.Job
		total int64
	)
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		filtered := func() *gorm.DB {
			query := visibleJobs(tx.Model(&models.Job{}), tenant)
			if filters.Status != "" {
				query = query.Where("status = ?", filters.Status)
			}
			if filters.Division != "" {
				query = query.Where("division = ?", filters.Division)
			}
			if filters.ContactID != "" {
				query = query.Where("contact_id = ?", filters.ContactID)
			}
			return query
		}
		if err := filtered().Count(&total).Error; err != nil {
			return err
		}
		return filtered().
			Order("created_at DESC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			Find(&jobs).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("job service: list jobs: %w", err)
	}
	return jobs, total, nil
}

// Get returns a job visible to the caller.
func (s *JobService) Get(ctx context.Context, tenant Tenant, id string) (*models.Job, error) {
	var job models.Job
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		return s.find(tx, tenant, &job, id)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Create stores a new job, numbering it when no job number is supplied.
func (s *JobService) Create(ctx context.Context, tenant Tenant, input JobInput) (*models.Job, error) {
	ctx = ensureContext(ctx)

	job := &models.Job{
		Status:       models.JobStatusPending,
		Tags:         []string{},
		CustomFields: datatypes.JSONMap{},
		CreatedBy:    tenant.UserID,
	}
	job.OrganizationID = tenant.OrganizationID
	if err := s.applyInput(job, input); err != nil {
		return nil, err
	}

	var missing []string
	if job.Title == "" {
		missing = append(missing, "title")
	}
	if job.ContactID == "" {
		missing = append(missing, "contact_id")
	}
	if job.Division == "" {
		missing = append(missing, "division")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMissingFields(missing)
	}

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := s.checkReferences(tx, tenant, job); err != nil {
			return err
		}
		if job.JobNumber == "" {
			number, err := reserveDocumentNumber(tx, tenant, &models.Job{}, "job_number", counterJobs, "J", s.now())
			if err != nil {
				return err
			}
			job.JobNumber = number
		}
		return tx.Create(job).Error
	})
	if err != nil {
		return nil, translateDBError(err, ErrJobNumberTaken)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "job.create", "jobs", map[string]any{
		"job_id":     job.ID,
		"job_number": job.JobNumber,
	}))
	return job, nil
}

// Update edits a job visible to the caller.
func (s *JobService) Update(ctx context.Context, tenant Tenant, id string, input JobInput) (*models.Job, error) {
	ctx = ensureContext(ctx)

	var job models.Job
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := s.find(tx, tenant, &job, id); err != nil {
			return err
		}
		if err := s.applyInput(&job, input); err != nil {
			return err
		}
		if job.Title == "" || job.ContactID == "" || job.JobNumber == "" {
			return apperrors.NewBadRequest("Job title, contact and number cannot be empty")
		}
		if err := s.checkReferences(tx, tenant, &job); err != nil {
			return err
		}
		job.UpdatedBy = stringPtr(tenant.UserID)
		return tx.Save(&job).Error
	})
	if err != nil {
		return nil, translateDBError(err, ErrJobNumberTaken)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "job.update", "jobs", map[string]any{"job_id": job.ID}))
	return &job, nil
}

// UpdateStatus moves a job to status. Completing a job stamps its actual
// completion date unless one was recorded already.
func (s *JobService) UpdateStatus(ctx context.Context, tenant Tenant, id string, status models.JobStatus) (*models.Job, error) {
	ctx = ensureContext(ctx)

	if !status.Valid() {
		return nil, apperrors.NewBadRequest("Invalid job status")
	}

	var (
		job      models.Job
		previous models.JobStatus
	)
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := s.find(tx, tenant, &job, id); err != nil {
			return err
		}
		previous = job.Status

		updates := map[string]any{"status": status, "updated_by": tenant.UserID}
		if status == models.JobStatusCompleted && job.ActualCompletion == nil {
			now := s.now()
			job.ActualCompletion = &now
			updates["actual_completion"] = now
		}
		job.Status = status
		job.UpdatedBy = stringPtr(tenant.UserID)
		return tx.Model(&job).Updates(updates).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "job.status.update", "jobs", map[string]any{
		"job_id": job.ID,
		"from":   string(previous),
		"to":     string(status),
	}))
	return &job, nil
}

// Delete removes a job.
func (s *JobService) Delete(ctx context.Context, tenant Tenant, id string) error {
	ctx = ensureContext(ctx)

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		var job models.Job
		if err := s.find(tx, tenant, &job, id); err != nil {
			return err
		}
		return inOrganization(tx, tenant).Where("id = ?", job.ID).Delete(&models.Job{}).Error
	})
	if err != nil {
		return translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "job.delete", "jobs", map[string]any{"job_id": id}))
	return nil
}

func (s *JobService) find(tx *gorm.DB, tenant Tenant, job *models.Job, id string) error {
	err := visibleJobs(tx, tenant).Where("id = ?", id).Take(job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrJobNotFound
	}
	return err
}

func (s *JobService) checkReferences(tx *gorm.DB, tenant Tenant, job *models.Job) error {
	if err := requireInOrganization(tx, tenant, &models.Contact{}, &job.ContactID); err != nil {
		return err
	}
	if err := requireInOrganization(tx, tenant, &models.Lead{}, job.LeadID); err != nil {
		return err
	}
	if err := requireInOrganization(tx, tenant, &models.User{}, job.ProjectManagerID); err != nil {
		return err
	}
	return requireInOrganization(tx, tenant, &models.User{}, job.FieldManagerID)
}

func (s *JobService) applyInput(job *models.Job, input JobInput) error {
	if input.JobNumber != nil {
		job.JobNumber = strings.ToUpper(sanitize.Text(*input.JobNumber))
	}
	if input.Title != nil {
		job.Title = sanitize.Text(*input.Title)
	}
	if input.Description != nil {
		job.Description = sanitize.Text(*input.Description)
	}
	if input.ContactID != nil {
		job.ContactID = strings.TrimSpace(*input.ContactID)
	}
	if input.LeadID != nil {
		job.LeadID = optionalID(input.LeadID)
	}
	if input.Division != nil {
		if !input.Division.Valid() {
			return apperrors.NewBadRequest("Invalid division")
		}
		job.Division = *input.Division
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return apperrors.NewBadRequest("Invalid job status")
		}
		job.Status = *input.Status
	}
	if input.ContractValue != nil {
		if *input.ContractValue < 0 {
			return apperrors.NewBadRequest("Contract value cannot be negative")
		}
		job.ContractValue = input.ContractValue
	}
	if input.StartDate != nil {
		job.StartDate = input.StartDate
	}
	if input.ScheduledCompletion != nil {
		job.ScheduledCompletion = input.ScheduledCompletion
	}
	if input.ActualCompletion != nil {
		job.ActualCompletion = input.ActualCompletion
	}
	if job.StartDate != nil && job.ScheduledCompletion != nil && job.ScheduledCompletion.Before(*job.StartDate) {
		return apperrors.NewBadRequest("Scheduled completion cannot precede the start date")
	}
	if input.ProjectManagerID != nil {
		job.ProjectManagerID = optionalID(input.ProjectManagerID)
	}
	if input.FieldManagerID != nil {
		job.FieldManagerID = optionalID(input.FieldManagerID)
	}
	if input.Notes != nil {
		job.Notes = sanitize.Text(*input.Notes)
	}

	applyAddress(&job.Address, input.AddressLine1, input.AddressLine2, input.City, input.State, input.ZipCode)
	if input.Tags != nil {
		job.Tags = sanitize.TextSlice(input.Tags)
	}
	if input.CustomFields != nil {
		job.CustomFields = datatypes.JSONMap(input.CustomFields)
	}
	return nil
}
