package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/sanitize"
)

var ErrLeadNotFound = apperrors.New("LEAD_NOT_FOUND", "Lead not found", http.StatusNotFound)

// LeadInput carries lead fields. On update nil fields are left alone.
type LeadInput struct {
	Title             *string
	Description       *string
	ContactID         *string
	AssignedTo        *string
	Division          *models.Division
	Source            *models.LeadSource
	Status            *models.LeadStatus
	EstimatedValue    *float64
	Probability       *int
	Priority          *int
	ExpectedCloseDate *time.Time
	AddressLine1      *string
	AddressLine2      *string
	City              *string
	State             *string
	ZipCode           *string
	Tags              []string
	CustomFields      map[string]any
}

// LeadFilters narrows lead listings.
type LeadFilters struct {
	Status     models.LeadStatus
	Division   models.Division
	Source     models.LeadSource
	AssignedTo string
}

// LeadService manages the sales pipeline.
type LeadService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewLeadService constructs a LeadService.
func NewLeadService(db *gorm.DB, audit *AuditService) (*LeadService, error) {
	if db == nil {
		return nil, errors.New("lead service: db is required")
	}
	return &LeadService{db: db, audit: audit}, nil
}

// visibleLeads restricts estimators to leads assigned to them.
func visibleLeads(tx *gorm.DB, tenant Tenant) *gorm.DB {
	query := inOrganization(tx, tenant)
	if tenant.Role == models.RoleEstimator {
		query = query.Where("assigned_to = ?", tenant.UserID)
	}
	return query
}

// List returns the leads visible to the caller.
func (s *LeadService) List(ctx context.Context, tenant Tenant, filters LeadFilters, opts ListOptions) ([]models.Lead, int64, error) {
	page, perPage := opts.normalise()

	var (
		leads []models.Lead
		total int64
	)
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		filtered := func() *gorm.DB {
			query := visibleLeads(tx.Model(&models.Lead{}), tenant)
			if filters.Status != "" {
				query = query.Where("status = ?", filters.Status)
			}
			if filters.Division != "" {
				query = query.Where("division = ?", filters.Division)
			}
			if filters.Source != "" {
				query = query.Where("source = ?", filters.Source)
			}
			if filters.AssignedTo != "" {
				query = query.Where("assigned_to = ?", filters.AssignedTo)
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
			Find(&leads).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("lead service: list leads: %w", err)
	}
	return leads, total, nil
}

// Get returns a lead visible to the caller.
func (s *LeadService) Get(ctx context.Context, tenant Tenant, id string) (*models.Lead, error) {
	var lead models.Lead
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		return s.find(tx, tenant, &lead, id)
	})
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// Create stores a new lead. Status defaults to new and source to other.
func (s *LeadService) Create(ctx context.Context, tenant Tenant, input LeadInput) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	lead := &models.Lead{
		Status:       models.LeadStatusNew,
		Source:       models.LeadSourceOther,
		Tags:         []string{},
		CustomFields: datatypes.JSONMap{},
		CreatedBy:    tenant.UserID,
	}
	lead.OrganizationID = tenant.OrganizationID
	if err := applyLeadInput(lead, input); err != nil {
		return nil, err
	}
	if lead.Title == "" {
		return nil, apperrors.NewMissingFields([]string{"title"})
	}

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := s.checkReferences(tx, tenant, lead); err != nil {
			return err
		}
		return tx.Create(lead).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "lead.create", "leads", map[string]any{"lead_id": lead.ID}))
	return lead, nil
}

// Update edits a lead visible to the caller.
func (s *LeadService) Update(ctx context.Context, tenant Tenant, id string, input LeadInput) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	if tenant.Role == models.RoleEstimator && input.AssignedTo != nil {
		if assignee := optionalID(input.AssignedTo); assignee == nil || *assignee != tenant.UserID {
			return nil, apperrors.ErrForbidden.WithMessage("Estimators cannot reassign leads")
		}
	}

	var lead models.Lead
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := s.find(tx, tenant, &lead, id); err != nil {
			return err
		}
		if err := applyLeadInput(&lead, input); err != nil {
			return err
		}
		if lead.Title == "" {
			return apperrors.NewBadRequest("Lead title cannot be empty")
		}
		if err := s.checkReferences(tx, tenant, &lead); err != nil {
			return err
		}
		lead.UpdatedBy = stringPtr(tenant.UserID)
		return tx.Save(&lead).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "lead.update", "leads", map[string]any{"lead_id": lead.ID}))
	return &lead, nil
}

// Delete removes a lead.
func (s *LeadService) Delete(ctx context.Context, tenant Tenant, id string) error {
	ctx = ensureContext(ctx)

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		var lead models.Lead
		if err := s.find(tx, tenant, &lead, id); err != nil {
			return err
		}
		return inOrganization(tx, tenant).Where("id = ?", lead.ID).Delete(&models.Lead{}).Error
	})
	if err != nil {
		return translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "lead.delete", "leads", map[string]any{"lead_id": id}))
	return nil
}

func (s *LeadService) find(tx *gorm.DB, tenant Tenant, lead *models.Lead, id string) error {
	err := visibleLeads(tx, tenant).Where("id = ?", id).Take(lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrLeadNotFound
	}
	return err
}

func (s *LeadService) checkReferences(tx *gorm.DB, tenant Tenant, lead *models.Lead) error {
	if err := requireInOrganization(tx, tenant, &models.Contact{}, lead.ContactID); err != nil {
		return err
	}
	return requireInOrganization(tx, tenant, &models.User{}, lead.AssignedTo)
}

func applyLeadInput(lead *models.Lead, input LeadInput) error {
	if input.Title != nil {
		lead.Title = sanitize.Text(*input.Title)
	}
	if input.Description != nil {
		lead.Description = sanitize.Text(*input.Description)
	}
	if input.ContactID != nil {
		lead.ContactID = optionalID(input.ContactID)
	}
	if input.AssignedTo != nil {
		lead.AssignedTo = optionalID(input.AssignedTo)
	}
	if input.Division != nil {
		if *input.Division != "" && !input.Division.Valid() {
			return apperrors.NewBadRequest("Invalid division")
		}
		lead.Division = *input.Division
	}
	if input.Source != nil {
		if !input.Source.Valid() {
			return apperrors.NewBadRequest("Invalid lead source")
		}
		lead.Source = *input.Source
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return apperrors.NewBadRequest("Invalid lead status")
		}
		lead.Status = *input.Status
	}
	if input.EstimatedValue != nil {
		if *input.EstimatedValue < 0 {
			return apperrors.NewBadRequest("Estimated value cannot be negative")
		}
		lead.EstimatedValue = input.EstimatedValue
	}
	if input.Probability != nil {
		if *input.Probability < 0 || *input.Probability > 100 {
			return apperrors.NewBadRequest("Probability must be between 0 and 100")
		}
		lead.Probability = input.Probability
	}
	if input.Priority != nil {
		if *input.Priority < 1 || *input.Priority > 5 {
			return apperrors.NewBadRequest("Priority must be between 1 and 5")
		}
		lead.Priority = input.Priority
	}
	if input.ExpectedCloseDate != nil {
		lead.ExpectedCloseDate = input.ExpectedCloseDate
	}

	applyAddress(&lead.Address, input.AddressLine1, input.AddressLine2, input.City, input.State, input.ZipCode)
	if input.Tags != nil {
		lead.Tags = sanitize.TextSlice(input.Tags)
	}
	if input.CustomFields != nil {
		lead.CustomFields = datatypes.JSONMap(input.CustomFields)
	}
	return nil
}

func applyAddress(address *models.Address, line1, line2, city, state, zip *string) {
	for target, value := range map[*string]*string{
		&address.AddressLine1: line1,
		&address.AddressLine2: line2,
		&address.City:         city,
		&address.State:        state,
		&address.ZipCode:      zip,
	} {
		if value != nil {
			*target = sanitize.Text(*value)
		}
	}
}
