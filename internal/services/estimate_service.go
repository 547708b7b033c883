package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/sanitize"
)

var (
	ErrEstimateNotFound  = apperrors.New("ESTIMATE_NOT_FOUND", "Estimate not found", http.StatusNotFound)
	ErrEstimateLocked    = apperrors.New("ESTIMATE_LOCKED", "Only draft estimates can be edited", http.StatusConflict)
	ErrInvalidTransition = apperrors.New("INVALID_TRANSITION", "Estimate cannot move to that status", http.StatusConflict)
)

// EstimateInput carries estimate fields. On update nil fields are left alone.
type EstimateInput struct {
	Title       *string
	Description *string
	ContactID   *string
	LeadID      *string
	Division    *models.Division
	Subtotal    *float64
	TaxRate     *float64
	ValidUntil  *time.Time
	PreparedBy  *string
	Terms       *string
	Notes       *string
}

// EstimateFilters narrows estimate listings.
type EstimateFilters struct {
	Status    models.EstimateStatus
	Division  models.Division
	ContactID string
	LeadID    string
}

// EstimateService manages estimates and their approval workflow.
type EstimateService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

// NewEstimateService constructs an EstimateService.
func NewEstimateService(db *gorm.DB, audit *AuditService) (*EstimateService, error) {
	if db == nil {
		return nil, errors.New("estimate service: db is required")
	}
	return &EstimateService{db: db, audit: audit, now: time.Now}, nil
}

// visibleEstimates restricts estimators to estimates they prepared.
func visibleEstimates(tx *gorm.DB, tenant Tenant) *gorm.DB {
	query := inOrganization(tx, tenant)
	if tenant.Role == models.RoleEstimator {
		query = query.Where("prepared_by = ?", tenant.UserID)
	}
	return query
}

// List returns the estimates visible to the caller.
func (s *EstimateService) List(ctx context.Context, tenant Tenant, filters EstimateFilters, opts ListOptions) ([]models.Estimate, int64, error) {
	page, perPage := opts.normalise()

	var (
		estimates []models.Estimate
		total     int64
	)
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		filtered := func() *gorm.DB {
			query := visibleEstimates(tx.Model(&models.Estimate{}), tenant)
			if filters.Status != "" {
				query = query.Where("status = ?", filters.Status)
			}
			if filters.Division != "" {
				query = query.Where("division = ?", filters.Division)
			}
			if filters.ContactID != "" {
				query = query.Where("contact_id = ?", filters.ContactID)
			}
			if filters.LeadID != "" {
				query = query.Where("lead_id = ?", filters.LeadID)
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
			Find(&estimates).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("estimate service: list estimates: %w", err)
	}
	return estimates, total, nil
}

// Get returns an estimate visible to the caller.
func (s *EstimateService) Get(ctx context.Context, tenant Tenant, id string) (*models.Estimate, error) {
	var estimate models.Estimate
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		return s.find(tx, tenant, &estimate, id)
	})
	if err != nil {
		return nil, err
	}
	return &estimate, nil
}

// Create stores a draft estimate with a generated number.
func (s *EstimateService) Create(ctx context.Context, tenant Tenant, input EstimateInput) (*models.Estimate, error) {
	ctx = ensureContext(ctx)

	estimate := &models.Estimate{
		Status:     models.EstimateStatusDraft,
		PreparedBy: tenant.UserID,
		CreatedBy:  tenant.UserID,
	}
	estimate.OrganizationID = tenant.OrganizationID
	if err := s.applyInput(tenant, estimate, input); err != nil {
		return nil, err
	}

	var missing []string
	if estimate.Title == "" {
		missing = append(missing, "title")
	}
	if estimate.ContactID == "" {
		missing = append(missing, "contact_id")
	}
	if estimate.Division == "" {
		missing = append(missing, "division")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMissingFields(missing)
	}

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := s.checkReferences(tx, tenant, estimate); err != nil {
			return err
		}
		number, err := reserveDocumentNumber(tx, tenant, &models.Estimate{}, "estimate_number", counterEstimates, "E", s.now())
		if err != nil {
			return err
		}
		estimate.EstimateNumber = number
		return tx.Create(estimate).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "estimate.create", "estimates", map[string]any{
		"estimate_id":     estimate.ID,
		"estimate_number": estimate.EstimateNumber,
	}))
	return estimate, nil
}

// Update edits a draft estimate. Approval locks it like sending does.
func (s *EstimateService) Update(ctx context.Context, tenant Tenant, id string, input EstimateInput) (*models.Estimate, error) {
	ctx = ensureContext(ctx)

	var estimate models.Estimate
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := s.find(tx, tenant, &estimate, id); err != nil {
			return err
		}
		if estimate.Status != models.EstimateStatusDraft || estimate.ApprovedBy != nil {
			return ErrEstimateLocked
		}
		if err := s.applyInput(tenant, &estimate, input); err != nil {
			return err
		}
		if estimate.Title == "" || estimate.ContactID == "" {
			return apperrors.NewBadRequest("Estimate title and contact cannot be empty")
		}
		if err := s.checkReferences(tx, tenant, &estimate); err != nil {
			return err
		}
		estimate.UpdatedBy = stringPtr(tenant.UserID)
		return tx.Save(&estimate).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "estimate.update", "estimates", map[string]any{"estimate_id": estimate.ID}))
	return &estimate, nil
}

// Delete removes an estimate.
func (s *EstimateService) Delete(ctx context.Context, tenant Tenant, id string) error {
	ctx = ensureContext(ctx)

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		var estimate models.Estimate
		if err := s.find(tx, tenant, &estimate, id); err != nil {
			return err
		}
		return inOrganization(tx, tenant).Where("id = ?", estimate.ID).Delete(&models.Estimate{}).Error
	})
	if err != nil {
		return translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "estimate.delete", "estimates", map[string]any{"estimate_id": id}))
	return nil
}

// Send moves a draft estimate to sent.
func (s *EstimateService) Send(ctx context.Context, tenant Tenant, id string) (*models.Estimate, error) {
	return s.transition(ctx, tenant, id, "estimate.send", []models.EstimateStatus{models.EstimateStatusDraft},
		func(estimate *models.Estimate, now time.Time) map[string]any {
			estimate.Status = models.EstimateStatusSent
			estimate.SentAt = &now
			return map[string]any{"status": estimate.Status, "sent_at": now}
		})
}

// MarkViewed records that the customer opened a sent estimate.
func (s *EstimateService) MarkViewed(ctx context.Context, tenant Tenant, id string) (*models.Estimate, error) {
	return s.transition(ctx, tenant, id, "estimate.view", []models.EstimateStatus{models.EstimateStatusSent},
		func(estimate *models.Estimate, now time.Time) map[string]any {
			estimate.Status = models.EstimateStatusViewed
			estimate.ViewedAt = &now
			return map[string]any{"status": estimate.Status, "viewed_at": now}
		})
}

// Accept records the customer's acceptance.
func (s *EstimateService) Accept(ctx context.Context, tenant Tenant, id string) (*models.Estimate, error) {
	return s.transition(ctx, tenant, id, "estimate.accept", []models.EstimateStatus{models.EstimateStatusSent, models.EstimateStatusViewed},
		func(estimate *models.Estimate, now time.Time) map[string]any {
			estimate.Status = models.EstimateStatusAccepted
			estimate.AcceptedAt = &now
			return map[string]any{"status": estimate.Status, "accepted_at": now}
		})
}

// Reject records the customer's rejection.
func (s *EstimateService) Reject(ctx context.Context, tenant Tenant, id string) (*models.Estimate, error) {
	return s.transition(ctx, tenant, id, "estimate.reject", []models.EstimateStatus{models.EstimateStatusSent, models.EstimateStatusViewed},
		func(estimate *models.Estimate, now time.Time) map[string]any {
			estimate.Status = models.EstimateStatusRejected
			estimate.RejectedAt = &now
			return map[string]any{"status": estimate.Status, "rejected_at": now}
		})
}

// Approve records internal sign-off. Only owners and estimating managers may
// approve, and rejected or expired estimates cannot be approved.
func (s *EstimateService) Approve(ctx context.Context, tenant Tenant, id string) (*models.Estimate, error) {
	if tenant.Role != models.RoleOwner && tenant.Role != models.RoleEstimatingManager {
		return nil, apperrors.ErrForbidden.WithMessage("Only owners and estimating managers can approve estimates")
	}
	approver := tenant.UserID
	return s.transition(ctx, tenant, id, "estimate.approve",
		[]models.EstimateStatus{models.EstimateStatusDraft, models.EstimateStatusSent, models.EstimateStatusViewed, models.EstimateStatusAccepted},
		func(estimate *models.Estimate, _ time.Time) map[string]any {
			estimate.ApprovedBy = &approver
			return map[string]any{"approved_by": approver}
		})
}

// ExpireStale marks sent or viewed estimates past valid_until as expired.
func (s *EstimateService) ExpireStale(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ensureContext(ctx)).Model(&models.Estimate{}).
		Where("status IN ? AND valid_until IS NOT NULL AND valid_until < ?",
			[]models.EstimateStatus{models.EstimateStatusSent, models.EstimateStatusViewed}, s.now()).
		Update("status", models.EstimateStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("estimate service: expire estimates: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *EstimateService) transition(
	ctx context.Context,
	tenant Tenant,
	id, action string,
	from []models.EstimateStatus,
	apply func(*models.Estimate, time.Time) map[string]any,
) (*models.Estimate, error) {
	ctx = ensureContext(ctx)

	var (
		estimate models.Estimate
		previous models.EstimateStatus
	)
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := s.find(tx, tenant, &estimate, id); err != nil {
			return err
		}
		previous = estimate.Status
		if !containsStatus(from, estimate.Status) {
			return ErrInvalidTransition.WithDetails(map[string]any{"status": estimate.Status})
		}

		updates := apply(&estimate, s.now())
		updates["updated_by"] = tenant.UserID
		estimate.UpdatedBy = stringPtr(tenant.UserID)

		// Conditional on the observed status: a concurrent transition leaves no rows to update.
		result := tx.Model(&models.Estimate{}).
			Where("id = ? AND status = ?", estimate.ID, previous).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, action, "estimates", map[string]any{
		"estimate_id": estimate.ID,
		"from":        string(previous),
		"to":          string(estimate.Status),
	}))
	return &estimate, nil
}

func (s *EstimateService) find(tx *gorm.DB, tenant Tenant, estimate *models.Estimate, id string) error {
	err := visibleEstimates(tx, tenant).Where("id = ?", id).Take(estimate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEstimateNotFound
	}
	return err
}

func (s *EstimateService) checkReferences(tx *gorm.DB, tenant Tenant, estimate *models.Estimate) error {
	if err := requireInOrganization(tx, tenant, &models.Contact{}, &estimate.ContactID); err != nil {
		return err
	}
	if err := requireInOrganization(tx, tenant, &models.Lead{}, estimate.LeadID); err != nil {
		return err
	}
	return requireInOrganization(tx, tenant, &models.User{}, &estimate.PreparedBy)
}

func (s *EstimateService) applyInput(tenant Tenant, estimate *models.Estimate, input EstimateInput) error {
	if input.Title != nil {
		estimate.Title = sanitize.Text(*input.Title)
	}
	if input.Description != nil {
		estimate.Description = sanitize.Text(*input.Description)
	}
	if input.ContactID != nil {
		estimate.ContactID = strings.TrimSpace(*input.ContactID)
	}
	if input.LeadID != nil {
		estimate.LeadID = optionalID(input.LeadID)
	}
	if input.Division != nil {
		if !input.Division.Valid() {
			return apperrors.NewBadRequest("Invalid division")
		}
		estimate.Division = *input.Division
	}
	if input.Subtotal != nil {
		if *input.Subtotal < 0 {
			return apperrors.NewBadRequest("Subtotal cannot be negative")
		}
		estimate.Subtotal = *input.Subtotal
	}
	if input.TaxRate != nil {
		if *input.TaxRate < 0 || *input.TaxRate > 100 {
			return apperrors.NewBadRequest("Tax rate must be between 0 and 100")
		}
		estimate.TaxRate = *input.TaxRate
	}
	if input.ValidUntil != nil {
		estimate.ValidUntil = input.ValidUntil
	}
	if input.PreparedBy != nil {
		preparer := optionalID(input.PreparedBy)
		if preparer == nil {
			return apperrors.NewBadRequest("prepared_by cannot be empty")
		}
		if tenant.Role == models.RoleEstimator && *preparer != tenant.UserID {
			return apperrors.ErrForbidden.WithMessage("Estimators can only prepare their own estimates")
		}
		estimate.PreparedBy = *preparer
	}
	if input.Terms != nil {
		estimate.Terms = strings.TrimSpace(sanitize.HTML(*input.Terms))
	}
	if input.Notes != nil {
		estimate.Notes = sanitize.Text(*input.Notes)
	}

	estimate.TaxAmount, estimate.TotalAmount = estimateTotals(estimate.Subtotal, estimate.TaxRate)
	return nil
}

// estimateTotals returns tax and total for a subtotal and a percentage tax rate.
func estimateTotals(subtotal, taxRate float64) (tax, total float64) {
	tax = roundCents(subtotal * taxRate / 100)
	return tax, roundCents(subtotal + tax)
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}

func containsStatus(statuses []models.EstimateStatus, status models.EstimateStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}
