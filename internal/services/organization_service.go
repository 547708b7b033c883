package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/cache"
	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
	"github.com/charlesng35/exteriorcrm/pkg/sanitize"
)

const organizationStatsTTL = 30 * time.Second

// ErrOrganizationNotFound indicates the requested organization does not exist.
var ErrOrganizationNotFound = apperrors.ErrNotFound.WithMessage("Organization not found")

// UpdateOrganizationInput represents mutable organization fields.
type UpdateOrganizationInput struct {
	Name         *string
	Phone        *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	ZipCode      *string
	WebsiteURL   *string
	LogoURL      *string
	TaxID        *string
	Settings     map[string]any
}

// OrganizationStats is the dashboard summary of an organization.
type OrganizationStats struct {
	TotalUsers         int64 `json:"total_users"`
	ActiveUsers        int64 `json:"active_users"`
	PendingInvitations int64 `json:"pending_invitations"`
	TotalContacts      int64 `json:"total_contacts"`
	TotalLeads         int64 `json:"total_leads"`
	TotalJobs          int64 `json:"total_jobs"`
	TotalEstimates     int64 `json:"total_estimates"`
}

// OrganizationService reads and edits the caller's organization.
type OrganizationService struct {
	db    *gorm.DB
	cache cache.Store
	audit *AuditService
	now   func() time.Time
}

// NewOrganizationService constructs an OrganizationService. store may be nil,
// in which case stats are computed on every call.
func NewOrganizationService(db *gorm.DB, store cache.Store, audit *AuditService) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	return &OrganizationService{db: db, cache: store, audit: audit, now: time.Now}, nil
}

// Get returns the tenant's organization.
func (s *OrganizationService) Get(ctx context.Context, tenant Tenant) (*models.Organization, error) {
	var org models.Organization
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		return tx.Where("id = ?", tenant.OrganizationID).Take(&org).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get organization: %w", err)
	}
	return &org, nil
}

// Update applies the supplied changes to the tenant's organization.
func (s *OrganizationService) Update(ctx context.Context, tenant Tenant, input UpdateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	if input.Name != nil {
		name := sanitize.Text(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("Organization name cannot be empty")
		}
		updates["name"] = name
	}
	for column, value := range map[string]*string{
		"phone":          input.Phone,
		"address_line_1": input.AddressLine1,
		"address_line_2": input.AddressLine2,
		"city":           input.City,
		"state":          input.State,
		"zip_code":       input.ZipCode,
		"tax_id":         input.TaxID,
	} {
		if value != nil {
			updates[column] = sanitize.Text(*value)
		}
	}
	for column, value := range map[string]*string{
		"website_url": input.WebsiteURL,
		"logo_url":    input.LogoURL,
	} {
		if value == nil {
			continue
		}
		link := strings.TrimSpace(*value)
		if link != "" && !isWebURL(link) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("%s must be an http or https URL", column))
		}
		updates[column] = link
	}

	var org models.Organization
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", tenant.OrganizationID).Take(&org).Error; err != nil {
			return err
		}

		if input.Settings != nil {
			merged := datatypes.JSONMap{}
			for key, value := range org.Settings {
				merged[key] = value
			}
			for key, value := range input.Settings {
				merged[key] = value
			}
			updates["settings"] = merged
		}
		if len(updates) == 0 {
			return ErrNoValidFields
		}

		if err := tx.Model(&org).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", tenant.OrganizationID).Take(&org).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	changed := make([]string, 0, len(updates))
	for column := range updates {
		changed = append(changed, column)
	}
	recordAudit(s.audit, ctx, tenantAudit(tenant, "organization.update", "organizations", map[string]any{
		"fields": changed,
	}))

	return &org, nil
}

// Stats returns member and pipeline counts, cached briefly per organization.
func (s *OrganizationService) Stats(ctx context.Context, tenant Tenant) (*OrganizationStats, error) {
	ctx = ensureContext(ctx)
	key := "org:stats:" + tenant.OrganizationID

	var stats OrganizationStats
	if s.cache != nil {
		if ok, err := cache.GetJSON(ctx, s.cache, key, &stats); err == nil && ok {
			return &stats, nil
		} else if err != nil {
			logger.WithModule("organizations").Debug("stats cache read failed", zap.Error(err))
		}
	}

	now := s.now()
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		counts := []struct {
			dest  *int64
			model any
			where []any
		}{
			{&stats.TotalUsers, &models.User{}, nil},
			{&stats.ActiveUsers, &models.User{}, []any{"status = ?", models.UserStatusActive}},
			{&stats.PendingInvitations, &models.Invitation{}, []any{"status = ? AND expires_at > ?", models.InvitationStatusPending, now}},
			{&stats.TotalContacts, &models.Contact{}, []any{"is_active = ?", true}},
			{&stats.TotalLeads, &models.Lead{}, nil},
			{&stats.TotalJobs, &models.Job{}, nil},
			{&stats.TotalEstimates, &models.Estimate{}, nil},
		}
		for _, count := range counts {
			query := inOrganization(tx.Model(count.model), tenant)
			if len(count.where) > 0 {
				query = query.Where(count.where[0], count.where[1:]...)
			}
			if err := query.Count(count.dest).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("organization service: stats: %w", err)
	}

	if s.cache != nil {
		_ = cache.SetJSON(ctx, s.cache, key, stats, organizationStatsTTL)
	}
	return &stats, nil
}

func isWebURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
