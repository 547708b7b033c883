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
	"github.com/charlesng35/exteriorcrm/pkg/validator"
)

const (
	defaultTrialPeriod = 14 * 24 * time.Hour

	registrationCompleted = "completed"
	subscriptionTrialing  = "trialing"
	subscriptionStarter   = "starter"
)

// ErrSlugTaken is returned when another organization already uses the slug.
var ErrSlugTaken = apperrors.New("SLUG_TAKEN", "Organization slug already exists", http.StatusConflict)

// RegisterOrganizationInput is the self-service organization sign-up form.
type RegisterOrganizationInput struct {
	OrganizationName string
	OrganizationSlug string
	OwnerFirstName   string
	OwnerLastName    string
	OwnerEmail       string
	Phone            string
	AddressLine1     string
	City             string
	State            string
	ZipCode          string
}

func (in *RegisterOrganizationInput) trim() {
	for _, field := range []*string{
		&in.OrganizationName, &in.OrganizationSlug, &in.OwnerFirstName, &in.OwnerLastName,
		&in.OwnerEmail, &in.Phone, &in.AddressLine1, &in.City, &in.State, &in.ZipCode,
	} {
		*field = strings.TrimSpace(*field)
	}
}

func (in RegisterOrganizationInput) missing() []string {
	required := []struct {
		name  string
		value string
	}{
		{"organizationName", in.OrganizationName},
		{"organizationSlug", in.OrganizationSlug},
		{"ownerFirstName", in.OwnerFirstName},
		{"ownerLastName", in.OwnerLastName},
		{"ownerEmail", in.OwnerEmail},
	}
	var fields []string
	for _, field := range required {
		if field.value == "" {
			fields = append(fields, field.name)
		}
	}
	return fields
}

// RegistrationOption customises RegistrationService behaviour.
type RegistrationOption func(*RegistrationService)

// WithTrialPeriod overrides the trial length granted to new organizations.
func WithTrialPeriod(d time.Duration) RegistrationOption {
	return func(s *RegistrationService) {
		if d > 0 {
			s.trial = d
		}
	}
}

// WithRegistrationClock injects a custom clock primarily for testing.
func WithRegistrationClock(clock func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// RegistrationService creates organizations together with their first owner.
type RegistrationService struct {
	db    *gorm.DB
	audit *AuditService
	trial time.Duration
	now   func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(db *gorm.DB, audit *AuditService, opts ...RegistrationOption) (*RegistrationService, error) {
	if db == nil {
		return nil, errors.New("registration service: db is required")
	}
	service := &RegistrationService{db: db, audit: audit, trial: defaultTrialPeriod, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register creates the organization, its owner membership and the
// registration record in one transaction, then makes the organization the
// account's current one.
func (s *RegistrationService) Register(ctx context.Context, accountID string, input RegisterOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	input.trim()
	if missing := input.missing(); len(missing) > 0 {
		return nil, apperrors.NewMissingFields(missing)
	}
	if !validator.IsSlug(input.OrganizationSlug) {
		return nil, apperrors.NewBadRequest("Organization slug must be 2-50 lowercase letters, numbers or hyphens")
	}
	if !validator.IsEmail(input.OwnerEmail) {
		return nil, apperrors.NewBadRequest("Invalid email format")
	}

	var account models.Account
	err := s.db.WithContext(ctx).Where("id = ?", accountID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("registration service: load account: %w", err)
	}
	if !strings.EqualFold(account.Email, input.OwnerEmail) {
		return nil, apperrors.NewBadRequest("Owner email must match your account email")
	}

	now := s.now()
	trialEnds := now.Add(s.trial)

	org := &models.Organization{
		Name:   input.OrganizationName,
		Slug:   input.OrganizationSlug,
		Status: models.OrganizationStatusTrial,
		Phone:  input.Phone,
		Address: models.Address{
			AddressLine1: input.AddressLine1,
			City:         input.City,
			State:        input.State,
			ZipCode:      input.ZipCode,
		},
		Settings:           datatypes.JSONMap{},
		BillingInfo:        datatypes.JSONMap{},
		SubscriptionStatus: subscriptionTrialing,
		SubscriptionTier:   subscriptionStarter,
		TrialEndsAt:        &trialEnds,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return translateDBError(err, ErrSlugTaken)
		}

		owner := &models.User{
			AccountID:               account.ID,
			OrganizationID:          org.ID,
			Email:                   account.Email,
			FirstName:               input.OwnerFirstName,
			LastName:                input.OwnerLastName,
			Role:                    models.RoleOwner,
			Status:                  models.UserStatusActive,
			IsAdmin:                 true,
			Phone:                   input.Phone,
			Permissions:             []string{},
			NotificationPreferences: datatypes.NewJSONType(models.DefaultNotificationPreferences()),
			ActivatedAt:             &now,
		}
		owner.RefreshDisplayName()
		if err := tx.Create(owner).Error; err != nil {
			return translateDBError(err, nil)
		}

		registration := &models.OrganizationRegistration{
			AccountID:      account.ID,
			OrganizationID: &org.ID,
			Email:          account.Email,
			FirstName:      input.OwnerFirstName,
			LastName:       input.OwnerLastName,
			OrganizationData: datatypes.JSONMap{
				"name":  org.Name,
				"slug":  org.Slug,
				"phone": org.Phone,
				"city":  org.City,
				"state": org.State,
			},
			Status:      registrationCompleted,
			ProcessedAt: &now,
		}
		if err := tx.Create(registration).Error; err != nil {
			return translateDBError(err, nil)
		}

		return tx.Model(&models.Account{}).
			Where("id = ?", account.ID).
			Update("current_organization_id", org.ID).Error
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		OrganizationID: &org.ID,
		Actor:          account.Email,
		Action:         "organization.register",
		Resource:       "organizations",
		Result:         AuditResultSuccess,
		Metadata:       map[string]any{"slug": org.Slug},
	})

	return org, nil
}
