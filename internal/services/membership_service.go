package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
)

// MembershipSummary describes one organization an account belongs to.
type MembershipSummary struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name"`
	Slug       string                    `json:"slug"`
	Status     models.OrganizationStatus `json:"status"`
	Role       models.UserRole           `json:"role"`
	UserStatus models.UserStatus         `json:"user_status"`
}

// MembershipList is every membership of an account plus the current one.
type MembershipList struct {
	CurrentOrganizationID *string             `json:"currentOrganizationId"`
	Organizations         []MembershipSummary `json:"organizations"`
}

// SwitchResult is returned after the current organization changes.
type SwitchResult struct {
	CurrentOrganization MembershipSummary   `json:"currentOrganization"`
	Organizations       []MembershipSummary `json:"organizations"`
	AccessToken         string              `json:"accessToken"`
}

// MembershipService resolves which organization a request acts on.
type MembershipService struct {
	db       *gorm.DB
	sessions *auth.SessionService
	audit    *AuditService
}

// NewMembershipService constructs a MembershipService. sessions may be nil when
// switching is not needed.
func NewMembershipService(db *gorm.DB, sessions *auth.SessionService, audit *AuditService) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{db: db, sessions: sessions, audit: audit}, nil
}

// ResolveTenant loads the caller's membership in organizationID, falling back
// to the account's current organization when organizationID is blank.
func (s *MembershipService) ResolveTenant(ctx context.Context, accountID, organizationID string) (Tenant, *models.User, error) {
	ctx = ensureContext(ctx)

	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		var account models.Account
		err := s.db.WithContext(ctx).Select("id", "current_organization_id").
			Where("id = ?", accountID).Take(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Tenant{}, nil, ErrProfileNotFound
		}
		if err != nil {
			return Tenant{}, nil, fmt.Errorf("membership service: load account: %w", err)
		}
		if account.CurrentOrganizationID == nil {
			return Tenant{}, nil, ErrProfileNotFound
		}
		organizationID = *account.CurrentOrganizationID
	}

	user, err := s.membership(ctx, accountID, organizationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Tenant{}, nil, ErrProfileNotFound
	}
	if err != nil {
		return Tenant{}, nil, fmt.Errorf("membership service: load membership: %w", err)
	}
	if err := checkMembershipUsable(user); err != nil {
		return Tenant{}, nil, err
	}

	return tenantFor(user), user, nil
}

// List returns every organization the account belongs to.
func (s *MembershipService) List(ctx context.Context, accountID string) (*MembershipList, error) {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).Where("id = ?", accountID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load account: %w", err)
	}

	summaries, err := s.summaries(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &MembershipList{CurrentOrganizationID: account.CurrentOrganizationID, Organizations: summaries}, nil
}

// Switch moves the account and its session to organizationID and returns an
// access token carrying the new organization.
func (s *MembershipService) Switch(ctx context.Context, accountID, sessionID, organizationID string) (*SwitchResult, error) {
	ctx = ensureContext(ctx)

	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, apperrors.NewMissingFields([]string{"organization_id"})
	}
	if _, err := uuid.Parse(organizationID); err != nil {
		return nil, apperrors.NewBadRequest("Invalid organization ID format")
	}
	if s.sessions == nil {
		return nil, errors.New("membership service: session service is required to switch")
	}

	user, err := s.membership(ctx, accountID, organizationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load membership: %w", err)
	}
	if err := checkMembershipUsable(user); err != nil {
		return nil, err
	}

	token, err := s.sessions.SwitchOrganization(ctx, sessionID, accountID, organizationID)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionRevoked) {
			return nil, apperrors.ErrUnauthorized.WithInternal(err)
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("current_organization_id", organizationID).Error; err != nil {
		return nil, fmt.Errorf("membership service: update current organization: %w", err)
	}

	summaries, err := s.summaries(ctx, accountID)
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, tenantAudit(tenantFor(user), "organization.switch", "organizations", nil))

	return &SwitchResult{
		CurrentOrganization: summarise(user),
		Organizations:       summaries,
		AccessToken:         token,
	}, nil
}

func (s *MembershipService) membership(ctx context.Context, accountID, organizationID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("account_id = ? AND organization_id = ?", accountID, organizationID).
		Take(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MembershipService) summaries(ctx context.Context, accountID string) ([]MembershipSummary, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("membership service: list memberships: %w", err)
	}

	summaries := make([]MembershipSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, summarise(&users[i]))
	}
	return summaries, nil
}

func checkMembershipUsable(user *models.User) error {
	if user.Status != models.UserStatusActive {
		return ErrMembershipInactive
	}
	if user.Organization == nil || !user.Organization.Status.Accessible() {
		return ErrOrganizationInactive
	}
	return nil
}

func tenantFor(user *models.User) Tenant {
	return Tenant{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		AccountID:      user.AccountID,
		Role:           user.Role,
		Email:          user.Email,
	}
}

func summarise(user *models.User) MembershipSummary {
	summary := MembershipSummary{
		ID:         user.OrganizationID,
		Role:       user.Role,
		UserStatus: user.Status,
	}
	if user.Organization != nil {
		summary.Name = user.Organization.Name
		summary.Slug = user.Organization.Slug
		summary.Status = user.Organization.Status
	}
	return summary
}
