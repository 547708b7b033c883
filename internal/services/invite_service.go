package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
	"github.com/charlesng35/exteriorcrm/pkg/crypto"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
	"github.com/charlesng35/exteriorcrm/pkg/mail"
	"github.com/charlesng35/exteriorcrm/pkg/metrics"
	"github.com/charlesng35/exteriorcrm/pkg/validator"
)

const (
	defaultInviteExpiry     = 7 * 24 * time.Hour
	defaultInviteTokenBytes = 32
)

var (
	ErrInviteNotFound        = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	ErrInviteExpired         = apperrors.New("INVITATION_EXPIRED", "Invitation has expired", http.StatusGone)
	ErrInviteAlreadyAccepted = apperrors.New("INVITATION_ACCEPTED", "Invitation has already been accepted", http.StatusBadRequest)
	ErrInviteEmailMismatch   = apperrors.New("INVITATION_EMAIL_MISMATCH", "This invitation was sent to a different email address", http.StatusForbidden)
	ErrInviteNotPending      = apperrors.New("INVITATION_NOT_PENDING", "Only pending invitations can be changed", http.StatusConflict)
	ErrInvitePending         = apperrors.New("INVITATION_PENDING", "An invitation is already pending for this email", http.StatusConflict)
	ErrAlreadyMember         = apperrors.New("ALREADY_MEMBER", "User is already an active member of this organization", http.StatusConflict)
	ErrPendingMember         = apperrors.New("PENDING_MEMBER", "User already has a pending membership in this organization", http.StatusConflict)
	ErrInvalidRole           = apperrors.New("INVALID_ROLE", "Invalid role", http.StatusBadRequest)
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the application URL used in invitation links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteExpiry overrides the invite token lifetime.
func WithInviteExpiry(d time.Duration) InviteOption {
	return func(s *InviteService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInviteTokenSize adjusts the random token length in bytes.
func WithInviteTokenSize(size int) InviteOption {
	return func(s *InviteService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// CreateInviteInput is the invite-user request.
type CreateInviteInput struct {
	Email string
	Role  models.UserRole
}

// InviteResult carries a stored invitation and its raw token. The token is
// never persisted.
type InviteResult struct {
	Invitation *models.Invitation
	Token      string
}

// InvitationPreview is returned by the public validation endpoint.
type InvitationPreview struct {
	Email            string          `json:"email"`
	Role             models.UserRole `json:"role"`
	OrganizationName string          `json:"organizationName"`
	InvitedBy        string          `json:"invitedBy"`
	ExpiresAt        time.Time       `json:"expiresAt"`
}

// InvitationDetails is returned before an invitation is accepted.
type InvitationDetails struct {
	Email        string               `json:"email"`
	Role         models.UserRole      `json:"role"`
	ExpiresAt    time.Time            `json:"expiresAt"`
	Organization InvitationOrgSummary `json:"organization"`
	InvitedBy    InviterSummary       `json:"invitedBy"`
}

type InvitationOrgSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	LogoURL string `json:"logoUrl,omitempty"`
}

type InviterSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AcceptInviteInput is the accept-invitation form.
type AcceptInviteInput struct {
	Token     string
	FirstName string
	LastName  string
	Phone     string
	Mobile    string
	Timezone  string
}

// AcceptResult summarises the membership created by an acceptance.
type AcceptResult struct {
	Organization InvitationOrgSummary `json:"organization"`
	User         *models.User         `json:"user"`
}

// InviteService manages the invitation lifecycle.
type InviteService struct {
	db          *gorm.DB
	mailer      mail.Mailer
	audit       *AuditService
	baseURL     string
	expiry      time.Duration
	tokenLength int
	now         func() time.Time
	log         *zap.Logger
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, mailer mail.Mailer, audit *AuditService, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:          db,
		mailer:      mailer,
		audit:       audit,
		expiry:      defaultInviteExpiry,
		tokenLength: defaultInviteTokenBytes,
		now:         time.Now,
		log:         logger.WithModule("invites"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Create issues an invitation into the tenant's organization.
func (s *InviteService) Create(ctx context.Context, tenant Tenant, input CreateInviteInput) (*InviteResult, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	role := models.UserRole(strings.TrimSpace(string(input.Role)))

	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMissingFields(missing)
	}
	if !validator.IsEmail(email) {
		return nil, apperrors.NewBadRequest("Invalid email format")
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := permissions.CheckInvite(tenant.Role, role); err != nil {
		return nil, apperrors.ErrForbidden.WithMessage(inviteDeniedMessage(err)).WithInternal(err)
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("invite service: generate token: %w", err)
	}

	now := s.now()
	invitation := &models.Invitation{
		OrganizationID: tenant.OrganizationID,
		Email:          email,
		Role:           role,
		InvitedBy:      tenant.UserID,
		TokenHash:      crypto.HashToken(token),
		Status:         models.InvitationStatusPending,
		ExpiresAt:      now.Add(s.expiry),
	}

	err = scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		var member models.User
		err := inOrganization(tx, tenant).Where("LOWER(email) = ?", email).Take(&member).Error
		switch {
		case err == nil && member.Status == models.UserStatusActive:
			return ErrAlreadyMember
		case err == nil && member.Status == models.UserStatusPending:
			return ErrPendingMember
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("invite service: check membership: %w", err)
		}

		if err := inOrganization(tx.Model(&models.Invitation{}), tenant).
			Where("email = ? AND status = ? AND expires_at <= ?", email, models.InvitationStatusPending, now).
			Update("status", models.InvitationStatusExpired).Error; err != nil {
			return fmt.Errorf("invite service: expire stale invitations: %w", err)
		}

		var pending int64
		if err := inOrganization(tx.Model(&models.Invitation{}), tenant).
			Where("email = ? AND status = ?", email, models.InvitationStatusPending).
			Count(&pending).Error; err != nil {
			return fmt.Errorf("invite service: check pending invitations: %w", err)
		}
		if pending > 0 {
			return ErrInvitePending
		}

		if err := tx.Create(invitation).Error; err != nil {
			return translateDBError(err, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, invitation, token)

	metrics.Invitations.WithLabelValues("created").Inc()
	recordAudit(s.audit, ctx, tenantAudit(tenant, "invitation.create", "invitations", map[string]any{
		"invitation_id": invitation.ID,
		"email":         invitation.Email,
		"role":          string(invitation.Role),
	}))

	return &InviteResult{Invitation: invitation, Token: token}, nil
}

// ListPending returns pending, unexpired invitations newest first.
func (s *InviteService) ListPending(ctx context.Context, tenant Tenant) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		return inOrganization(tx, tenant).
			Preload("Inviter").
			Where("status = ? AND expires_at > ?", models.InvitationStatusPending, s.now()).
			Order("created_at DESC").
			Find(&invitations).Error
	})
	if err != nil {
		return nil, fmt.Errorf("invite service: list invitations: %w", err)
	}
	return invitations, nil
}

// Validate checks a raw token without consuming it.
func (s *InviteService) Validate(ctx context.Context, token string) (*InvitationPreview, error) {
	invitation, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	switch invitation.Status {
	case models.InvitationStatusAccepted:
		return nil, ErrInviteAlreadyAccepted
	case models.InvitationStatusRevoked:
		return nil, ErrInviteNotFound
	case models.InvitationStatusExpired:
		return nil, ErrInviteExpired
	}
	if invitation.Expired(s.now()) {
		return nil, ErrInviteExpired
	}

	preview := &InvitationPreview{
		Email:     invitation.Email,
		Role:      invitation.Role,
		ExpiresAt: invitation.ExpiresAt,
	}
	if invitation.Organization != nil {
		preview.OrganizationName = invitation.Organization.Name
	}
	if invitation.Inviter != nil {
		preview.InvitedBy = invitation.Inviter.DisplayName
	}
	return preview, nil
}

// Details returns what a recipient sees before accepting.
func (s *InviteService) Details(ctx context.Context, token string) (*InvitationDetails, error) {
	invitation, err := s.pending(ctx, token)
	if err != nil {
		return nil, err
	}

	details := &InvitationDetails{
		Email:     invitation.Email,
		Role:      invitation.Role,
		ExpiresAt: invitation.ExpiresAt,
	}
	if invitation.Organization != nil {
		details.Organization = orgSummary(invitation.Organization)
	}
	if invitation.Inviter != nil {
		details.InvitedBy = InviterSummary{Name: invitation.Inviter.DisplayName, Email: invitation.Inviter.Email}
	}
	return details, nil
}

// Accept turns an invitation into an active membership for accountID.
func (s *InviteService) Accept(ctx context.Context, accountID string, input AcceptInviteInput) (*AcceptResult, error) {
	ctx = ensureContext(ctx)

	input.Token = strings.TrimSpace(input.Token)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	var missing []string
	if input.Token == "" {
		missing = append(missing, "invitationToken")
	}
	if input.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if input.LastName == "" {
		missing = append(missing, "lastName")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMissingFields(missing)
	}

	invitation, err := s.pending(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", accountID).Take(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("invite service: load account: %w", err)
	}
	if !strings.EqualFold(account.Email, invitation.Email) {
		return nil, ErrInviteEmailMismatch
	}
	if invitation.Organization == nil || !invitation.Organization.Status.Accessible() {
		return nil, ErrOrganizationInactive
	}

	now := s.now()
	tenant := Tenant{
		OrganizationID: invitation.OrganizationID,
		AccountID:      account.ID,
		Role:           invitation.Role,
		Email:          account.Email,
	}

	var member models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("account_id = ? AND organization_id = ?", account.ID, invitation.OrganizationID).Take(&member).Error
		switch {
		case err == nil && member.Status == models.UserStatusActive:
			return ErrAlreadyMember
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("invite service: load membership: %w", err)
		}
		exists := err == nil

		member.AccountID = account.ID
		member.OrganizationID = invitation.OrganizationID
		member.Email = account.Email
		member.FirstName = input.FirstName
		member.LastName = input.LastName
		member.Phone = strings.TrimSpace(input.Phone)
		member.Mobile = strings.TrimSpace(input.Mobile)
		member.Timezone = strings.TrimSpace(input.Timezone)
		member.Role = invitation.Role
		member.Status = models.UserStatusActive
		member.IsAdmin = invitation.Role == models.RoleOwner
		member.NotificationPreferences = datatypes.NewJSONType(models.DefaultNotificationPreferences())
		member.InvitedBy = stringPtr(invitation.InvitedBy)
		member.InvitedAt = timePtr(invitation.CreatedAt)
		member.ActivatedAt = &now
		if member.Permissions == nil {
			member.Permissions = []string{}
		}
		member.RefreshDisplayName()

		if exists {
			err = tx.Save(&member).Error
		} else {
			err = tx.Create(&member).Error
		}
		if err != nil {
			return translateDBError(err, ErrAlreadyMember)
		}

		result := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationStatusPending).
			Updates(map[string]any{
				"status":      models.InvitationStatusAccepted,
				"accepted_at": now,
				"accepted_by": account.ID,
			})
		if result.Error != nil {
			return fmt.Errorf("invite service: mark accepted: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInviteNotFound
		}

		return tx.Model(&models.Account{}).
			Where("id = ?", account.ID).
			Update("current_organization_id", invitation.OrganizationID).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{"last_login_at": now, "login_count": 1}).Error; err != nil {
		s.log.Warn("failed to record first login", zap.String("user_id", member.ID), zap.Error(err))
	} else {
		member.LastLoginAt = &now
		member.LoginCount = 1
	}

	tenant.UserID = member.ID
	metrics.Invitations.WithLabelValues("accepted").Inc()
	recordAudit(s.audit, ctx, tenantAudit(tenant, "invitation.accept", "invitations", map[string]any{
		"invitation_id": invitation.ID,
	}))

	return &AcceptResult{Organization: orgSummary(invitation.Organization), User: &member}, nil
}

// Resend rotates the token of a pending invitation, extends its expiry and
// delivers it again.
func (s *InviteService) Resend(ctx context.Context, tenant Tenant, invitationID string) (*InviteResult, error) {
	ctx = ensureContext(ctx)

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("invite service: generate token: %w", err)
	}

	var invitation models.Invitation
	err = scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := findInOrganization(tx, tenant, &invitation, invitationID, ErrInviteNotFound); err != nil {
			return err
		}
		if invitation.Status != models.InvitationStatusPending {
			return ErrInviteNotPending
		}

		invitation.TokenHash = crypto.HashToken(token)
		invitation.ExpiresAt = s.now().Add(s.expiry)
		return tx.Model(&invitation).Updates(map[string]any{
			"token_hash": invitation.TokenHash,
			"expires_at": invitation.ExpiresAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, &invitation, token)

	metrics.Invitations.WithLabelValues("resent").Inc()
	recordAudit(s.audit, ctx, tenantAudit(tenant, "invitation.resend", "invitations", map[string]any{
		"invitation_id": invitation.ID,
	}))

	return &InviteResult{Invitation: &invitation, Token: token}, nil
}

// Revoke cancels a pending invitation.
func (s *InviteService) Revoke(ctx context.Context, tenant Tenant, invitationID string) error {
	ctx = ensureContext(ctx)

	var invitation models.Invitation
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := findInOrganization(tx, tenant, &invitation, invitationID, ErrInviteNotFound); err != nil {
			return err
		}
		if invitation.Status != models.InvitationStatusPending {
			return ErrInviteNotPending
		}
		return tx.Model(&invitation).Update("status", models.InvitationStatusRevoked).Error
	})
	if err != nil {
		return err
	}

	metrics.Invitations.WithLabelValues("revoked").Inc()
	recordAudit(s.audit, ctx, tenantAudit(tenant, "invitation.revoke", "invitations", map[string]any{
		"invitation_id": invitation.ID,
	}))
	return nil
}

// ExpireStale marks pending invitations past their expiry as expired.
func (s *InviteService) ExpireStale(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ensureContext(ctx)).Model(&models.Invitation{}).
		Where("status = ? AND expires_at <= ?", models.InvitationStatusPending, s.now()).
		Update("status", models.InvitationStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("invite service: expire invitations: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.Invitations.WithLabelValues("expired").Add(float64(result.RowsAffected))
	}
	return result.RowsAffected, nil
}

func (s *InviteService) lookup(ctx context.Context, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewBadRequest("Invitation token is required")
	}

	var invitation models.Invitation
	err := s.db.WithContext(ensureContext(ctx)).
		Preload("Organization").
		Preload("Inviter").
		Where("token_hash = ?", crypto.HashToken(token)).
		Take(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: find invitation: %w", err)
	}
	return &invitation, nil
}

// pending resolves a token to an invitation that can still be accepted.
func (s *InviteService) pending(ctx context.Context, token string) (*models.Invitation, error) {
	invitation, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation.Status == models.InvitationStatusExpired {
		return nil, ErrInviteExpired
	}
	if invitation.Status != models.InvitationStatusPending {
		return nil, ErrInviteNotFound
	}
	if invitation.Expired(s.now()) {
		return nil, ErrInviteExpired
	}
	return invitation, nil
}

// deliver emails the invitation. Delivery problems never fail the caller;
// the invitation can be resent.
func (s *InviteService) deliver(ctx context.Context, invitation *models.Invitation, token string) {
	if s.mailer == nil {
		return
	}
	if s.baseURL == "" {
		s.log.Warn("invitation email skipped: application base url not configured",
			zap.String("invitation_id", invitation.ID))
		return
	}

	data := mail.InvitationData{
		Role:      strings.ReplaceAll(string(invitation.Role), "_", " "),
		AcceptURL: s.baseURL + "/accept-invitation?token=" + url.QueryEscape(token),
		ExpiresIn: humanizeDuration(invitation.ExpiresAt.Sub(s.now())),
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id = ?", invitation.OrganizationID).Take(&org).Error; err == nil {
		data.OrganizationName = org.Name
	}
	var inviter models.User
	if err := s.db.WithContext(ctx).Select("id", "display_name", "email").Where("id = ?", invitation.InvitedBy).Take(&inviter).Error; err == nil {
		data.InviterName = inviter.DisplayName
	}

	message, err := mail.InvitationMessage(invitation.Email, data)
	if err != nil {
		s.log.Error("failed to render invitation email", zap.String("invitation_id", invitation.ID), zap.Error(err))
		return
	}

	if err := s.mailer.Send(ctx, message); err != nil {
		if errors.Is(err, mail.ErrDeliveryDisabled) {
			s.log.Info("invitation email not sent: delivery disabled", zap.String("invitation_id", invitation.ID))
			return
		}
		s.log.Error("failed to send invitation email", zap.String("invitation_id", invitation.ID), zap.Error(err))
	}
}

func orgSummary(org *models.Organization) InvitationOrgSummary {
	if org == nil {
		return InvitationOrgSummary{}
	}
	return InvitationOrgSummary{ID: org.ID, Name: org.Name, Slug: org.Slug, LogoURL: org.LogoURL}
}

func inviteDeniedMessage(err error) string {
	switch {
	case errors.Is(err, permissions.ErrOwnerInviteRequiresOwner):
		return "Only owners can invite other owners"
	case errors.Is(err, permissions.ErrManagerInviteRequiresOwner):
		return "Insufficient permissions to invite users with this role"
	default:
		return "Insufficient permissions to invite users"
	}
}

func humanizeDuration(d time.Duration) string {
	days := int(d.Round(time.Hour).Hours()) / 24
	switch {
	case days > 1:
		return fmt.Sprintf("%d days", days)
	case days == 1:
		return "1 day"
	}
	hours := int(d.Round(time.Hour).Hours())
	if hours <= 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
