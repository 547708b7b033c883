package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/pkg/crypto"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/metrics"
	"github.com/charlesng35/exteriorcrm/pkg/validator"
)

const minPasswordLength = 8

var (
	ErrEmailTaken      = apperrors.New("EMAIL_TAKEN", "An account with this email already exists", http.StatusConflict)
	ErrAccountNotFound = apperrors.New("ACCOUNT_NOT_FOUND", "Account not found", http.StatusNotFound)
)

// SignupInput carries the fields required to create an account.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	Account *models.Account
	Session *models.Session
	Tokens  auth.TokenPair
}

// AccountService owns sign-up and password sign-in.
type AccountService struct {
	db       *gorm.DB
	sessions *auth.SessionService
	audit    *AuditService
	now      func() time.Time
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, sessions *auth.SessionService, audit *AuditService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("account service: session service is required")
	}
	return &AccountService{db: db, sessions: sessions, audit: audit, now: time.Now}, nil
}

// Signup creates an account with no organization and signs it in.
func (s *AccountService) Signup(ctx context.Context, input SignupInput, meta auth.SessionMetadata) (*AuthResult, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if !validator.IsEmail(email) {
		return nil, apperrors.NewBadRequest("Invalid email format")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	now := s.now()
	account := &models.Account{
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		LastSignInAt: &now,
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, translateDBError(err, ErrEmailTaken)
	}

	tokens, session, err := s.sessions.CreateSession(ctx, account.ID, nil, meta)
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Actor:     account.Email,
		Action:    "account.signup",
		Resource:  "accounts",
		Result:    AuditResultSuccess,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Metadata:  map[string]any{"account_id": account.ID},
	})

	return &AuthResult{Account: account, Session: session, Tokens: tokens}, nil
}

// Login verifies the password and opens a session bound to the account's
// current organization.
func (s *AccountService) Login(ctx context.Context, email, password string, meta auth.SessionMetadata) (*AuthResult, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	var account models.Account
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&account).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account service: find account: %w", err)
	}
	if err != nil || account.PasswordHash == "" || !crypto.VerifyPassword(account.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		recordAudit(s.audit, ctx, AuditEntry{
			Actor:     email,
			Action:    "account.login",
			Resource:  "accounts",
			Result:    AuditResultFailure,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("last_sign_in_at", now).Error; err != nil {
		return nil, fmt.Errorf("account service: record sign-in: %w", err)
	}
	account.LastSignInAt = &now

	tokens, session, err := s.sessions.CreateSession(ctx, account.ID, account.CurrentOrganizationID, meta)
	if err != nil {
		return nil, err
	}

	if account.CurrentOrganizationID != nil {
		s.trackLogin(ctx, account.ID, *account.CurrentOrganizationID, now)
	}
	metrics.AuthAttempts.WithLabelValues("success").Inc()

	entry := AuditEntry{
		OrganizationID: account.CurrentOrganizationID,
		Actor:          account.Email,
		Action:         "account.login",
		Resource:       "accounts",
		Result:         AuditResultSuccess,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
	}
	recordAudit(s.audit, ctx, entry)

	return &AuthResult{Account: &account, Session: session, Tokens: tokens}, nil
}

// Get returns the account by id.
func (s *AccountService) Get(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ensureContext(ctx)).Where("id = ?", accountID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: get account: %w", err)
	}
	return &account, nil
}

// trackLogin bumps the membership's login counters. Failures are ignored.
func (s *AccountService) trackLogin(ctx context.Context, accountID, organizationID string, now time.Time) {
	_ = s.db.WithContext(ctx).Model(&models.User{}).
		Where("account_id = ? AND organization_id = ?", accountID, organizationID).
		Updates(map[string]any{
			"last_login_at": now,
			"login_count":   gorm.Expr("login_count + 1"),
		}).Error
}
