package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/auth/providers"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/pkg/crypto"
)

var (
	// ErrSSOEmailRequired indicates the upstream identity did not supply an email address.
	ErrSSOEmailRequired = errors.New("sso manager: email is required")
	// ErrSSOEmailUnverified blocks linking an unverified upstream email to an existing account.
	ErrSSOEmailUnverified = errors.New("sso manager: email not verified")
	// ErrSSODisabled is returned when no external provider is configured.
	ErrSSODisabled = errors.New("sso manager: single sign-on is not configured")
)

// PKCEPair represents the verifier/challenge material required for PKCE flows.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE produces a PKCE verifier and associated S256 challenge.
func GeneratePKCE() (PKCEPair, error) {
	verifier, err := crypto.GenerateToken(64)
	if err != nil {
		return PKCEPair{}, fmt.Errorf("pkce: generate verifier: %w", err)
	}

	sum := sha256.Sum256([]byte(verifier))
	return PKCEPair{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// SSOResult is the outcome of a completed external sign-in.
type SSOResult struct {
	Tokens        TokenPair
	Account       *models.Account
	Session       *models.Session
	ReturnURL     string
	HasMembership bool
}

// SSOManager drives the redirect flow against an external provider and maps
// returned identities onto local accounts.
type SSOManager struct {
	db       *gorm.DB
	provider providers.Provider
	states   *StateStore
	sessions *SessionService
	now      func() time.Time
}

// NewSSOManager constructs an SSOManager. A nil provider yields a manager
// whose operations return ErrSSODisabled.
func NewSSOManager(db *gorm.DB, provider providers.Provider, states *StateStore, sessions *SessionService) (*SSOManager, error) {
	if db == nil {
		return nil, errors.New("sso manager: db is required")
	}
	if sessions == nil {
		return nil, errors.New("sso manager: session service is required")
	}
	if provider != nil && states == nil {
		return nil, errors.New("sso manager: state store is required")
	}
	return &SSOManager{
		db:       db,
		provider: provider,
		states:   states,
		sessions: sessions,
		now:      time.Now,
	}, nil
}

// Enabled reports whether an external provider is configured.
func (m *SSOManager) Enabled() bool {
	return m != nil && m.provider != nil
}

// Begin stores a fresh state and returns the provider URL to redirect to.
func (m *SSOManager) Begin(ctx context.Context, returnURL string) (string, error) {
	if !m.Enabled() {
		return "", ErrSSODisabled
	}

	pkce, err := GeneratePKCE()
	if err != nil {
		return "", err
	}
	nonce, err := crypto.GenerateToken(24)
	if err != nil {
		return "", fmt.Errorf("sso manager: generate nonce: %w", err)
	}

	state, err := m.states.Save(ctx, StatePayload{
		ReturnURL: returnURL,
		Nonce:     nonce,
		PKCE:      pkce.Verifier,
	})
	if err != nil {
		return "", err
	}

	resp, err := m.provider.Begin(ctx, providers.BeginAuthRequest{
		State:         state,
		Nonce:         nonce,
		PKCEChallenge: pkce.Challenge,
	})
	if err != nil {
		return "", err
	}
	return resp.RedirectURL, nil
}

// Complete consumes the state, exchanges the code and signs the account in.
func (m *SSOManager) Complete(ctx context.Context, state string, callback providers.CallbackRequest, meta SessionMetadata) (*SSOResult, error) {
	if !m.Enabled() {
		return nil, ErrSSODisabled
	}

	payload, err := m.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	callback.PKCEVerifier = payload.PKCE
	callback.ExpectedNonce = payload.Nonce
	identity, err := m.provider.Callback(ctx, callback)
	if err != nil {
		return nil, err
	}

	account, err := m.LinkIdentity(ctx, *identity)
	if err != nil {
		return nil, err
	}

	var memberships int64
	if err := m.db.WithContext(ctx).Model(&models.User{}).
		Where("account_id = ?", account.ID).
		Count(&memberships).Error; err != nil {
		return nil, fmt.Errorf("sso manager: count memberships: %w", err)
	}

	tokens, session, err := m.sessions.CreateSession(ctx, account.ID, account.CurrentOrganizationID, meta)
	if err != nil {
		return nil, fmt.Errorf("sso manager: create session: %w", err)
	}

	return &SSOResult{
		Tokens:        tokens,
		Account:       account,
		Session:       session,
		ReturnURL:     payload.ReturnURL,
		HasMembership: memberships > 0,
	}, nil
}

// LinkIdentity finds the account for an external identity by subject, then
// by verified email, creating one when neither matches.
func (m *SSOManager) LinkIdentity(ctx context.Context, identity providers.Identity) (*models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, ErrSSOEmailRequired
	}
	subject := strings.TrimSpace(identity.Subject)
	now := m.now()

	var account models.Account
	if subject != "" {
		err := m.db.WithContext(ctx).Where("oidc_subject = ?", subject).Take(&account).Error
		if err == nil {
			return m.touch(ctx, &account, now)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sso manager: find account: %w", err)
		}
	}

	err := m.db.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&account).Error
	switch {
	case err == nil:
		if !identity.EmailVerified {
			return nil, ErrSSOEmailUnverified
		}
		updates := map[string]any{"last_sign_in_at": now}
		if subject != "" {
			updates["oidc_subject"] = subject
		}
		if err := m.db.WithContext(ctx).Model(&account).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("sso manager: link account: %w", err)
		}
		return &account, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = models.Account{
			Email:        email,
			FirstName:    strings.TrimSpace(identity.FirstName),
			LastName:     strings.TrimSpace(identity.LastName),
			LastSignInAt: &now,
		}
		if subject != "" {
			account.OIDCSubject = &subject
		}
		if err := m.db.WithContext(ctx).Create(&account).Error; err != nil {
			return nil, fmt.Errorf("sso manager: create account: %w", err)
		}
		return &account, nil
	default:
		return nil, fmt.Errorf("sso manager: find account: %w", err)
	}
}

func (m *SSOManager) touch(ctx context.Context, account *models.Account, now time.Time) (*models.Account, error) {
	if err := m.db.WithContext(ctx).Model(account).Update("last_sign_in_at", now).Error; err != nil {
		return nil, fmt.Errorf("sso manager: update account: %w", err)
	}
	return account, nil
}
