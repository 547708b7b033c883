package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/pkg/crypto"
	"github.com/charlesng35/exteriorcrm/pkg/metrics"
)

// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

// sessionStateTTL bounds how long a cached liveness answer is trusted.
const sessionStateTTL = time.Minute

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	RefreshLength   int
	Clock           func() time.Time
	Cache           SessionCache
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
	Device    string
}

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

var (
	// ErrSessionNotFound indicates that no session matches the provided token or identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a session that was ended by sign-out or deactivation.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals that a refresh token has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned when the supplied refresh token is malformed.
	ErrSessionInvalidToken = errors.New("session: invalid token")
)

// SessionService manages creation, rotation, and revocation of account sessions.
// Refresh tokens are only ever persisted as sha256 hashes.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	tokenLen   int
	now        func() time.Time
	cache      SessionCache
}

// NewSessionService constructs a session manager backed by the provided database and JWT service.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}

	length := cfg.RefreshLength
	if length <= 0 {
		length = 48
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: ttl,
		tokenLen:   length,
		now:        clock,
		cache:      cfg.Cache,
	}, nil
}

// CreateSession starts a session for the account and issues a fresh token pair.
// organizationID may be nil for accounts that have not joined an organization.
func (s *SessionService) CreateSession(ctx context.Context, accountID string, organizationID *string, meta SessionMetadata) (TokenPair, *models.Session, error) {
	if strings.TrimSpace(accountID) == "" {
		return TokenPair{}, nil, errors.New("session service: account id is required")
	}

	refreshToken, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		AccountID:        accountID,
		OrganizationID:   organizationID,
		RefreshTokenHash: crypto.HashToken(refreshToken),
		IPAddress:        strings.TrimSpace(meta.IPAddress),
		UserAgent:        strings.TrimSpace(meta.UserAgent),
		DeviceInfo:       strings.TrimSpace(meta.Device),
		StartedAt:        now,
		LastActivityAt:   now,
		ExpiresAt:        now.Add(s.refreshTTL),
		IsActive:         true,
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()

	accessToken, err := s.IssueAccessToken(session)
	if err != nil {
		return TokenPair{}, nil, err
	}

	s.remember(ctx, session.ID, true)

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwt.TTL().Seconds()),
	}, session, nil
}

// IssueAccessToken signs an access token for an existing session.
func (s *SessionService) IssueAccessToken(session *models.Session) (string, error) {
	if session == nil {
		return "", ErrSessionNotFound
	}
	orgID := ""
	if session.OrganizationID != nil {
		orgID = *session.OrganizationID
	}
	token, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		AccountID:      session.AccountID,
		OrganizationID: orgID,
		SessionID:      session.ID,
	})
	if err != nil {
		return "", fmt.Errorf("session service: generate access token: %w", err)
	}
	return token, nil
}

// RefreshSession rotates the refresh token and issues a new access token.
// The previous refresh token stops working immediately.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (TokenPair, *models.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, nil, ErrSessionInvalidToken
	}

	oldHash := crypto.HashToken(refreshToken)
	var session models.Session
	err := s.db.WithContext(ctx).Where("refresh_token_hash = ?", oldHash).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, nil, ErrSessionNotFound
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: find session: %w", err)
	}

	now := s.now()
	if !session.IsActive || session.EndedAt != nil {
		return TokenPair{}, nil, ErrSessionRevoked
	}
	if !now.Before(session.ExpiresAt) {
		return TokenPair{}, nil, ErrSessionExpired
	}

	newRefresh, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}
	newHash := crypto.HashToken(newRefresh)
	expiresAt := now.Add(s.refreshTTL)

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND refresh_token_hash = ? AND is_active = ?", session.ID, oldHash, true).
		Updates(map[string]any{
			"refresh_token_hash": newHash,
			"expires_at":         expiresAt,
			"last_activity_at":   now,
		})
	if result.Error != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Another refresh rotated the token first.
		return TokenPair{}, nil, ErrSessionNotFound
	}

	session.RefreshTokenHash = newHash
	session.ExpiresAt = expiresAt
	session.LastActivityAt = now

	accessToken, err := s.IssueAccessToken(&session)
	if err != nil {
		return TokenPair{}, nil, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(s.jwt.TTL().Seconds()),
	}, &session, nil
}

// SwitchOrganization points the session at another organization and returns
// an access token carrying the new organization claim.
func (s *SessionService) SwitchOrganization(ctx context.Context, sessionID, accountID, organizationID string) (string, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", sessionID, accountID).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session service: find session: %w", err)
	}
	if !session.IsActive {
		return "", ErrSessionRevoked
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"organization_id":  organizationID,
			"last_activity_at": now,
		}).Error; err != nil {
		return "", fmt.Errorf("session service: switch organization: %w", err)
	}

	session.OrganizationID = &organizationID
	return s.IssueAccessToken(&session)
}

// EndSession marks a session as ended, preventing further refreshes.
func (s *SessionService) EndSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Updates(map[string]any{
			"is_active": false,
			"ended_at":  s.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("session service: end session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	s.forget(ctx, sessionID)
	return nil
}

// EndAccountSessions ends every active session of the account that is bound
// to the organization. It is used when a membership is deactivated.
func (s *SessionService) EndAccountSessions(ctx context.Context, accountID, organizationID string) (int64, error) {
	return s.endWhere(ctx, "account_id = ? AND organization_id = ? AND is_active = ?", accountID, organizationID, true)
}

// ExpireSessions ends active sessions whose refresh token lifetime has passed.
func (s *SessionService) ExpireSessions(ctx context.Context) (int64, error) {
	return s.endWhere(ctx, "is_active = ? AND expires_at <= ?", true, s.now())
}

func (s *SessionService) endWhere(ctx context.Context, query string, args ...any) (int64, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where(query, args...).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("session service: list sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"is_active": false,
			"ended_at":  s.now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: end sessions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}
	for _, id := range ids {
		s.forget(ctx, id)
	}
	return result.RowsAffected, nil
}

// IsActive reports whether the session behind an access token is still live.
func (s *SessionService) IsActive(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, nil
	}

	if s.cache != nil {
		if active, found, err := s.cache.Get(ctx, sessionID); err == nil && found {
			return active, nil
		}
	}

	var session models.Session
	err := s.db.WithContext(ctx).Select("id", "is_active", "expires_at").Take(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session service: load session: %w", err)
	}

	active := session.IsActive && s.now().Before(session.ExpiresAt)
	s.remember(ctx, sessionID, active)
	return active, nil
}

func (s *SessionService) remember(ctx context.Context, sessionID string, active bool) {
	if s.cache == nil {
		return
	}
	// Cache failures are non-fatal; the database stays authoritative.
	_ = s.cache.Set(ctx, sessionID, active, sessionStateTTL)
}

func (s *SessionService) forget(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, sessionID)
}
