package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
)

func newAccountService(t *testing.T) (*AccountService, *auth.JWTService, *AuditService) {
	t.Helper()
	db := openServiceTestDB(t)
	sessions, jwt := newTestSessions(t, db)
	audit := newTestAudit(t, db)
	svc, err := NewAccountService(db, sessions, audit)
	require.NoError(t, err)
	return svc, jwt, audit
}

func TestAccountServiceSignup(t *testing.T) {
	svc, jwt, _ := newAccountService(t)
	ctx := context.Background()

	result, err := svc.Signup(ctx, SignupInput{
		Email:     "  Owner@Example.COM ",
		Password:  "super-secret",
		FirstName: "Olive",
		LastName:  "Owner",
	}, auth.SessionMetadata{IPAddress: "198.51.100.4"})
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", result.Account.Email)
	require.Nil(t, result.Account.CurrentOrganizationID)
	require.NotEmpty(t, result.Tokens.RefreshToken)
	require.NotEqual(t, "super-secret", result.Account.PasswordHash)

	claims, err := jwt.ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.Account.ID, claims.AccountID)
	require.Empty(t, claims.OrganizationID)
	require.Equal(t, result.Session.ID, claims.SessionID)

	_, err = svc.Signup(ctx, SignupInput{Email: "owner@example.com", Password: "another-secret"}, auth.SessionMetadata{})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAccountServiceSignupValidates(t *testing.T) {
	svc, _, _ := newAccountService(t)

	_, err := svc.Signup(context.Background(), SignupInput{Email: "not-an-email", Password: "long-enough"}, auth.SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Signup(context.Background(), SignupInput{Email: "a@example.com", Password: "short"}, auth.SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestAccountServiceLogin(t *testing.T) {
	svc, jwt, _ := newAccountService(t)
	ctx := context.Background()

	org := seedOrganization(t, svc.db, "acme")
	tenant := seedMember(t, svc.db, org, "crew@example.com", models.RoleEstimator)

	result, err := svc.Login(ctx, "CREW@example.com", "correct-horse", auth.SessionMetadata{})
	require.NoError(t, err)
	require.NotNil(t, result.Account.LastSignInAt)

	claims, err := jwt.ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, org.ID, claims.OrganizationID)

	var user models.User
	require.NoError(t, svc.db.Where("id = ?", tenant.UserID).Take(&user).Error)
	require.Equal(t, 1, user.LoginCount)
	require.NotNil(t, user.LastLoginAt)
}

func TestAccountServiceLoginFailures(t *testing.T) {
	svc, _, audit := newAccountService(t)
	ctx := context.Background()
	seedAccount(t, svc.db, "crew@example.com")

	_, err := svc.Login(ctx, "crew@example.com", "wrong-password", auth.SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse", auth.SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	var failures int64
	require.NoError(t, audit.db.Model(&models.AuditLog{}).
		Where("action = ? AND result = ?", "account.login", AuditResultFailure).
		Count(&failures).Error)
	require.Equal(t, int64(2), failures)
}

func TestAccountServiceGet(t *testing.T) {
	svc, _, _ := newAccountService(t)
	account := seedAccount(t, svc.db, "crew@example.com")

	got, err := svc.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, account.Email, got.Email)

	_, err = svc.Get(context.Background(), "11111111-1111-1111-1111-111111111111")
	require.ErrorIs(t, err, ErrAccountNotFound)
}
