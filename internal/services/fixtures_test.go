package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/database/testutil"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/pkg/crypto"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestAudit(t *testing.T, db *gorm.DB) *AuditService {
	t.Helper()
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	return audit
}

func newTestSessions(t *testing.T, db *gorm.DB) (*auth.SessionService, *auth.JWTService) {
	t.Helper()
	jwt, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "exteriorcrm"})
	require.NoError(t, err)
	sessions, err := auth.NewSessionService(db, jwt, auth.SessionConfig{})
	require.NoError(t, err)
	return sessions, jwt
}

func seedOrganization(t *testing.T, db *gorm.DB, slug string) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name:     "Org " + slug,
		Slug:     slug,
		Status:   models.OrganizationStatusActive,
		Settings: datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

func seedAccount(t *testing.T, db *gorm.DB, email string) *models.Account {
	t.Helper()
	hashed, err := crypto.HashPassword("correct-horse")
	require.NoError(t, err)
	account := &models.Account{Email: email, PasswordHash: hashed, FirstName: "Test", LastName: "Person"}
	require.NoError(t, db.Create(account).Error)
	return account
}

// seedMember creates an account with an active membership and returns the
// tenant that membership acts as.
func seedMember(t *testing.T, db *gorm.DB, org *models.Organization, email string, role models.UserRole) Tenant {
	t.Helper()
	account := seedAccount(t, db, email)
	user := &models.User{
		AccountID:      account.ID,
		OrganizationID: org.ID,
		Email:          email,
		FirstName:      "Member",
		LastName:       string(role),
		Role:           role,
		Status:         models.UserStatusActive,
		IsAdmin:        role == models.RoleOwner,
		Permissions:    []string{},
	}
	user.RefreshDisplayName()
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Model(account).Update("current_organization_id", org.ID).Error)

	return Tenant{
		OrganizationID: org.ID,
		UserID:         user.ID,
		AccountID:      account.ID,
		Role:           role,
		Email:          email,
	}
}

func seedContact(t *testing.T, db *gorm.DB, tenant Tenant, name string) *models.Contact {
	t.Helper()
	contacts, err := NewContactService(db, nil)
	require.NoError(t, err)
	contact, err := contacts.Create(context.Background(), tenant, ContactInput{CompanyName: &name})
	require.NoError(t, err)
	return contact
}

func ptr[T any](value T) *T {
	return &value
}
