package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
)

func TestMembershipServiceResolveTenant(t *testing.T) {
	db := openServiceTestDB(t)
	sessions, _ := newTestSessions(t, db)
	svc, err := NewMembershipService(db, sessions, nil)
	require.NoError(t, err)
	ctx := context.Background()

	org := seedOrganization(t, db, "acme")
	tenant := seedMember(t, db, org, "crew@example.com", models.RoleSalesManager)

	resolved, user, err := svc.ResolveTenant(ctx, tenant.AccountID, org.ID)
	require.NoError(t, err)
	require.Equal(t, tenant, resolved)
	require.Equal(t, models.RoleSalesManager, user.Role)

	resolved, _, err = svc.ResolveTenant(ctx, tenant.AccountID, "")
	require.NoError(t, err)
	require.Equal(t, org.ID, resolved.OrganizationID)

	other := seedOrganization(t, db, "bravo")
	_, _, err = svc.ResolveTenant(ctx, tenant.AccountID, other.ID)
	require.ErrorIs(t, err, ErrProfileNotFound)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", tenant.UserID).Update("status", models.UserStatusInactive).Error)
	_, _, err = svc.ResolveTenant(ctx, tenant.AccountID, org.ID)
	require.ErrorIs(t, err, ErrMembershipInactive)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", tenant.UserID).Update("status", models.UserStatusActive).Error)
	require.NoError(t, db.Model(org).Update("status", models.OrganizationStatusSuspended).Error)
	_, _, err = svc.ResolveTenant(ctx, tenant.AccountID, org.ID)
	require.ErrorIs(t, err, ErrOrganizationInactive)
}

func TestMembershipServiceResolveTenantWithoutOrganization(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewMembershipService(db, nil, nil)
	require.NoError(t, err)

	account := seedAccount(t, db, "new@example.com")
	_, _, err = svc.ResolveTenant(context.Background(), account.ID, "")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestMembershipServiceSwitch(t *testing.T) {
	db := openServiceTestDB(t)
	sessions, jwt := newTestSessions(t, db)
	svc, err := NewMembershipService(db, sessions, newTestAudit(t, db))
	require.NoError(t, err)
	ctx := context.Background()

	acme := seedOrganization(t, db, "acme")
	bravo := seedOrganization(t, db, "bravo")
	tenant := seedMember(t, db, acme, "crew@example.com", models.RoleOwner)
	second := &models.User{
		AccountID:      tenant.AccountID,
		OrganizationID: bravo.ID,
		Email:          tenant.Email,
		Role:           models.RoleEstimator,
		Status:         models.UserStatusActive,
		Permissions:    []string{},
	}
	require.NoError(t, db.Create(second).Error)

	_, session, err := sessions.CreateSession(ctx, tenant.AccountID, &acme.ID, auth.SessionMetadata{})
	require.NoError(t, err)

	result, err := svc.Switch(ctx, tenant.AccountID, session.ID, bravo.ID)
	require.NoError(t, err)
	require.Equal(t, bravo.ID, result.CurrentOrganization.ID)
	require.Equal(t, models.RoleEstimator, result.CurrentOrganization.Role)
	require.Len(t, result.Organizations, 2)

	claims, err := jwt.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, bravo.ID, claims.OrganizationID)

	list, err := svc.List(ctx, tenant.AccountID)
	require.NoError(t, err)
	require.NotNil(t, list.CurrentOrganizationID)
	require.Equal(t, bravo.ID, *list.CurrentOrganizationID)

	_, err = svc.Switch(ctx, tenant.AccountID, session.ID, "")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Switch(ctx, tenant.AccountID, session.ID, "not-a-uuid")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	foreign := seedOrganization(t, db, "charlie")
	_, err = svc.Switch(ctx, tenant.AccountID, session.ID, foreign.ID)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestMembershipServiceSwitchWithEndedSessionKeepsOrganization(t *testing.T) {
	db := openServiceTestDB(t)
	sessions, _ := newTestSessions(t, db)
	svc, err := NewMembershipService(db, sessions, nil)
	require.NoError(t, err)
	ctx := context.Background()

	acme := seedOrganization(t, db, "acme")
	bravo := seedOrganization(t, db, "bravo")
	tenant := seedMember(t, db, acme, "crew@example.com", models.RoleOwner)
	require.NoError(t, db.Create(&models.User{
		AccountID:      tenant.AccountID,
		OrganizationID: bravo.ID,
		Email:          tenant.Email,
		Role:           models.RoleSalesManager,
		Status:         models.UserStatusActive,
		Permissions:    []string{},
	}).Error)

	_, session, err := sessions.CreateSession(ctx, tenant.AccountID, &acme.ID, auth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, sessions.EndSession(ctx, session.ID))

	_, err = svc.Switch(ctx, tenant.AccountID, session.ID, bravo.ID)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	list, err := svc.List(ctx, tenant.AccountID)
	require.NoError(t, err)
	require.NotNil(t, list.CurrentOrganizationID)
	require.Equal(t, acme.ID, *list.CurrentOrganizationID)
}
