package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/mail"
)

type captureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *captureMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

type inviteFixture struct {
	svc    *InviteService
	mailer *captureMailer
	org    *models.Organization
	owner  Tenant
	now    time.Time
}

func newInviteFixture(t *testing.T) *inviteFixture {
	t.Helper()
	db := openServiceTestDB(t)
	fx := &inviteFixture{
		mailer: &captureMailer{},
		now:    time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC),
	}
	fx.org = seedOrganization(t, db, "acme")
	fx.owner = seedMember(t, db, fx.org, "owner@acme.test", models.RoleOwner)

	svc, err := NewInviteService(db, fx.mailer, newTestAudit(t, db),
		WithInviteBaseURL("https://crm.example.com/"),
		WithInviteClock(func() time.Time { return fx.now }),
	)
	require.NoError(t, err)
	fx.svc = svc
	return fx
}

func TestInviteServiceCreate(t *testing.T) {
	fx := newInviteFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: " New.Hire@Example.com ", Role: models.RoleEstimator})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, "new.hire@example.com", result.Invitation.Email)
	require.Equal(t, models.InvitationStatusPending, result.Invitation.Status)
	require.NotEqual(t, result.Token, result.Invitation.TokenHash)
	require.True(t, result.Invitation.ExpiresAt.Equal(fx.now.Add(7*24*time.Hour)))

	sent := fx.mailer.sent()
	require.Len(t, sent, 1)
	require.Equal(t, []string{"new.hire@example.com"}, sent[0].To)
	require.Contains(t, sent[0].Body, "https://crm.example.com/accept-invitation?token="+result.Token)
	require.Contains(t, sent[0].Subject, fx.org.Name)

	_, err = fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "new.hire@example.com", Role: models.RoleEstimator})
	require.ErrorIs(t, err, ErrInvitePending)

	_, err = fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "owner@acme.test", Role: models.RoleEstimator})
	require.ErrorIs(t, err, ErrAlreadyMember)

	pending, err := fx.svc.ListPending(ctx, fx.owner)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].Inviter)
	require.Equal(t, fx.owner.UserID, pending[0].Inviter.ID)
}

func TestInviteServiceCreateValidation(t *testing.T) {
	fx := newInviteFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, fx.owner, CreateInviteInput{})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "bad", Role: models.RoleEstimator})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "x@example.com", Role: "janitor"})
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestInviteServiceRoleHierarchy(t *testing.T) {
	fx := newInviteFixture(t)
	ctx := context.Background()

	sales := seedMember(t, fx.svc.db, fx.org, "sales@acme.test", models.RoleSalesManager)
	estimator := seedMember(t, fx.svc.db, fx.org, "est@acme.test", models.RoleEstimator)

	_, err := fx.svc.Create(ctx, sales, CreateInviteInput{Email: "a@example.com", Role: models.RoleOwner})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	require.Equal(t, "Only owners can invite other owners", apperrors.FromError(err).Message)

	_, err = fx.svc.Create(ctx, sales, CreateInviteInput{Email: "b@example.com", Role: models.RoleOperationsManager})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = fx.svc.Create(ctx, sales, CreateInviteInput{Email: "c@example.com", Role: models.RoleFieldManagement})
	require.NoError(t, err)

	_, err = fx.svc.Create(ctx, estimator, CreateInviteInput{Email: "d@example.com", Role: models.RoleEstimator})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestInviteServiceValidateAndDetails(t *testing.T) {
	fx := newInviteFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "crew@example.com", Role: models.RoleFieldManagement})
	require.NoError(t, err)

	preview, err := fx.svc.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, "crew@example.com", preview.Email)
	require.Equal(t, fx.org.Name, preview.OrganizationName)

	details, err := fx.svc.Details(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, fx.org.ID, details.Organization.ID)
	require.Equal(t, "owner@acme.test", details.InvitedBy.Email)

	_, err = fx.svc.Validate(ctx, "unknown-token")
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = fx.svc.Validate(ctx, "  ")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	fx.now = fx.now.Add(8 * 24 * time.Hour)
	_, err = fx.svc.Validate(ctx, result.Token)
	require.ErrorIs(t, err, ErrInviteExpired)
	_, err = fx.svc.Details(ctx, result.Token)
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestInviteServiceAccept(t *testing.T) {
	fx := newInviteFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "crew@example.com", Role: models.RoleEstimator})
	require.NoError(t, err)

	account := seedAccount(t, fx.svc.db, "crew@example.com")
	stranger := seedAccount(t, fx.svc.db, "stranger@example.com")

	_, err = fx.svc.Accept(ctx, account.ID, AcceptInviteInput{Token: result.Token})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = fx.svc.Accept(ctx, stranger.ID, AcceptInviteInput{Token: result.Token, FirstName: "S", LastName: "T"})
	require.ErrorIs(t, err, ErrInviteEmailMismatch)

	accepted, err := fx.svc.Accept(ctx, account.ID, AcceptInviteInput{
		Token:     result.Token,
		FirstName: "Casey",
		LastName:  "Crew",
		Timezone:  "America/Denver",
	})
	require.NoError(t, err)
	require.Equal(t, fx.org.ID, accepted.Organization.ID)
	require.Equal(t, models.RoleEstimator, accepted.User.Role)
	require.Equal(t, models.UserStatusActive, accepted.User.Status)
	require.Equal(t, 1, accepted.User.LoginCount)
	require.Equal(t, "Casey Crew", accepted.User.DisplayName)

	var invitation models.Invitation
	require.NoError(t, fx.svc.db.Where("id = ?", result.Invitation.ID).Take(&invitation).Error)
	require.Equal(t, models.InvitationStatusAccepted, invitation.Status)

	var reloaded models.Account
	require.NoError(t, fx.svc.db.Where("id = ?", account.ID).Take(&reloaded).Error)
	require.Equal(t, fx.org.ID, *reloaded.CurrentOrganizationID)

	_, err = fx.svc.Validate(ctx, result.Token)
	require.ErrorIs(t, err, ErrInviteAlreadyAccepted)

	_, err = fx.svc.Accept(ctx, account.ID, AcceptInviteInput{Token: result.Token, FirstName: "C", LastName: "C"})
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteServiceResendAndRevoke(t *testing.T) {
	fx := newInviteFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "crew@example.com", Role: models.RoleEstimator})
	require.NoError(t, err)

	fx.now = fx.now.Add(2 * 24 * time.Hour)
	resent, err := fx.svc.Resend(ctx, fx.owner, created.Invitation.ID)
	require.NoError(t, err)
	require.NotEqual(t, created.Token, resent.Token)
	require.True(t, resent.Invitation.ExpiresAt.Equal(fx.now.Add(7*24*time.Hour)))
	require.Len(t, fx.mailer.sent(), 2)

	_, err = fx.svc.Validate(ctx, created.Token)
	require.ErrorIs(t, err, ErrInviteNotFound)
	_, err = fx.svc.Validate(ctx, resent.Token)
	require.NoError(t, err)

	other := seedOrganization(t, fx.svc.db, "bravo")
	outsider := seedMember(t, fx.svc.db, other, "owner@bravo.test", models.RoleOwner)
	require.ErrorIs(t, fx.svc.Revoke(ctx, outsider, created.Invitation.ID), ErrInviteNotFound)

	require.NoError(t, fx.svc.Revoke(ctx, fx.owner, created.Invitation.ID))
	require.ErrorIs(t, fx.svc.Revoke(ctx, fx.owner, created.Invitation.ID), ErrInviteNotPending)

	_, err = fx.svc.Validate(ctx, resent.Token)
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = fx.svc.Resend(ctx, fx.owner, created.Invitation.ID)
	require.ErrorIs(t, err, ErrInviteNotPending)
}

func TestInviteServiceExpireStale(t *testing.T) {
	fx := newInviteFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "one@example.com", Role: models.RoleEstimator})
	require.NoError(t, err)
	_, err = fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "two@example.com", Role: models.RoleEstimator})
	require.NoError(t, err)

	rows, err := fx.svc.ExpireStale(ctx)
	require.NoError(t, err)
	require.Zero(t, rows)

	fx.now = fx.now.Add(7*24*time.Hour + time.Minute)
	rows, err = fx.svc.ExpireStale(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), rows)

	// a fresh invitation is allowed once the previous one lapsed
	_, err = fx.svc.Create(ctx, fx.owner, CreateInviteInput{Email: "one@example.com", Role: models.RoleEstimator})
	require.NoError(t, err)
}

func TestInviteServiceSkipsDeliveryWithoutBaseURL(t *testing.T) {
	db := openServiceTestDB(t)
	org := seedOrganization(t, db, "acme")
	owner := seedMember(t, db, org, "owner@acme.test", models.RoleOwner)
	mailer := &captureMailer{}

	svc, err := NewInviteService(db, mailer, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), owner, CreateInviteInput{Email: "crew@example.com", Role: models.RoleEstimator})
	require.NoError(t, err)
	require.Empty(t, mailer.sent())
}

func TestHumanizeDuration(t *testing.T) {
	require.Equal(t, "7 days", humanizeDuration(7*24*time.Hour))
	require.Equal(t, "1 day", humanizeDuration(30*time.Hour))
	require.Equal(t, "5 hours", humanizeDuration(5*time.Hour))
	require.Equal(t, "1 hour", humanizeDuration(10*time.Minute))
	require.True(t, strings.HasSuffix(humanizeDuration(48*time.Hour), "days"))
}
