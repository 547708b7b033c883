package handlers_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/handlers/testutil"
	"github.com/charlesng35/exteriorcrm/internal/models"
)

type invitationResponse struct {
	ID              string                  `json:"id"`
	Email           string                  `json:"email"`
	Role            models.UserRole         `json:"role"`
	Status          models.InvitationStatus `json:"status"`
	InviterName     string                  `json:"inviterName"`
	InviterEmail    string                  `json:"inviterEmail"`
	InvitationToken string                  `json:"invitationToken"`
}

func invite(t *testing.T, env *testutil.Env, token, email string, role models.UserRole) invitationResponse {
	t.Helper()
	resp := env.Request(http.MethodPost, "/api/auth/invite-user", map[string]string{
		"email": email,
		"role":  string(role),
	}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return testutil.DecodeData[invitationResponse](t, resp)
}

func tokenQuery(path, token string) string {
	return path + "?token=" + url.QueryEscape(token)
}

func TestInviteHandler_FullLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	org := env.CreateOrganization("Ridge Roofing")
	env.CreateMember(org, "owner@example.com", models.RoleOwner)
	ownerToken := env.Token("owner@example.com")

	created := invite(t, env, ownerToken, "New.Hire@Example.com", models.RoleEstimator)
	require.Equal(t, "new.hire@example.com", created.Email)
	require.Equal(t, models.InvitationStatusPending, created.Status)
	require.NotEmpty(t, created.InvitationToken)

	pending := env.Request(http.MethodGet, "/api/auth/invite-user", nil, ownerToken)
	require.Equal(t, http.StatusOK, pending.Code, pending.Body.String())
	list := testutil.DecodeData[[]invitationResponse](t, pending)
	require.Len(t, list, 1)
	require.Equal(t, "owner@example.com", list[0].InviterEmail)

	validate := env.Request(http.MethodGet, tokenQuery("/api/auth/validate-invitation", created.InvitationToken), nil, "")
	require.Equal(t, http.StatusOK, validate.Code, validate.Body.String())
	preview := testutil.DecodeData[map[string]any](t, validate)
	require.Equal(t, "Ridge Roofing", preview["organizationName"])
	require.Equal(t, "estimator", preview["role"])

	details := env.Request(http.MethodGet, tokenQuery("/api/auth/accept-invitation", created.InvitationToken), nil, "")
	require.Equal(t, http.StatusOK, details.Code, details.Body.String())

	env.CreateAccount("new.hire@example.com")
	hireToken := env.Token("new.hire@example.com")

	accept := env.Request(http.MethodPost, "/api/auth/accept-invitation", map[string]string{
		"invitationToken": created.InvitationToken,
		"firstName":       "Nia",
		"lastName":        "Hire",
		"timezone":        "America/Denver",
	}, hireToken)
	require.Equal(t, http.StatusOK, accept.Code, accept.Body.String())

	var membership models.User
	require.NoError(t, env.DB.Where("organization_id = ? AND email = ?", org.ID, "new.hire@example.com").Take(&membership).Error)
	require.Equal(t, models.RoleEstimator, membership.Role)
	require.Equal(t, models.UserStatusActive, membership.Status)
	require.NotNil(t, membership.ActivatedAt)

	profile := env.Request(http.MethodGet, "/api/auth/user", nil, hireToken)
	require.Equal(t, http.StatusOK, profile.Code, profile.Body.String())

	again := env.Request(http.MethodGet, tokenQuery("/api/auth/validate-invitation", created.InvitationToken), nil, "")
	testutil.RequireError(t, again, http.StatusBadRequest, "INVITATION_ACCEPTED")
}

func TestInviteHandler_CreateRules(t *testing.T) {
	env := testutil.NewEnv(t)
	org := env.CreateOrganization("Ridge Roofing")
	env.CreateMember(org, "owner@example.com", models.RoleOwner)
	env.CreateMember(org, "sales@example.com", models.RoleSalesManager)
	env.CreateMember(org, "estimator@example.com", models.RoleEstimator)
	ownerToken := env.Token("owner@example.com")

	missing := env.Request(http.MethodPost, "/api/auth/invite-user", map[string]string{}, ownerToken)
	resp := testutil.RequireError(t, missing, http.StatusBadRequest, "BAD_REQUEST")
	require.Equal(t, []string{"email", "role"}, testutil.ErrorFields(t, resp))

	badRole := env.Request(http.MethodPost, "/api/auth/invite-user", map[string]string{
		"email": "x@example.com",
		"role":  "emperor",
	}, ownerToken)
	testutil.RequireError(t, badRole, http.StatusBadRequest, "INVALID_ROLE")

	member := env.Request(http.MethodPost, "/api/auth/invite-user", map[string]string{
		"email": "sales@example.com",
		"role":  "estimator",
	}, ownerToken)
	testutil.RequireError(t, member, http.StatusConflict, "ALREADY_MEMBER")

	invite(t, env, ownerToken, "twice@example.com", models.RoleEstimator)
	duplicate := env.Request(http.MethodPost, "/api/auth/invite-user", map[string]string{
		"email": "twice@example.com",
		"role":  "estimator",
	}, ownerToken)
	testutil.RequireError(t, duplicate, http.StatusConflict, "INVITATION_PENDING")

	salesToken := env.Token("sales@example.com")
	escalate := env.Request(http.MethodPost, "/api/auth/invite-user", map[string]string{
		"email": "boss@example.com",
		"role":  "operations_manager",
	}, salesToken)
	testutil.RequireError(t, escalate, http.StatusForbidden, "FORBIDDEN")

	invite(t, env, salesToken, "crew@example.com", models.RoleFieldManagement)

	estimatorToken := env.Token("estimator@example.com")
	denied := env.Request(http.MethodPost, "/api/auth/invite-user", map[string]string{
		"email": "friend@example.com",
		"role":  "estimator",
	}, estimatorToken)
	testutil.RequireError(t, denied, http.StatusForbidden, "FORBIDDEN")
}

func TestInviteHandler_ResendAndRevoke(t *testing.T) {
	env := testutil.NewEnv(t)
	org := env.CreateOrganization("Ridge Roofing")
	env.CreateMember(org, "owner@example.com", models.RoleOwner)
	ownerToken := env.Token("owner@example.com")

	created := invite(t, env, ownerToken, "later@example.com", models.RoleEstimator)

	resend := env.Request(http.MethodPost, "/api/invitations/"+created.ID+"/resend", nil, ownerToken)
	require.Equal(t, http.StatusOK, resend.Code, resend.Body.String())
	resent := testutil.DecodeData[invitationResponse](t, resend)
	require.NotEqual(t, created.InvitationToken, resent.InvitationToken)

	stale := env.Request(http.MethodGet, tokenQuery("/api/auth/validate-invitation", created.InvitationToken), nil, "")
	testutil.RequireError(t, stale, http.StatusNotFound, "INVITATION_NOT_FOUND")

	revoke := env.Request(http.MethodDelete, "/api/invitations/"+created.ID, nil, ownerToken)
	require.Equal(t, http.StatusOK, revoke.Code, revoke.Body.String())

	revoked := env.Request(http.MethodGet, tokenQuery("/api/auth/validate-invitation", resent.InvitationToken), nil, "")
	testutil.RequireError(t, revoked, http.StatusNotFound, "INVITATION_NOT_FOUND")

	again := env.Request(http.MethodDelete, "/api/invitations/"+created.ID, nil, ownerToken)
	testutil.RequireError(t, again, http.StatusConflict, "INVITATION_NOT_PENDING")
}

func TestInviteHandler_TokenChecks(t *testing.T) {
	env := testutil.NewEnv(t)
	org := env.CreateOrganization("Ridge Roofing")
	env.CreateMember(org, "owner@example.com", models.RoleOwner)
	ownerToken := env.Token("owner@example.com")

	noToken := env.Request(http.MethodGet, "/api/auth/validate-invitation", nil, "")
	testutil.RequireError(t, noToken, http.StatusBadRequest, "BAD_REQUEST")

	unknown := env.Request(http.MethodGet, tokenQuery("/api/auth/accept-invitation", "nope"), nil, "")
	testutil.RequireError(t, unknown, http.StatusNotFound, "INVITATION_NOT_FOUND")

	created := invite(t, env, ownerToken, "late@example.com", models.RoleEstimator)
	require.NoError(t, env.DB.Model(&models.Invitation{}).
		Where("id = ?", created.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	validate := env.Request(http.MethodGet, tokenQuery("/api/auth/validate-invitation", created.InvitationToken), nil, "")
	testutil.RequireError(t, validate, http.StatusBadRequest, "BAD_REQUEST")

	details := env.Request(http.MethodGet, tokenQuery("/api/auth/accept-invitation", created.InvitationToken), nil, "")
	testutil.RequireError(t, details, http.StatusGone, "INVITATION_EXPIRED")

	env.CreateAccount("late@example.com")
	accept := env.Request(http.MethodPost, "/api/auth/accept-invitation", map[string]string{
		"invitationToken": created.InvitationToken,
		"firstName":       "Lee",
		"lastName":        "Late",
	}, env.Token("late@example.com"))
	testutil.RequireError(t, accept, http.StatusGone, "INVITATION_EXPIRED")
}

func TestInviteHandler_AcceptRequiresMatchingEmail(t *testing.T) {
	env := testutil.NewEnv(t)
	org := env.CreateOrganization("Ridge Roofing")
	env.CreateMember(org, "owner@example.com", models.RoleOwner)
	created := invite(t, env, env.Token("owner@example.com"), "intended@example.com", models.RoleEstimator)

	env.CreateAccount("someone-else@example.com")
	token := env.Token("someone-else@example.com")

	missing := env.Request(http.MethodPost, "/api/auth/accept-invitation", map[string]string{}, token)
	resp := testutil.RequireError(t, missing, http.StatusBadRequest, "BAD_REQUEST")
	require.Equal(t, []string{"invitationToken", "firstName", "lastName"}, testutil.ErrorFields(t, resp))

	mismatch := env.Request(http.MethodPost, "/api/auth/accept-invitation", map[string]string{
		"invitationToken": created.InvitationToken,
		"firstName":       "Wrong",
		"lastName":        "Person",
	}, token)
	testutil.RequireError(t, mismatch, http.StatusForbidden, "INVITATION_EMAIL_MISMATCH")
}
