package handlers_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/handlers/testutil"
	"github.com/charlesng35/exteriorcrm/internal/models"
)

type switchResponse struct {
	CurrentOrganization struct {
		ID   string          `json:"id"`
		Role models.UserRole `json:"role"`
	} `json:"currentOrganization"`
	Organizations []map[string]any `json:"organizations"`
	AccessToken   string           `json:"accessToken"`
}

func TestMembershipHandler_SwitchOrganization(t *testing.T) {
	env := testutil.NewEnv(t)
	home := env.CreateOrganization("Home Siding")
	away := env.CreateOrganization("Away Gutters")
	member := env.CreateMember(home, "multi@example.com", models.RoleOwner)
	token := env.Token("multi@example.com")
	env.AddMembership(member.Account, away, models.RoleSalesManager)

	list := env.Request(http.MethodGet, "/api/auth/switch-organization", nil, token)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	memberships := testutil.DecodeData[struct {
		Organizations []map[string]any `json:"organizations"`
	}](t, list)
	require.Len(t, memberships.Organizations, 2)

	resp := env.Request(http.MethodPost, "/api/auth/switch-organization", map[string]string{
		"organization_id": away.ID,
	}, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	switched := testutil.DecodeData[switchResponse](t, resp)
	require.Equal(t, away.ID, switched.CurrentOrganization.ID)
	require.Equal(t, models.RoleSalesManager, switched.CurrentOrganization.Role)
	require.Len(t, switched.Organizations, 2)

	claims, err := env.JWT.ValidateAccessToken(switched.AccessToken)
	require.NoError(t, err)
	require.Equal(t, away.ID, claims.OrganizationID)

	profile := env.Request(http.MethodGet, "/api/auth/user", nil, switched.AccessToken)
	require.Equal(t, http.StatusOK, profile.Code, profile.Body.String())
	data := testutil.DecodeData[map[string]any](t, profile)
	require.Equal(t, "sales_manager", data["role"])

	var account models.Account
	require.NoError(t, env.DB.First(&account, "id = ?", member.Account.ID).Error)
	require.NotNil(t, account.CurrentOrganizationID)
	require.Equal(t, away.ID, *account.CurrentOrganizationID)
}

func TestMembershipHandler_SwitchRejections(t *testing.T) {
	env := testutil.NewEnv(t)
	home := env.CreateOrganization("Home Siding")
	closed := env.CreateOrganization("Closed Co")
	member := env.CreateMember(home, "multi@example.com", models.RoleOwner)
	token := env.Token("multi@example.com")

	missing := env.Request(http.MethodPost, "/api/auth/switch-organization", map[string]string{}, token)
	testutil.RequireError(t, missing, http.StatusBadRequest, "BAD_REQUEST")

	malformed := env.Request(http.MethodPost, "/api/auth/switch-organization", map[string]string{
		"organization_id": "not-a-uuid",
	}, token)
	testutil.RequireError(t, malformed, http.StatusBadRequest, "BAD_REQUEST")

	stranger := env.Request(http.MethodPost, "/api/auth/switch-organization", map[string]string{
		"organization_id": uuid.NewString(),
	}, token)
	testutil.RequireError(t, stranger, http.StatusForbidden, "ACCESS_DENIED")

	env.AddMembership(member.Account, closed, models.RoleOwner)
	require.NoError(t, env.DB.Model(closed).Update("status", models.OrganizationStatusSuspended).Error)
	suspended := env.Request(http.MethodPost, "/api/auth/switch-organization", map[string]string{
		"organization_id": closed.ID,
	}, token)
	testutil.RequireError(t, suspended, http.StatusForbidden, "ORGANIZATION_INACTIVE")
}

func TestMembershipMiddleware_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	org := env.CreateOrganization("Home Siding")

	env.CreateAccount("lonely@example.com")
	lonely := env.Request(http.MethodGet, "/api/contacts", nil, env.Token("lonely@example.com"))
	testutil.RequireError(t, lonely, http.StatusNotFound, "PROFILE_NOT_FOUND")

	member := env.CreateMember(org, "paused@example.com", models.RoleEstimator)
	token := env.Token("paused@example.com")
	require.NoError(t, env.DB.Model(member.User).Update("status", models.UserStatusSuspended).Error)
	paused := env.Request(http.MethodGet, "/api/contacts", nil, token)
	testutil.RequireError(t, paused, http.StatusForbidden, "MEMBERSHIP_INACTIVE")
}
