package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/handlers/testutil"
	"github.com/charlesng35/exteriorcrm/internal/models"
)

func registrationPayload(email, slug string) map[string]string {
	return map[string]string{
		"organizationName": "  Summit Exteriors  ",
		"organizationSlug": slug,
		"ownerFirstName":   "Sam",
		"ownerLastName":    "Summit",
		"ownerEmail":       email,
		"phone":            "555-0100",
		"city":             "Denver",
		"state":            "CO",
	}
}

func TestRegistrationHandler_RegistersOrganization(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateAccount("sam@example.com")
	token := env.Token("sam@example.com")

	resp := env.Request(http.MethodPost, "/api/auth/register-organization", registrationPayload("SAM@example.com", "summit-exteriors"), token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var body struct {
		Success        bool   `json:"success"`
		OrganizationID string `json:"organizationId"`
		Message        string `json:"message"`
	}
	testutil.DecodeInto(t, resp.Body.Bytes(), &body)
	require.True(t, body.Success)
	require.NotEmpty(t, body.OrganizationID)
	require.Equal(t, "Organization registered successfully", body.Message)

	var org models.Organization
	require.NoError(t, env.DB.First(&org, "id = ?", body.OrganizationID).Error)
	require.Equal(t, "Summit Exteriors", org.Name)
	require.Equal(t, models.OrganizationStatusTrial, org.Status)
	require.NotNil(t, org.TrialEndsAt)

	var owner models.User
	require.NoError(t, env.DB.First(&owner, "organization_id = ?", org.ID).Error)
	require.Equal(t, models.RoleOwner, owner.Role)
	require.True(t, owner.IsAdmin)

	var registrations int64
	require.NoError(t, env.DB.Model(&models.OrganizationRegistration{}).Where("organization_id = ?", org.ID).Count(&registrations).Error)
	require.EqualValues(t, 1, registrations)

	// The existing token resolves the new organization through the account's current organization.
	current := env.Request(http.MethodGet, "/api/organization", nil, token)
	require.Equal(t, http.StatusOK, current.Code, current.Body.String())
	loaded := testutil.DecodeData[models.Organization](t, current)
	require.Equal(t, org.ID, loaded.ID)
}

func TestRegistrationHandler_Validation(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateAccount("sam@example.com")
	token := env.Token("sam@example.com")

	missing := env.Request(http.MethodPost, "/api/auth/register-organization", map[string]string{
		"organizationName": "Summit",
		"ownerEmail":       "   ",
	}, token)
	resp := testutil.RequireError(t, missing, http.StatusBadRequest, "BAD_REQUEST")
	require.Equal(t, []string{"organizationSlug", "ownerFirstName", "ownerLastName", "ownerEmail"}, testutil.ErrorFields(t, resp))

	badSlug := env.Request(http.MethodPost, "/api/auth/register-organization", registrationPayload("sam@example.com", "Not A Slug"), token)
	testutil.RequireError(t, badSlug, http.StatusBadRequest, "BAD_REQUEST")

	badEmail := env.Request(http.MethodPost, "/api/auth/register-organization", registrationPayload("sam@", "summit"), token)
	testutil.RequireError(t, badEmail, http.StatusBadRequest, "BAD_REQUEST")

	mismatch := env.Request(http.MethodPost, "/api/auth/register-organization", registrationPayload("other@example.com", "summit"), token)
	testutil.RequireError(t, mismatch, http.StatusBadRequest, "BAD_REQUEST")

	unauthenticated := env.Request(http.MethodPost, "/api/auth/register-organization", registrationPayload("sam@example.com", "summit"), "")
	testutil.RequireError(t, unauthenticated, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestRegistrationHandler_DuplicateSlug(t *testing.T) {
	env := testutil.NewEnv(t)
	existing := env.CreateOrganization("Existing")
	env.CreateAccount("sam@example.com")
	token := env.Token("sam@example.com")

	resp := env.Request(http.MethodPost, "/api/auth/register-organization", registrationPayload("sam@example.com", existing.Slug), token)
	testutil.RequireError(t, resp, http.StatusConflict, "SLUG_TAKEN")
}
