package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/handlers/testutil"
	"github.com/charlesng35/exteriorcrm/internal/models"
)

func TestAuditHandler_ListAndFilter(t *testing.T) {
	env := testutil.NewEnv(t)
	org := env.CreateOrganization("Summit Exteriors")
	other := env.CreateOrganization("Elsewhere")
	env.CreateMember(org, "owner@example.com", models.RoleOwner)
	env.CreateMember(org, "est@example.com", models.RoleEstimator)
	env.CreateMember(other, "stranger@example.com", models.RoleOwner)
	token := env.Token("owner@example.com")

	createContact(t, env, token, "Audited Customer")
	createContact(t, env, env.Token("stranger@example.com"), "Foreign Customer")

	w := env.Request(http.MethodGet, "/api/audit?action=contact.create", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	logs := testutil.DecodeData[[]models.AuditLog](t, w)
	require.Len(t, logs, 1)
	require.Equal(t, "contact.create", logs[0].Action)
	require.Equal(t, "owner@example.com", logs[0].Actor)
	require.NotNil(t, logs[0].OrganizationID)
	require.Equal(t, org.ID, *logs[0].OrganizationID)

	future := env.Request(http.MethodGet, "/api/audit?since=2999-01-01T00:00:00Z", nil, token)
	require.Equal(t, http.StatusOK, future.Code, future.Body.String())
	require.Empty(t, testutil.DecodeData[[]models.AuditLog](t, future))

	badSince := env.Request(http.MethodGet, "/api/audit?since=yesterday", nil, token)
	testutil.RequireError(t, badSince, http.StatusBadRequest, "BAD_REQUEST")

	denied := env.Request(http.MethodGet, "/api/audit", nil, env.Token("est@example.com"))
	testutil.RequireError(t, denied, http.StatusForbidden, "FORBIDDEN")
}
