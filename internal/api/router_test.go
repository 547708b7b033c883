package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/api"
	"github.com/charlesng35/exteriorcrm/internal/app"
	iauth "github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/database/testutil"
	handlertest "github.com/charlesng35/exteriorcrm/internal/handlers/testutil"
	"github.com/charlesng35/exteriorcrm/internal/models"
)

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := api.NewRouter(api.Dependencies{})
	require.Error(t, err)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret", Issuer: "router-test"})
	require.NoError(t, err)

	_, err = api.NewRouter(api.Dependencies{DB: db, Config: &app.Config{}, JWT: jwt})
	require.Error(t, err, "sessions are required")
}

func TestRouterGuardsRouteGroups(t *testing.T) {
	env := handlertest.NewEnv(t)
	org := env.CreateOrganization("Router Org")
	env.CreateMember(org, "owner@example.com", models.RoleOwner)
	env.CreateAccount("floating@example.com")

	public := []struct {
		method, path string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/metrics"},
		{http.MethodGet, "/api/auth/validate-invitation?token=missing"},
	}
	for _, tc := range public {
		w := env.Request(tc.method, tc.path, nil, "")
		require.NotEqual(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}

	protected := []string{"/api/auth/me", "/api/auth/user", "/api/contacts", "/api/organization", "/api/audit"}
	for _, path := range protected {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}

	floating := env.Token("floating@example.com")
	me := env.Request(http.MethodGet, "/api/auth/me", nil, floating)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	contacts := env.Request(http.MethodGet, "/api/contacts", nil, floating)
	handlertest.RequireError(t, contacts, http.StatusNotFound, "PROFILE_NOT_FOUND")

	owner := env.Token("owner@example.com")
	ok := env.Request(http.MethodGet, "/api/contacts", nil, owner)
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())
}

func TestRouterSecurityHeadersAndMetrics(t *testing.T) {
	env := handlertest.NewEnv(t)

	health := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, health.Code)
	require.Equal(t, "nosniff", health.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "crm_api_latency_seconds")
}
