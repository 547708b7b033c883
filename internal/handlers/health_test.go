package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/app"
	"github.com/charlesng35/exteriorcrm/internal/cache"
	"github.com/charlesng35/exteriorcrm/internal/handlers/testutil"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
)

type healthBody struct {
	Success bool              `json:"success"`
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
}

func decodeHealth(t *testing.T, env *testutil.Env) (int, healthBody) {
	t.Helper()
	w := env.Request(http.MethodGet, "/health", nil, "")
	var body healthBody
	testutil.DecodeInto(t, w.Body.Bytes(), &body)
	return w.Code, body
}

func TestHealth_DatabaseOnly(t *testing.T) {
	env := testutil.NewEnv(t)

	code, body := decodeHealth(t, env)
	require.Equal(t, http.StatusOK, code)
	require.True(t, body.Success)
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "up", body.Checks["database"])
	require.NotContains(t, body.Checks, "cache")
}

func TestHealth_ReportsCacheOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore(context.Background(), cache.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := testutil.NewEnv(t, testutil.WithCachePinger(store))

	code, body := decodeHealth(t, env)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "up", body.Checks["cache"])

	mr.Close()

	code, body = decodeHealth(t, env)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.False(t, body.Success)
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "down", body.Checks["cache"])
}

func TestRateLimit_AuthEndpoints(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	env := testutil.NewEnv(t,
		testutil.WithRateStore(middleware.NewMemoryRateStore(ctx)),
		testutil.WithConfig(func(cfg *app.Config) {
			cfg.Server.RateLimit.AuthRequests = 2
		}),
	)

	payload := map[string]string{"email": "nobody@example.com", "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		w := env.Request(http.MethodPost, "/api/auth/login", payload, "")
		testutil.RequireError(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
		require.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	limited := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	testutil.RequireError(t, limited, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED")
	require.NotEmpty(t, limited.Header().Get("Retry-After"))

	health := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, health.Code)
}
