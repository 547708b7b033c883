package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/cache"
)

func newTestStateStore(t *testing.T, now func() time.Time) (*StateStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	store, err := cache.NewRedisStore(context.Background(), cache.RedisConfig{Address: server.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	states, err := NewStateStore(store, time.Minute, now)
	require.NoError(t, err)
	return states, server
}

func TestStateStoreRoundTripIsSingleUse(t *testing.T) {
	states, _ := newTestStateStore(t, nil)
	ctx := context.Background()

	state, err := states.Save(ctx, StatePayload{ReturnURL: "/dashboard", Nonce: "nonce", PKCE: "verifier"})
	require.NoError(t, err)
	require.NotEmpty(t, state)

	payload, err := states.Consume(ctx, state)
	require.NoError(t, err)
	require.Equal(t, "/dashboard", payload.ReturnURL)
	require.Equal(t, "nonce", payload.Nonce)
	require.Equal(t, "verifier", payload.PKCE)

	_, err = states.Consume(ctx, state)
	require.ErrorIs(t, err, ErrStateInvalid)
}

func TestStateStoreExpires(t *testing.T) {
	states, server := newTestStateStore(t, nil)
	ctx := context.Background()

	state, err := states.Save(ctx, StatePayload{Nonce: "n", PKCE: "p"})
	require.NoError(t, err)

	server.FastForward(2 * time.Minute)
	_, err = states.Consume(ctx, state)
	require.ErrorIs(t, err, ErrStateInvalid)

	_, err = states.Consume(ctx, "")
	require.ErrorIs(t, err, ErrStateInvalid)
}

func TestGeneratePKCE(t *testing.T) {
	pair, err := GeneratePKCE()
	require.NoError(t, err)
	require.NotEmpty(t, pair.Verifier)
	require.NotEqual(t, pair.Verifier, pair.Challenge)
	require.NotContains(t, pair.Challenge, "=")
}
