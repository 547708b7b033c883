package auditctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{AccountID: "acc-1", IPAddress: "10.0.0.1"})

	actor, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "acc-1", actor.AccountID)
	require.Equal(t, "10.0.0.1", actor.IPAddress)
}

func TestFromContextWithoutActor(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	var nilCtx context.Context
	_, ok = FromContext(nilCtx)
	require.False(t, ok)

	ctx := WithActor(nilCtx, Actor{Email: "crew@example.com"})
	actor, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "crew@example.com", actor.Email)
}
