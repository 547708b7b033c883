package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/exteriorcrm/internal/cache"
	"github.com/charlesng35/exteriorcrm/pkg/crypto"
)

// DefaultStateTTL bounds how long a sign-in attempt may take at the provider.
const DefaultStateTTL = 10 * time.Minute

const stateKeyPrefix = "auth:oidc:state:"

// ErrStateInvalid is returned for unknown, reused or expired state values.
var ErrStateInvalid = errors.New("sso state: invalid")

// StatePayload captures data required to validate the callback and resume the login flow.
type StatePayload struct {
	ReturnURL string    `json:"r"`
	Nonce     string    `json:"n"`
	PKCE      string    `json:"k"`
	IssuedAt  time.Time `json:"iat"`
}

// StateStore keeps pending sign-in attempts in the shared cache. Each state
// value can be consumed once.
type StateStore struct {
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewStateStore builds a StateStore on top of the cache store.
func NewStateStore(store cache.Store, ttl time.Duration, now func() time.Time) (*StateStore, error) {
	if store == nil {
		return nil, errors.New("sso state: cache store is required")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if now == nil {
		now = time.Now
	}
	return &StateStore{store: store, ttl: ttl, now: now}, nil
}

// Save records the payload and returns the opaque state value to send to the provider.
func (s *StateStore) Save(ctx context.Context, payload StatePayload) (string, error) {
	state, err := crypto.GenerateToken(32)
	if err != nil {
		return "", fmt.Errorf("sso state: generate: %w", err)
	}
	payload.IssuedAt = s.now().UTC()

	if err := cache.SetJSON(ctx, s.store, stateKeyPrefix+crypto.HashToken(state), payload, s.ttl); err != nil {
		return "", fmt.Errorf("sso state: store: %w", err)
	}
	return state, nil
}

// Consume loads and deletes the payload for state.
func (s *StateStore) Consume(ctx context.Context, state string) (StatePayload, error) {
	var payload StatePayload
	state = strings.TrimSpace(state)
	if state == "" {
		return payload, ErrStateInvalid
	}

	key := stateKeyPrefix + crypto.HashToken(state)
	found, err := cache.GetJSON(ctx, s.store, key, &payload)
	if err != nil {
		return payload, fmt.Errorf("sso state: load: %w", err)
	}
	if !found {
		return payload, ErrStateInvalid
	}
	_ = s.store.Delete(ctx, key)

	if s.now().UTC().After(payload.IssuedAt.Add(s.ttl)) {
		return payload, ErrStateInvalid
	}
	return payload, nil
}
