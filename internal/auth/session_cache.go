package auth

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/exteriorcrm/internal/cache"
)

const sessionCacheKeyPrefix = "auth:sessions:state:"

// SessionCache remembers whether a session is live so that authenticated
// requests do not hit the database on every call.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (active bool, found bool, err error)
	Set(ctx context.Context, sessionID string, active bool, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// NewSessionCache wraps the shared cache store (Redis or database).
func NewSessionCache(store cache.Store) SessionCache {
	if store == nil {
		return nil
	}
	return &sessionStoreCache{store: store}
}

type sessionStoreCache struct {
	store cache.Store
}

func (c *sessionStoreCache) Get(ctx context.Context, sessionID string) (bool, bool, error) {
	key := sessionCacheKey(sessionID)
	if key == "" {
		return false, false, nil
	}

	data, found, err := c.store.Get(ctx, key)
	if err != nil || !found {
		return false, false, err
	}
	return string(data) == "1", true, nil
}

func (c *sessionStoreCache) Set(ctx context.Context, sessionID string, active bool, ttl time.Duration) error {
	key := sessionCacheKey(sessionID)
	if key == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	value := []byte("0")
	if active {
		value = []byte("1")
	}
	return c.store.Set(ctx, key, value, ttl)
}

func (c *sessionStoreCache) Delete(ctx context.Context, sessionID string) error {
	key := sessionCacheKey(sessionID)
	if key == "" {
		return nil
	}
	return c.store.Delete(ctx, key)
}

func sessionCacheKey(sessionID string) string {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return ""
	}
	return sessionCacheKeyPrefix + id
}
