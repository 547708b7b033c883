package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotInitialised is returned by nil stores.
var ErrNotInitialised = errors.New("cache: store not initialised")

// Store represents a shared cache interface used across the application.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Purger is implemented by stores that need expired entries removed explicitly.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SetJSON stores value encoded as JSON.
func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	if store == nil {
		return ErrNotInitialised
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, payload, ttl)
}

// GetJSON decodes a JSON value previously written by SetJSON into dest.
func GetJSON(ctx context.Context, store Store, key string, dest any) (bool, error) {
	if store == nil {
		return false, ErrNotInitialised
	}
	payload, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}
