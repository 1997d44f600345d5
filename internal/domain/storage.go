package domain

import "context"

// KeyValueStore is durable storage for the handful of records the dashboard
// keeps between runs (session user, token placeholder, current weather).
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
