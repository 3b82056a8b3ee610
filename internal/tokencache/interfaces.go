package tokencache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend when no value is stored under a key.
var ErrNotFound = errors.New("no value stored under key")

// Backend reads and writes string values by key.
type Backend interface {
	// Get returns the value stored under key. Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
