package tokencache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Cache is the token cache used by the sign-in flow.
// It never surfaces backend errors: a failed read is reported as a missing value
// and a failed write is dropped. Failures are only visible through the logger.
type Cache struct {
	backend Backend
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report swallowed backend failures.
// If not provided, slog.Default() is used at call time.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a Cache on top of backend.
func New(backend Backend, opts ...Option) (*Cache, error) {
	if backend == nil {
		return nil, fmt.Errorf("missing backend")
	}

	c := &Cache{backend: backend}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetToken returns the value stored under key and whether one was found.
// On a read failure the entry is considered corrupt: it is deleted on a
// best-effort basis and the key reported as absent.
func (c *Cache) GetToken(ctx context.Context, key string) (string, bool) {
	value, err := c.backend.Get(ctx, key)
	if err == nil {
		c.log().DebugContext(ctx, "token was used", "key", key)
		return value, true
	}
	if errors.Is(err, ErrNotFound) {
		c.log().DebugContext(ctx, "no value stored under key", "key", key)
		return "", false
	}

	c.log().ErrorContext(ctx, "token cache read failed", "key", key, "error", err)
	_ = c.backend.Delete(ctx, key)
	return "", false
}

// SaveToken stores value under key, overwriting any prior value. Failures are dropped.
func (c *Cache) SaveToken(ctx context.Context, key, value string) {
	if err := c.backend.Set(ctx, key, value); err != nil {
		c.log().DebugContext(ctx, "token cache write dropped", "key", key, "error", err)
	}
}

// DeleteToken removes key. Failures are dropped.
func (c *Cache) DeleteToken(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, key); err != nil {
		c.log().DebugContext(ctx, "token cache delete dropped", "key", key, "error", err)
	}
}

func (c *Cache) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
