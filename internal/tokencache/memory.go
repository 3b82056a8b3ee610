package tokencache

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in process memory. Values are lost when the process exits.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]string
}

// Compile-time check to ensure MemoryBackend implements Backend
var _ Backend = (*MemoryBackend)(nil)

var sharedMemory = sync.OnceValue(NewMemoryBackend)

// SharedMemory returns the process-wide MemoryBackend used as the fallback store.
func SharedMemory() *MemoryBackend {
	return sharedMemory()
}

// NewMemoryBackend creates an empty, isolated MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]string),
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
