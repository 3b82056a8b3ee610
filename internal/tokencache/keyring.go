package tokencache

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringBackend stores values in OS-native secure credential storage.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
// Each key is stored as a separate item under the backend's service name.
type KeyringBackend struct {
	service string
}

// Compile-time check to ensure KeyringBackend implements Backend
var _ Backend = (*KeyringBackend)(nil)

// NewKeyringBackend creates a KeyringBackend that files items under the given service.
func NewKeyringBackend(service string) (*KeyringBackend, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}

	return &KeyringBackend{
		service: service,
	}, nil
}

// Get returns the value from the system keyring.
func (k *KeyringBackend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s/%s: %w", k.service, key, err)
	}
	return value, nil
}

// Set writes the value to the system keyring, overwriting any existing item.
func (k *KeyringBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keyring set %s/%s: %w", k.service, key, err)
	}
	return nil
}

// Delete removes the item from the system keyring.
func (k *KeyringBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := keyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s/%s: %w", k.service, key, err)
	}
	return nil
}
