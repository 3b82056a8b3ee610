package tokencache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// errCorrupt marks a store file that exists but cannot be decoded.
var errCorrupt = errors.New("corrupt token file")

// FileBackend stores all keys in a single JSON object file with secure permissions.
// Writes use temp file + rename for crash safety.
type FileBackend struct {
	filePath string
	mu       sync.Mutex
}

// Compile-time check to ensure FileBackend implements Backend
var _ Backend = (*FileBackend)(nil)

// NewFileBackend creates a FileBackend for the given path, creating parent directories
// with 0700 permissions if they don't exist. The file itself is created on first write.
func NewFileBackend(filePath string) (*FileBackend, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return &FileBackend{
		filePath: filePath,
	}, nil
}

// Get returns the value stored under key. Returns error if the file has insecure
// permissions or cannot be decoded.
func (f *FileBackend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", err
	}

	value, ok := entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under key and rewrites the file atomically.
func (f *FileBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}

	entries[key] = value
	return f.save(ctx, entries)
}

// Delete removes key. A file that cannot be decoded is reset to an empty store,
// since none of its entries are readable anyway.
func (f *FileBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	switch {
	case errors.Is(err, errCorrupt):
		entries = make(map[string]string)
	case err != nil:
		return err
	default:
		if _, ok := entries[key]; !ok {
			return nil
		}
		delete(entries, key)
	}

	return f.save(ctx, entries)
}

// load reads the whole store. A missing or empty file is an empty store.
func (f *FileBackend) load() (map[string]string, error) {
	info, err := os.Stat(f.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}
	if info.Mode().Perm() != 0600 {
		return nil, fmt.Errorf("insecure permissions on %s: %04o (expected 0600)", f.filePath, info.Mode().Perm())
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w %s: %v", errCorrupt, f.filePath, err)
	}
	return entries, nil
}

// save atomically replaces the store file. Sets file permissions to 0600 (owner read/write only).
func (f *FileBackend) save(ctx context.Context, entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token file: %w", err)
	}

	// Create secure temp file in same directory for atomic rename
	dir := filepath.Dir(f.filePath)
	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(append(data, '\n')); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tempName, f.filePath); err != nil {
		return err
	}

	return os.Chmod(f.filePath, 0600)
}
