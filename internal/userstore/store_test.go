package userstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/florianilch/authkit/internal/userstore"
)

func openStore(t *testing.T) *userstore.Store {
	t.Helper()
	store, err := userstore.Open(context.Background(), filepath.Join(t.TempDir(), "db", "users.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	first, created, err := store.Upsert(ctx, userstore.User{Name: "Ada", Email: "ada@example.com", ClerkID: "user_1"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !created {
		t.Error("first Upsert() created = false, want true")
	}
	if first.ID == "" {
		t.Error("Upsert() assigned no id")
	}

	second, created, err := store.Upsert(ctx, userstore.User{Name: "Ada Lovelace", Email: "ada@example.org", ClerkID: "user_1"})
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if created {
		t.Error("second Upsert() created = true, want false")
	}
	if second.ID != first.ID {
		t.Errorf("second Upsert() id = %q, want %q", second.ID, first.ID)
	}

	got, err := store.GetByClerkID(ctx, "user_1")
	if err != nil {
		t.Fatalf("GetByClerkID() error = %v", err)
	}
	if got.Name != "Ada Lovelace" || got.Email != "ada@example.org" {
		t.Errorf("GetByClerkID() = %+v, want updated name and email", got)
	}
}

func TestGetByClerkIDNotFound(t *testing.T) {
	store := openStore(t)

	if _, err := store.GetByClerkID(context.Background(), "missing"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("GetByClerkID() error = %v, want ErrNotFound", err)
	}
}

func TestUpsertRequiresClerkID(t *testing.T) {
	store := openStore(t)

	if _, _, err := store.Upsert(context.Background(), userstore.User{Name: "Ada"}); err == nil {
		t.Error("Upsert() without clerk id error = nil, want error")
	}
}

func TestUpsertConcurrentFirstRegistration(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = make(map[string]bool)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, isNew, err := store.Upsert(ctx, userstore.User{Name: "Ada", Email: "ada@example.com", ClerkID: "user_1"})
			if err != nil {
				t.Errorf("Upsert() error = %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if isNew {
				created++
			}
			ids[user.ID] = true
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
	if len(ids) != 1 {
		t.Errorf("distinct ids = %d, want 1", len(ids))
	}
}

func TestOpenRejectsNonDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	if err := os.WriteFile(path, []byte("this is not an sqlite database, just plain text padding the header"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := userstore.Open(context.Background(), path); err == nil {
		t.Error("Open() on a non-database file error = nil, want error")
	}
}
