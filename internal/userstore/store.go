// Package userstore persists registered users in SQLite.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// User is a registered user. ClerkID is the identity provider's user id and is unique.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Email     string    `gorm:"index" json:"email"`
	ClerkID   string    `gorm:"uniqueIndex;not null" json:"clerkId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store reads and writes users.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at dsn and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := ensureDirectory(dsn); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serializes writers instead of failing them with SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&User{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Store{db: db}, nil
}

// Upsert registers user, or updates name and email of the user with the same ClerkID.
// Reports whether a new record was created.
func (s *Store) Upsert(ctx context.Context, user User) (*User, bool, error) {
	if user.ClerkID == "" {
		return nil, false, fmt.Errorf("clerk id cannot be empty")
	}

	candidate := User{
		ID:      uuid.NewString(),
		Name:    user.Name,
		Email:   user.Email,
		ClerkID: user.ClerkID,
	}
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
	}).Create(&candidate).Error
	if err != nil {
		return nil, false, fmt.Errorf("saving user %s: %w", user.ClerkID, err)
	}

	var saved User
	if err := db.Where("clerk_id = ?", user.ClerkID).First(&saved).Error; err != nil {
		return nil, false, fmt.Errorf("loading user %s: %w", user.ClerkID, err)
	}
	// An existing row keeps its own ID
	return &saved, saved.ID == candidate.ID, nil
}

// GetByClerkID returns the user with the given ClerkID or ErrNotFound.
func (s *Store) GetByClerkID(ctx context.Context, clerkID string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", clerkID, err)
	}
	return &user, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ensureDirectory creates the parent directory of a file-backed DSN.
func ensureDirectory(dsn string) error {
	candidate := strings.TrimSpace(dsn)
	if candidate == "" || candidate == ":memory:" {
		return nil
	}

	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if candidate == ":memory:" {
		return nil
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0700)
}
