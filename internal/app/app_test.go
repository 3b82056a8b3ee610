package app

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// freePort returns a loopback port that was free a moment ago.
func freePort(t *testing.T) uint16 {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() { _ = l.Close() }()
	return uint16(l.Addr().(*net.TCPAddr).Port)
}

func TestAppStartStopsOnCancel(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	cfg.Database.Path = filepath.Join(t.TempDir(), "users.db")
	cfg.Server.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	application, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- application.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := &Config{}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("New() with empty config error = nil, want error")
	}
}

func TestNewRequiresDatabasePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("New() without database path error = nil, want error")
	}
}
