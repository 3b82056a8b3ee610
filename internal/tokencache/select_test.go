package tokencache

import (
	"path/filepath"
	"testing"
)

func TestDetectRuntime(t *testing.T) {
	withBus := func(key string) string {
		if key == "DBUS_SESSION_BUS_ADDRESS" {
			return "unix:path=/run/user/1000/bus"
		}
		return ""
	}
	noBus := func(string) string { return "" }

	tests := []struct {
		goos   string
		getenv func(string) string
		want   Runtime
	}{
		{goos: "js", getenv: withBus, want: RuntimeWeb},
		{goos: "wasip1", getenv: noBus, want: RuntimeWeb},
		{goos: "darwin", getenv: noBus, want: RuntimeNative},
		{goos: "windows", getenv: noBus, want: RuntimeNative},
		{goos: "linux", getenv: withBus, want: RuntimeNative},
		{goos: "linux", getenv: noBus, want: RuntimeWeb},
		{goos: "freebsd", getenv: noBus, want: RuntimeWeb},
	}

	for _, tt := range tests {
		if got := detectRuntime(tt.goos, tt.getenv); got != tt.want {
			t.Errorf("detectRuntime(%q) = %q, want %q", tt.goos, got, tt.want)
		}
	}
}

func TestSelectBackend(t *testing.T) {
	localStorage := filepath.Join(t.TempDir(), "tokens.json")

	tests := []struct {
		name    string
		env     Environment
		check   func(Backend) bool
		wantErr bool
	}{
		{
			name:  "web with local storage",
			env:   Environment{Runtime: RuntimeWeb, LocalStorage: localStorage},
			check: func(b Backend) bool { _, ok := b.(*FileBackend); return ok },
		},
		{
			name:  "web without local storage",
			env:   Environment{Runtime: RuntimeWeb},
			check: func(b Backend) bool { return b == SharedMemory() },
		},
		{
			name:  "native ignores local storage",
			env:   Environment{Runtime: RuntimeNative, LocalStorage: localStorage},
			check: func(b Backend) bool { _, ok := b.(*KeyringBackend); return ok },
		},
		{
			name:    "unknown runtime",
			env:     Environment{Runtime: "tv"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := SelectBackend(tt.env, "authkit-test")
			if tt.wantErr {
				if err == nil {
					t.Fatal("SelectBackend() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectBackend() error = %v", err)
			}
			if !tt.check(b) {
				t.Errorf("SelectBackend() = %T, unexpected backend", b)
			}
		})
	}
}
