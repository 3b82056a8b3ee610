package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

// runCommand runs authkit with args and returns what it wrote.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &out
	err := cmd.Run(context.Background(), append([]string{"authkit", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestTokenCommandsInMemory(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T)
		cacheArgs []string
	}{
		{
			name:      "local storage disabled",
			setup:     func(t *testing.T) { t.Setenv("XDG_CONFIG_HOME", t.TempDir()) },
			cacheArgs: []string{"--cache--runtime", "web", "--cache--local-storage", "none"},
		},
		{
			name: "no config directory",
			setup: func(t *testing.T) {
				t.Setenv("XDG_CONFIG_HOME", "")
				t.Setenv("HOME", "")
			},
			cacheArgs: []string{"--cache--runtime", "web"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			key := "memory-" + strings.ReplaceAll(tt.name, " ", "-")

			setArgs := append(append([]string{"token", "set"}, tt.cacheArgs...), key, "kept-in-process")
			if _, err := runCommand(t, setArgs...); err != nil {
				t.Fatalf("token set error = %v", err)
			}

			getArgs := append(append([]string{"token", "get"}, tt.cacheArgs...), key)
			out, err := runCommand(t, getArgs...)
			if err != nil {
				t.Fatalf("token get error = %v", err)
			}
			if got := strings.TrimSpace(out); got != "kept-in-process" {
				t.Errorf("token get = %q, want kept-in-process", got)
			}
		})
	}
}

func TestTokenCommands(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	storage := filepath.Join(t.TempDir(), "tokens.json")
	cacheArgs := []string{"--cache--runtime", "web", "--cache--local-storage", storage}

	subcommand := func(name string, rest ...string) []string {
		args := append([]string{"token", name}, cacheArgs...)
		return append(args, rest...)
	}

	if _, err := runCommand(t, subcommand("set", "api", "secret-value")...); err != nil {
		t.Fatalf("token set error = %v", err)
	}

	out, err := runCommand(t, subcommand("get", "api")...)
	if err != nil {
		t.Fatalf("token get error = %v", err)
	}
	if got := strings.TrimSpace(out); got != "secret-value" {
		t.Errorf("token get = %q, want secret-value", got)
	}

	if _, err := runCommand(t, subcommand("delete", "api")...); err != nil {
		t.Fatalf("token delete error = %v", err)
	}

	if _, err := runCommand(t, subcommand("get", "api")...); err == nil {
		t.Error("token get after delete expected error, got nil")
	}
}

func TestTokenCommands_MissingKey(t *testing.T) {
	for _, name := range []string{"get", "set", "delete"} {
		t.Run(name, func(t *testing.T) {
			cmd := newRootCommand()
			cmd.Writer = &bytes.Buffer{}
			cmd.ErrWriter = &bytes.Buffer{}
			err := cmd.Run(context.Background(), []string{"authkit", "token", name})
			if err == nil || !strings.Contains(err.Error(), "missing KEY") {
				t.Errorf("error = %v, want missing KEY", err)
			}
		})
	}
}
