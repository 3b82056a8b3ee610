package tokencache

import (
	"fmt"
	"runtime"
)

// Runtime describes the kind of host authkit runs on.
type Runtime string

const (
	// RuntimeWeb is a host without OS-native secure storage (browser, WASM, headless server).
	RuntimeWeb Runtime = "web"
	// RuntimeNative is a desktop host with an OS keyring.
	RuntimeNative Runtime = "native"
)

// Environment is the information SelectBackend needs to pick a backend.
type Environment struct {
	Runtime Runtime
	// LocalStorage is the path of the persistent key-value file. Empty if unavailable.
	LocalStorage string
}

// DetectRuntime classifies the current host. getenv is usually os.Getenv.
func DetectRuntime(getenv func(string) string) Runtime {
	return detectRuntime(runtime.GOOS, getenv)
}

func detectRuntime(goos string, getenv func(string) string) Runtime {
	switch goos {
	case "js", "wasip1":
		return RuntimeWeb
	case "darwin", "windows":
		return RuntimeNative
	}

	// Secret Service is reached over the D-Bus session bus
	if getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		return RuntimeWeb
	}
	return RuntimeNative
}

// SelectBackend picks the backend for env, first match wins:
//  1. web runtime with a local storage path: FileBackend
//  2. web runtime without one: the process-wide MemoryBackend
//  3. native runtime: KeyringBackend for service
func SelectBackend(env Environment, service string) (Backend, error) {
	switch env.Runtime {
	case RuntimeWeb:
		if env.LocalStorage != "" {
			file, err := NewFileBackend(env.LocalStorage)
			if err != nil {
				return nil, fmt.Errorf("opening local storage: %w", err)
			}
			return file, nil
		}
		return SharedMemory(), nil
	case RuntimeNative:
		secure, err := NewKeyringBackend(service)
		if err != nil {
			return nil, err
		}
		return secure, nil
	default:
		return nil, fmt.Errorf("unsupported runtime: %q", env.Runtime)
	}
}
