// Package tokencache stores opaque string tokens by key for the sign-in flow.
//
// Three backends cover the runtimes authkit runs in:
//   - File: a persistent local key-value file, the equivalent of browser local storage
//   - Memory: a process-wide in-memory map, used when no persistent store exists (lost on exit)
//   - Keyring: OS-native secure storage (macOS Keychain, Windows Credential Manager, Secret Service)
//
// SelectBackend picks one of them once at startup. Cache wraps the chosen backend
// and never returns errors to its callers: failed reads count as "no value" and
// failed writes are dropped.
package tokencache
