package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/authkit/internal/signin"
	"github.com/florianilch/authkit/internal/tokencache"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
	LogFormatOTel LogFormat = "otel"
)

// CacheRuntime selects how the token cache backend is chosen.
type CacheRuntime string

const (
	CacheRuntimeAuto   CacheRuntime = "auto"
	CacheRuntimeWeb    CacheRuntime = CacheRuntime(tokencache.RuntimeWeb)
	CacheRuntimeNative CacheRuntime = CacheRuntime(tokencache.RuntimeNative)
)

// SignInProvider represents the supported identity providers.
type SignInProvider string

const (
	SignInProviderGoogle SignInProvider = "google"
	SignInProviderCustom SignInProvider = "custom"
)

// LocalStorageNone disables the persistent token file so web runtimes keep
// tokens in process memory.
const LocalStorageNone = "none"

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigCacheRuntime    = CacheRuntimeAuto
	DefaultConfigKeyringService  = "authkit"
	DefaultConfigSignInProvider  = SignInProviderGoogle
	DefaultConfigRedirectScheme  = "authkit"
	DefaultConfigRedirectPath    = signin.DefaultRedirectPath
	DefaultConfigAPIBaseURL      = "http://127.0.0.1:4000"
	DefaultConfigServerHost      = "127.0.0.1"
	DefaultConfigServerPort      = 4000
	DefaultConfigShutdownTimeout = 5 * time.Second
)

// CacheConfig describes where tokens are stored.
type CacheConfig struct {
	Runtime CacheRuntime `json:"runtime" validate:"oneof=auto web native"`
	// LocalStorage is the persistent key-value file used on web runtimes.
	// LocalStorageNone (or no resolvable default) selects process memory instead.
	LocalStorage   string `json:"local_storage,omitempty"`
	KeyringService string `json:"keyring_service" validate:"required"`
}

// SignInConfig holds identity provider and redirect settings.
type SignInConfig struct {
	Provider     SignInProvider `json:"provider" validate:"oneof=google custom"`
	Name         string         `json:"name,omitempty"` // Display name, defaults per provider
	ClientID     string         `json:"client_id,omitempty"`
	ClientSecret string         `json:"client_secret,omitempty"`
	AuthURL      string         `json:"auth_url,omitempty" validate:"omitempty,url"`
	TokenURL     string         `json:"token_url,omitempty" validate:"omitempty,url"`
	UserInfoURL  string         `json:"userinfo_url,omitempty" validate:"omitempty,url"`
	Scopes       []string       `json:"scopes,omitempty"`

	RedirectScheme string `json:"redirect_scheme" validate:"required"`
	RedirectHost   string `json:"redirect_host,omitempty"`
	RedirectPath   string `json:"redirect_path" validate:"required"`
	// CallbackPort is the loopback port for the OAuth callback (0 picks a free port).
	CallbackPort uint16 `json:"callback_port"`
}

// APIConfig holds the backend API client configuration.
type APIConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// DatabaseConfig holds the user directory database configuration.
type DatabaseConfig struct {
	Path string `json:"path,omitempty"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json otel"`
	Cache     CacheConfig    `json:"cache"`
	SignIn    SignInConfig   `json:"signin"`
	API       APIConfig      `json:"api"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
	Database  DatabaseConfig `json:"database"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Cache.Runtime == "" {
		c.Cache.Runtime = DefaultConfigCacheRuntime
	}
	if c.Cache.KeyringService == "" {
		c.Cache.KeyringService = DefaultConfigKeyringService
	}
	if c.SignIn.Provider == "" {
		c.SignIn.Provider = DefaultConfigSignInProvider
	}
	if c.SignIn.RedirectScheme == "" {
		c.SignIn.RedirectScheme = DefaultConfigRedirectScheme
	}
	if c.SignIn.RedirectPath == "" {
		c.SignIn.RedirectPath = DefaultConfigRedirectPath
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}

	// Paths under the user's config directory. Without one both stay unset:
	// the token cache falls back to memory and serve asks for database.path.
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Debug("no user config directory, skipping path defaults", "error", err)
		return nil
	}
	if c.Cache.LocalStorage == "" {
		c.Cache.LocalStorage = filepath.Join(configDir, "authkit", "tokens.json")
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(configDir, "authkit", "users.db")
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.SignIn.Provider == SignInProviderCustom {
		if c.SignIn.AuthURL == "" || c.SignIn.TokenURL == "" || c.SignIn.UserInfoURL == "" {
			return errors.New("auth_url, token_url and userinfo_url required for custom provider")
		}
	}

	return nil
}

// RequireDatabase reports an error when no database path is configured.
// Only serve opens the user database.
func (d *DatabaseConfig) RequireDatabase() error {
	if d.Path == "" {
		return errors.New("database.path required (no user config directory to derive it from)")
	}
	return nil
}

// RequireClient reports an error when no OAuth client is configured.
// Only commands that talk to the identity provider need one.
func (s *SignInConfig) RequireClient() error {
	if s.ClientID == "" {
		return errors.New("signin.client_id required")
	}
	return nil
}
