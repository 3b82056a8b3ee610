package app

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/florianilch/authkit/internal/deeplink"
	"github.com/florianilch/authkit/internal/oauthflow"
	"github.com/florianilch/authkit/internal/signin"
	"github.com/florianilch/authkit/internal/tokencache"
	"github.com/florianilch/authkit/internal/userapi"
)

// Environment resolves the token cache environment, detecting the runtime if set to auto.
func (c *CacheConfig) Environment(getenv func(string) string) tokencache.Environment {
	runtime := tokencache.Runtime(c.Runtime)
	if c.Runtime == CacheRuntimeAuto {
		runtime = tokencache.DetectRuntime(getenv)
	}
	localStorage := c.LocalStorage
	if localStorage == LocalStorageNone {
		localStorage = ""
	}
	return tokencache.Environment{
		Runtime:      runtime,
		LocalStorage: localStorage,
	}
}

// NewTokenCache selects the token cache backend once and wraps it in a Cache.
func NewTokenCache(cfg CacheConfig) (*tokencache.Cache, error) {
	env := cfg.Environment(os.Getenv)

	backend, err := tokencache.SelectBackend(env, cfg.KeyringService)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache backend: %w", err)
	}
	slog.Debug("token cache backend selected", "runtime", env.Runtime, "backend", fmt.Sprintf("%T", backend))

	return tokencache.New(backend)
}

// OAuthProvider builds the identity provider description from configuration.
func (s *SignInConfig) OAuthProvider() oauthflow.Provider {
	var p oauthflow.Provider
	switch s.Provider {
	case SignInProviderCustom:
		p = oauthflow.Provider{
			Name:         "your identity provider",
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  s.AuthURL,
				TokenURL: s.TokenURL,
			},
			UserInfoURL: s.UserInfoURL,
		}
	default:
		p = oauthflow.Google(s.ClientID, s.ClientSecret)
	}

	if s.Name != "" {
		p.Name = s.Name
	}
	if len(s.Scopes) > 0 {
		p.Scopes = s.Scopes
	}
	return p
}

// NewInitiator creates the sign-in Initiator with its redirect builder and API client.
func NewInitiator(cfg *Config) (*signin.Initiator, error) {
	links, err := deeplink.New(cfg.SignIn.RedirectScheme, cfg.SignIn.RedirectHost)
	if err != nil {
		return nil, fmt.Errorf("failed to create redirect builder: %w", err)
	}

	apiClient, err := userapi.NewClient(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return signin.New(links, apiClient,
		signin.WithProvider(cfg.SignIn.OAuthProvider().Name),
		signin.WithRedirectPath(cfg.SignIn.RedirectPath),
	)
}

// NewBrowserFlow creates the flow-starter for the configured provider.
func NewBrowserFlow(cfg *Config, cache *tokencache.Cache, opts ...oauthflow.Option) (*oauthflow.BrowserFlow, error) {
	address := net.JoinHostPort("127.0.0.1", strconv.FormatUint(uint64(cfg.SignIn.CallbackPort), 10))
	opts = append([]oauthflow.Option{oauthflow.WithListenAddress(address)}, opts...)

	return oauthflow.NewBrowserFlow(cfg.SignIn.OAuthProvider(), cache, opts...)
}
