package oauthflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"

	"github.com/florianilch/authkit/internal/signin"
	"github.com/florianilch/authkit/internal/tokencache"
)

// DefaultListenAddress binds the callback listener to a random loopback port.
const DefaultListenAddress = "127.0.0.1:0"

// Option configures a BrowserFlow.
type Option func(*browserFlowConfig)

// browserFlowConfig holds configuration for NewBrowserFlow.
type browserFlowConfig struct {
	baseTransport http.RoundTripper
	listenAddress string
	openURL       func(string) error
	logger        *slog.Logger
}

// WithTransport sets a custom base transport for token exchange and userinfo requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *browserFlowConfig) {
		c.baseTransport = transport
	}
}

// WithListenAddress sets the callback listener address. The provider must accept
// http://<address>/callback as a redirect URI.
func WithListenAddress(address string) Option {
	return func(c *browserFlowConfig) {
		c.listenAddress = address
	}
}

// WithURLOpener replaces the system browser launcher.
func WithURLOpener(open func(url string) error) Option {
	return func(c *browserFlowConfig) {
		c.openURL = open
	}
}

// WithLogger sets the logger. If not provided, slog.Default() is used at call time.
func WithLogger(logger *slog.Logger) Option {
	return func(c *browserFlowConfig) {
		c.logger = logger
	}
}

// BrowserFlow is a flow-starter that signs the user in through the system browser.
type BrowserFlow struct {
	provider      Provider
	cache         *tokencache.Cache
	httpClient    *http.Client
	listenAddress string
	openURL       func(string) error
	logger        *slog.Logger
}

// NewBrowserFlow creates a BrowserFlow for provider. Activated sessions are stored in cache.
func NewBrowserFlow(provider Provider, cache *tokencache.Cache, opts ...Option) (*BrowserFlow, error) {
	if err := provider.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider: %w", err)
	}
	if cache == nil {
		return nil, fmt.Errorf("missing token cache")
	}

	cfg := &browserFlowConfig{
		baseTransport: http.DefaultTransport,
		listenAddress: DefaultListenAddress,
		openURL:       browser.OpenURL,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &BrowserFlow{
		provider: provider,
		cache:    cache,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: cfg.baseTransport,
		},
		listenAddress: cfg.listenAddress,
		openURL:       cfg.openURL,
		logger:        cfg.logger,
	}, nil
}

// Start implements signin.StartFlowFunc. It blocks until the provider redirects
// back to the callback listener or ctx is done.
func (f *BrowserFlow) Start(ctx context.Context, params signin.StartFlowParams) (*signin.FlowResult, error) {
	listener, err := net.Listen("tcp", f.listenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", f.listenAddress, err)
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	oauthConfig := f.provider.OAuth2Config()
	oauthConfig.RedirectURL = "http://" + listener.Addr().String() + callbackPath

	callback := newCallbackHandler(state, params.RedirectURL)
	server := &http.Server{
		Handler:           callback,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = server.Serve(listener) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	f.log().InfoContext(ctx, "waiting for browser sign-in", "provider", f.provider.Name, "url", authURL)
	if err := f.openURL(authURL); err != nil {
		f.log().WarnContext(ctx, "failed to open browser, open the URL manually", "url", authURL, "error", err)
	}

	var code string
	select {
	case res := <-callback.result:
		if res.err != nil {
			return nil, res.err
		}
		code = res.code
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// oauth2 package injects custom HTTP clients via context (oauth2.HTTPClient key)
	clientCtx := context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	token, err := oauthConfig.Exchange(clientCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, exchangeError(err)
	}

	info, err := FetchUserInfo(ctx, oauthConfig.Client(clientCtx, token), f.provider.UserInfoURL)
	if err != nil {
		return nil, err
	}

	result := &signin.FlowResult{
		CreatedSessionID: uuid.NewString(),
		SetActive:        f.activate(token, info),
	}
	if _, known := f.cache.GetToken(ctx, userKey(info.Subject)); !known {
		result.SignUp = &signin.SignUp{
			CreatedUserID: info.Subject,
			FirstName:     info.GivenName,
			LastName:      info.FamilyName,
			EmailAddress:  info.Email,
		}
	}
	return result, nil
}

// activate returns the SetActive capability for a completed flow. It stores the
// token and session id, and marks the user as known so later flows skip registration.
func (f *BrowserFlow) activate(token *oauth2.Token, info *UserInfo) signin.SetActiveFunc {
	return func(ctx context.Context, params signin.SetActiveParams) error {
		raw, err := json.Marshal(token)
		if err != nil {
			return fmt.Errorf("encoding token: %w", err)
		}

		f.cache.SaveToken(ctx, SessionTokenKey, string(raw))
		f.cache.SaveToken(ctx, SessionIDKey, params.Session)
		f.cache.SaveToken(ctx, userKey(info.Subject), info.Email)
		return nil
	}
}

func (f *BrowserFlow) log() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	return slog.Default()
}

// exchangeError converts a token endpoint error response into a signin.FlowError.
func exchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
		return &signin.FlowError{
			Code: retrieveErr.ErrorCode,
			Errors: []signin.ErrorDetail{{
				Code:        retrieveErr.ErrorCode,
				Message:     retrieveErr.ErrorCode,
				LongMessage: retrieveErr.ErrorDescription,
			}},
		}
	}
	return fmt.Errorf("exchanging authorization code: %w", err)
}
