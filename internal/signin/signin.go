package signin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/florianilch/authkit/internal/deeplink"
	"github.com/florianilch/authkit/internal/userapi"
)

// DefaultRedirectPath is the in-app destination after a successful sign-in.
const DefaultRedirectPath = "/home"

// coder is implemented by errors that carry a machine-readable code.
type coder interface {
	ErrorCode() string
}

// Option configures an Initiator.
type Option func(*Initiator)

// WithProvider sets the provider name used in result messages. Defaults to "Google".
func WithProvider(name string) Option {
	return func(i *Initiator) {
		i.provider = name
	}
}

// WithRedirectPath sets the in-app path the redirect URL points to.
func WithRedirectPath(path string) Option {
	return func(i *Initiator) {
		i.redirectPath = path
	}
}

// WithLogger sets the logger for flow failures. If not provided, slog.Default() is used at call time.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Initiator) {
		i.logger = logger
	}
}

// Initiator runs sign-in flows.
type Initiator struct {
	links        *deeplink.Builder
	registrar    Registrar
	provider     string
	redirectPath string
	logger       *slog.Logger
}

// New creates an Initiator that builds redirect URLs with links and registers
// new users through registrar.
func New(links *deeplink.Builder, registrar Registrar, opts ...Option) (*Initiator, error) {
	if links == nil {
		return nil, fmt.Errorf("missing deep link builder")
	}
	if registrar == nil {
		return nil, fmt.Errorf("missing registrar")
	}

	i := &Initiator{
		links:        links,
		registrar:    registrar,
		provider:     "Google",
		redirectPath: DefaultRedirectPath,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Start runs the flow begun by start and reports the outcome. It does not retry
// and adds no timeout; cancel ctx to abandon a flow.
func (i *Initiator) Start(ctx context.Context, start StartFlowFunc) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			i.log().ErrorContext(ctx, "sign-in flow panicked", "provider", i.provider, "panic", r)
			result = Result{Code: CodePanic, Message: fmt.Sprint(r)}
		}
	}()

	if start == nil {
		return i.genericFailure()
	}

	completed, err := i.run(ctx, start)
	if err != nil {
		i.log().ErrorContext(ctx, "sign-in flow failed", "provider", i.provider, "error", err)
		return failureFromError(err)
	}
	if !completed {
		return i.genericFailure()
	}

	return Result{
		Success: true,
		Code:    CodeSuccess,
		Message: fmt.Sprintf("You have successfully signed in with %s", i.provider),
	}
}

// run reports whether a session was created and activated.
func (i *Initiator) run(ctx context.Context, start StartFlowFunc) (bool, error) {
	flow, err := start(ctx, StartFlowParams{
		RedirectURL: i.links.CreateURL(i.redirectPath, nil),
	})
	if err != nil {
		return false, err
	}
	if flow == nil || flow.CreatedSessionID == "" || flow.SetActive == nil {
		return false, nil
	}

	if err := flow.SetActive(ctx, SetActiveParams{Session: flow.CreatedSessionID}); err != nil {
		return false, fmt.Errorf("activating session: %w", err)
	}

	if su := flow.SignUp; su != nil && su.CreatedUserID != "" {
		user := userapi.User{
			Name:    strings.TrimSpace(su.FirstName + " " + su.LastName),
			Email:   su.EmailAddress,
			ClerkID: su.CreatedUserID,
		}
		if err := i.registrar.CreateUser(ctx, user); err != nil {
			return false, fmt.Errorf("registering user: %w", err)
		}
		i.log().InfoContext(ctx, "registered new user", "provider", i.provider, "user_id", su.CreatedUserID)
	}

	return true, nil
}

func (i *Initiator) genericFailure() Result {
	return Result{
		Message: fmt.Sprintf("An error occurred while signing in with %s", i.provider),
	}
}

func (i *Initiator) log() *slog.Logger {
	if i.logger != nil {
		return i.logger
	}
	return slog.Default()
}

// failureFromError extracts a code and message from err on a best-effort basis.
func failureFromError(err error) Result {
	result := Result{Message: err.Error()}

	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		if msg := flowErr.firstMessage(); msg != "" {
			result.Message = msg
		}
	}

	var c coder
	if errors.As(err, &c) {
		result.Code = c.ErrorCode()
	}
	return result
}
