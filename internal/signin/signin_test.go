package signin_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/florianilch/authkit/internal/deeplink"
	"github.com/florianilch/authkit/internal/signin"
	"github.com/florianilch/authkit/internal/userapi"
)

const genericFailure = "An error occurred while signing in with Google"

// fakeRegistrar records CreateUser calls.
type fakeRegistrar struct {
	users []userapi.User
	err   error
}

func (f *fakeRegistrar) CreateUser(_ context.Context, user userapi.User) error {
	f.users = append(f.users, user)
	return f.err
}

func newInitiator(t *testing.T, registrar signin.Registrar) *signin.Initiator {
	t.Helper()
	links, err := deeplink.New("authkit", "")
	if err != nil {
		t.Fatalf("deeplink.New() error = %v", err)
	}
	i, err := signin.New(links, registrar, signin.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("signin.New() error = %v", err)
	}
	return i
}

// activation records the session passed to SetActive.
type activation struct {
	sessions []string
	err      error
}

func (a *activation) setActive(_ context.Context, params signin.SetActiveParams) error {
	a.sessions = append(a.sessions, params.Session)
	return a.err
}

func TestStartPassesRedirectURL(t *testing.T) {
	var got string
	i := newInitiator(t, &fakeRegistrar{})

	i.Start(context.Background(), func(_ context.Context, params signin.StartFlowParams) (*signin.FlowResult, error) {
		got = params.RedirectURL
		return nil, nil
	})

	if got != "authkit://home" {
		t.Errorf("RedirectURL = %q, want %q", got, "authkit://home")
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		name          string
		flow          func(a *activation) (*signin.FlowResult, error)
		registrarErr  error
		activationErr error
		want          signin.Result
		wantSessions  int
		wantUsers     []userapi.User
	}{
		{
			name: "no session created",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return &signin.FlowResult{SetActive: a.setActive}, nil
			},
			want: signin.Result{Message: genericFailure},
		},
		{
			name: "no activation capability",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return &signin.FlowResult{CreatedSessionID: "sess_1"}, nil
			},
			want: signin.Result{Message: genericFailure},
		},
		{
			name: "nil flow result",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return nil, nil
			},
			want: signin.Result{Message: genericFailure},
		},
		{
			name: "existing user signs in",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return &signin.FlowResult{
					CreatedSessionID: "sess_1",
					SetActive:        a.setActive,
					SignUp:           &signin.SignUp{FirstName: "Ada"},
				}, nil
			},
			want: signin.Result{
				Success: true,
				Code:    signin.CodeSuccess,
				Message: "You have successfully signed in with Google",
			},
			wantSessions: 1,
		},
		{
			name: "new user is registered once",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return &signin.FlowResult{
					CreatedSessionID: "sess_1",
					SetActive:        a.setActive,
					SignUp: &signin.SignUp{
						CreatedUserID: "user_1",
						FirstName:     "Ada",
						LastName:      "Lovelace",
						EmailAddress:  "ada@example.com",
					},
				}, nil
			},
			want: signin.Result{
				Success: true,
				Code:    signin.CodeSuccess,
				Message: "You have successfully signed in with Google",
			},
			wantSessions: 1,
			wantUsers: []userapi.User{
				{Name: "Ada Lovelace", Email: "ada@example.com", ClerkID: "user_1"},
			},
		},
		{
			name: "flow error with details",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return nil, &signin.FlowError{
					Code: "oauth_access_denied",
					Errors: []signin.ErrorDetail{
						{Code: "oauth_access_denied", Message: "denied", LongMessage: "You did not grant access."},
						{Code: "other", LongMessage: "ignored"},
					},
				}
			},
			want: signin.Result{Code: "oauth_access_denied", Message: "You did not grant access."},
		},
		{
			name: "wrapped flow error without long message",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return nil, fmt.Errorf("exchange: %w", &signin.FlowError{
					Code:   "invalid_grant",
					Errors: []signin.ErrorDetail{{Message: "code expired"}},
				})
			},
			want: signin.Result{Code: "invalid_grant", Message: "code expired"},
		},
		{
			name: "plain error",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return nil, errors.New("network unreachable")
			},
			want: signin.Result{Message: "network unreachable"},
		},
		{
			name: "activation fails",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return &signin.FlowResult{CreatedSessionID: "sess_1", SetActive: a.setActive}, nil
			},
			activationErr: errors.New("session revoked"),
			want:          signin.Result{Message: "activating session: session revoked"},
			wantSessions:  1,
		},
		{
			name: "registration fails",
			flow: func(a *activation) (*signin.FlowResult, error) {
				return &signin.FlowResult{
					CreatedSessionID: "sess_1",
					SetActive:        a.setActive,
					SignUp:           &signin.SignUp{CreatedUserID: "user_1"},
				}, nil
			},
			registrarErr: &userapi.APIError{StatusCode: 500, Message: "database down"},
			want:         signin.Result{Code: "500", Message: "registering user: user API returned 500: database down"},
			wantSessions: 1,
			wantUsers:    []userapi.User{{ClerkID: "user_1"}},
		},
		{
			name: "flow panics",
			flow: func(a *activation) (*signin.FlowResult, error) {
				panic("sdk bug")
			},
			want: signin.Result{Code: signin.CodePanic, Message: "sdk bug"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registrar := &fakeRegistrar{err: tt.registrarErr}
			act := &activation{err: tt.activationErr}
			i := newInitiator(t, registrar)

			got := i.Start(context.Background(), func(context.Context, signin.StartFlowParams) (*signin.FlowResult, error) {
				return tt.flow(act)
			})

			if got != tt.want {
				t.Errorf("Start() = %+v, want %+v", got, tt.want)
			}
			if len(act.sessions) != tt.wantSessions {
				t.Errorf("SetActive calls = %d, want %d", len(act.sessions), tt.wantSessions)
			}
			for _, s := range act.sessions {
				if s != "sess_1" {
					t.Errorf("SetActive session = %q, want sess_1", s)
				}
			}
			if len(registrar.users) != len(tt.wantUsers) {
				t.Fatalf("CreateUser calls = %d, want %d", len(registrar.users), len(tt.wantUsers))
			}
			for idx, want := range tt.wantUsers {
				if registrar.users[idx] != want {
					t.Errorf("CreateUser(%d) = %+v, want %+v", idx, registrar.users[idx], want)
				}
			}
		})
	}
}

func TestStartNilFlow(t *testing.T) {
	i := newInitiator(t, &fakeRegistrar{})

	got := i.Start(context.Background(), nil)
	if got.Success || got.Message != genericFailure {
		t.Errorf("Start(nil) = %+v, want generic failure", got)
	}
}

func TestStartProviderName(t *testing.T) {
	links, err := deeplink.New("authkit", "")
	if err != nil {
		t.Fatalf("deeplink.New() error = %v", err)
	}
	i, err := signin.New(links, &fakeRegistrar{}, signin.WithProvider("GitHub"), signin.WithRedirectPath("/rides"))
	if err != nil {
		t.Fatalf("signin.New() error = %v", err)
	}

	var redirect string
	got := i.Start(context.Background(), func(_ context.Context, p signin.StartFlowParams) (*signin.FlowResult, error) {
		redirect = p.RedirectURL
		return &signin.FlowResult{}, nil
	})

	if got.Message != "An error occurred while signing in with GitHub" {
		t.Errorf("Message = %q", got.Message)
	}
	if redirect != "authkit://rides" {
		t.Errorf("RedirectURL = %q, want authkit://rides", redirect)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	links, err := deeplink.New("authkit", "")
	if err != nil {
		t.Fatalf("deeplink.New() error = %v", err)
	}
	if _, err := signin.New(nil, &fakeRegistrar{}); err == nil {
		t.Error("New(nil links) error = nil, want error")
	}
	if _, err := signin.New(links, nil); err == nil {
		t.Error("New(nil registrar) error = nil, want error")
	}
}
