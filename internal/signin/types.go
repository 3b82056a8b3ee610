package signin

import (
	"context"
	"fmt"

	"github.com/florianilch/authkit/internal/userapi"
)

// Result codes set by Initiator.
const (
	CodeSuccess = "success"
	CodePanic   = "panic"
)

// Result is the outcome of a sign-in attempt.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// StartFlowParams is passed to the flow-starter.
type StartFlowParams struct {
	// RedirectURL is where the identity provider sends the user once the flow completes.
	RedirectURL string
}

// SetActiveParams selects the session to activate.
type SetActiveParams struct {
	Session string
}

// SetActiveFunc marks a session as the active one for the app.
type SetActiveFunc func(ctx context.Context, params SetActiveParams) error

// SignUp describes a user created by the flow. CreatedUserID is empty when the
// flow signed in an existing user.
type SignUp struct {
	CreatedUserID string
	FirstName     string
	LastName      string
	EmailAddress  string
}

// FlowResult is what a flow-starter returns. A flow that did not complete
// leaves CreatedSessionID or SetActive unset.
type FlowResult struct {
	CreatedSessionID string
	SetActive        SetActiveFunc
	SignUp           *SignUp
}

// StartFlowFunc begins the identity provider's redirect sequence.
type StartFlowFunc func(ctx context.Context, params StartFlowParams) (*FlowResult, error)

// Registrar registers newly signed-up users with the backend.
type Registrar interface {
	CreateUser(ctx context.Context, user userapi.User) error
}

// ErrorDetail is a single entry of a FlowError.
type ErrorDetail struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	LongMessage string `json:"long_message,omitempty"`
}

// FlowError is a structured error reported by the identity provider.
type FlowError struct {
	Code   string        `json:"code"`
	Errors []ErrorDetail `json:"errors"`
}

func (e *FlowError) Error() string {
	if msg := e.firstMessage(); msg != "" {
		return fmt.Sprintf("sign-in flow failed (%s): %s", e.Code, msg)
	}
	return fmt.Sprintf("sign-in flow failed (%s)", e.Code)
}

// ErrorCode returns the provider's error code.
func (e *FlowError) ErrorCode() string {
	return e.Code
}

// firstMessage returns the long message of the first detail, falling back to its short message.
func (e *FlowError) firstMessage() string {
	if len(e.Errors) == 0 {
		return ""
	}
	if e.Errors[0].LongMessage != "" {
		return e.Errors[0].LongMessage
	}
	return e.Errors[0].Message
}
