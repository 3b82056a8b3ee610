package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	"github.com/florianilch/authkit/internal/userstore"
)

// maxBodyBytes bounds registration request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// UserStore is the persistence the user handlers need.
type UserStore interface {
	Upsert(ctx context.Context, user userstore.User) (*userstore.User, bool, error)
	GetByClerkID(ctx context.Context, clerkID string) (*userstore.User, error)
}

// registerUserRequest is the body of POST /user.
type registerUserRequest struct {
	Name    string `json:"name" validate:"max=200"`
	Email   string `json:"email" validate:"required,email"`
	ClerkID string `json:"clerkId" validate:"required,max=200"`
}

// RegisterUserHandler handles POST /user. Registering an existing ClerkID updates
// the record instead of creating a duplicate.
type RegisterUserHandler struct {
	Store UserStore
}

// Compile-time check to ensure RegisterUserHandler implements http.Handler
var _ http.Handler = (*RegisterUserHandler)(nil)

func (h *RegisterUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerUserRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		slog.DebugContext(ctx, "failed to decode request", "error", err)
		writeJSONError(ctx, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSONError(ctx, w, validationMessage(err), http.StatusBadRequest)
		return
	}

	user, created, err := h.Store.Upsert(ctx, userstore.User{
		Name:    req.Name,
		Email:   req.Email,
		ClerkID: req.ClerkID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to save user", "clerk_id", req.ClerkID, "error", err)
		writeJSONError(ctx, w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		slog.InfoContext(ctx, "user registered", "clerk_id", user.ClerkID, "user_id", user.ID)
	}
	writeJSON(ctx, w, DataResponse{Data: user}, status)
}

// GetUserHandler handles GET /user/{clerkId}.
type GetUserHandler struct {
	Store UserStore
}

// Compile-time check to ensure GetUserHandler implements http.Handler
var _ http.Handler = (*GetUserHandler)(nil)

func (h *GetUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var clerkID string
	err := runtime.BindStyledParameterWithOptions("simple", "clerkId", r.PathValue("clerkId"), &clerkID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeJSONError(ctx, w, "invalid clerkId", http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetByClerkID(ctx, clerkID)
	if errors.Is(err, userstore.ErrNotFound) {
		writeJSONError(ctx, w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load user", "clerk_id", clerkID, "error", err)
		writeJSONError(ctx, w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(ctx, w, DataResponse{Data: user}, http.StatusOK)
}

// validationMessage names the first invalid field.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Field() + " is invalid"
	}
	return "invalid request"
}
