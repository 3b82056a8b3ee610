package oauthflow

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/florianilch/authkit/internal/signin"
)

const callbackPath = "/callback"

type callbackResult struct {
	code string
	err  error
}

// callbackHandler receives the provider redirect on the loopback listener.
// Only the first valid callback is delivered; requests with a wrong state are
// rejected without ending the flow.
type callbackHandler struct {
	state       string
	redirectURL string

	once   sync.Once
	result chan callbackResult
}

// Compile-time check that callbackHandler implements http.Handler
var _ http.Handler = (*callbackHandler)(nil)

func newCallbackHandler(state, redirectURL string) *callbackHandler {
	return &callbackHandler{
		state:       state,
		redirectURL: redirectURL,
		result:      make(chan callbackResult, 1),
	}
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != callbackPath {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	if q.Get("state") != h.state {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	if errCode := q.Get("error"); errCode != "" {
		h.deliver(callbackResult{err: &signin.FlowError{
			Code: errCode,
			Errors: []signin.ErrorDetail{{
				Code:        errCode,
				Message:     errCode,
				LongMessage: q.Get("error_description"),
			}},
		}})
		http.Error(w, "Sign-in failed. You can close this window.", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	if !h.deliver(callbackResult{code: code}) {
		http.Error(w, "sign-in already completed", http.StatusConflict)
		return
	}

	if h.redirectURL != "" {
		http.Redirect(w, r, h.redirectURL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "Signed in. You can close this window.")
}

// deliver reports whether res was the first result handed to the flow.
func (h *callbackHandler) deliver(res callbackResult) bool {
	delivered := false
	h.once.Do(func() {
		h.result <- res
		delivered = true
	})
	return delivered
}
