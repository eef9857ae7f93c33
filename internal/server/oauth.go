package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/sptx/internal/services"
	"github.com/desertthunder/sptx/internal/shared"
)

// LoginFunc completes an authorization by exchanging code.
type LoginFunc func(ctx context.Context, code string) (*services.Login, error)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Slot  string
	Login *services.Login
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the authorization-code callback for one sign-in.
type OAuthHandler struct {
	login       LoginFunc
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a handler that accepts exactly one callback carrying state.
// State values come from [services.NewState] so the slot can be recovered.
func NewOAuthHandler(login LoginFunc, state string) *OAuthHandler {
	return &OAuthHandler{
		login:      login,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates state, completes the login, and sends the result through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	state := q.Get("state")
	if state != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: state mismatch", shared.ErrInvalidState)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}
	slot := services.SlotFromState(state)

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))
		h.Send(OAuthResult{Slot: slot, err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	login, err := h.login(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{Slot: slot, err: err})
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.Send(OAuthResult{Slot: slot, Login: login})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	successPage.Execute(w, struct{ Name, Slot string }{login.User.Name(), slot})
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Signed in as {{.Name}}</h1>
        <p>Saved as the {{.Slot}} account. You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`))
