package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/sptx/internal/shared"
)

// NotRegisteredHint is shown when the API answers 403 with a non-JSON body,
// which happens for accounts missing from the app's user allowlist.
const NotRegisteredHint = "account not authorized on this application (add it under User Management in the Spotify Developer Dashboard)"

// RemoteAPIError is a failed API call. Message is the provider's own message where one was given.
//
// Unwrap yields one of [shared.ErrAPIRequest], [shared.ErrTokenExpired],
// [shared.ErrMalformedResponse] or [shared.ErrNotRegistered].
type RemoteAPIError struct {
	Status  int
	Message string
	Kind    error
}

func (e *RemoteAPIError) Error() string { return e.Message }

func (e *RemoteAPIError) Unwrap() error { return e.Kind }

// errorEnvelope covers both error shapes the platform uses:
// {"error":{"status":401,"message":"..."}} from the Web API and
// {"error":"invalid_grant","error_description":"..."} from the accounts service.
type errorEnvelope struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// ErrorMessage extracts a single message from an error body, or "" when it has none.
func ErrorMessage(body []byte) (string, bool) {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", false
	}

	var obj struct {
		Message string `json:"message"`
	}
	if len(env.Error) > 0 && json.Unmarshal(env.Error, &obj) == nil && obj.Message != "" {
		return obj.Message, true
	}
	if env.ErrorDescription != "" {
		return env.ErrorDescription, true
	}
	var s string
	if len(env.Error) > 0 && json.Unmarshal(env.Error, &s) == nil && s != "" {
		return s, true
	}
	return "", true
}

func parseErrorBody(status int, body []byte, fallback string) error {
	msg, ok := ErrorMessage(body)
	if !ok {
		return nonJSONError(status)
	}
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed (status %d)", status)
	}

	kind := shared.ErrAPIRequest
	if status == http.StatusUnauthorized {
		kind = shared.ErrTokenExpired
	}
	return &RemoteAPIError{Status: status, Message: msg, Kind: kind}
}

func nonJSONError(status int) error {
	if status == http.StatusForbidden {
		return &RemoteAPIError{Status: status, Message: NotRegisteredHint, Kind: shared.ErrNotRegistered}
	}
	return &RemoteAPIError{
		Status:  status,
		Message: fmt.Sprintf("Spotify returned non-JSON (status %d). Try again.", status),
		Kind:    shared.ErrMalformedResponse,
	}
}
