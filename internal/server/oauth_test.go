package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/services"
	"github.com/desertthunder/sptx/internal/shared"
)

func fakeLogin(calls *int, err error) LoginFunc {
	return func(ctx context.Context, code string) (*services.Login, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return &services.Login{
			Credential: models.Credential{AccessToken: "at-" + code, RefreshToken: "rt"},
			User:       models.UserProfile{ID: "u1", DisplayName: "Alice"},
		}, nil
	}
}

func callback(h http.Handler, query string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+query, nil))
	return rec
}

func TestOAuthHandler(t *testing.T) {
	t.Run("successful callback", func(t *testing.T) {
		var calls int
		h := NewOAuthHandler(fakeLogin(&calls, nil), "source_abc")

		rec := callback(h, "state=source_abc&code=xyz")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Alice") {
			t.Errorf("success page should name the user")
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Slot != "source" {
			t.Errorf("expected slot source, got %q", result.Slot)
		}
		if result.Login.Credential.AccessToken != "at-xyz" {
			t.Errorf("unexpected credential %+v", result.Login.Credential)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		var calls int
		h := NewOAuthHandler(fakeLogin(&calls, nil), "source_abc")

		rec := callback(h, "state=target_abc&code=xyz")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", result.Error())
		}
		if calls != 0 {
			t.Error("login should not run on a bad state")
		}
	})

	t.Run("provider denied access", func(t *testing.T) {
		var calls int
		h := NewOAuthHandler(fakeLogin(&calls, nil), "target_1")

		rec := callback(h, "state=target_1&error=access_denied")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("unexpected error %v", result.Error())
		}
		if result.Slot != "target" {
			t.Errorf("expected slot target, got %q", result.Slot)
		}
	})

	t.Run("login failure", func(t *testing.T) {
		var calls int
		loginErr := &services.RemoteAPIError{Status: 400, Message: "Invalid authorization code", Kind: shared.ErrAuthFailed}
		h := NewOAuthHandler(fakeLogin(&calls, loginErr), "source_1")

		rec := callback(h, "state=source_1&code=bad")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
		result := <-h.Result()
		if result.Error() == nil || result.Error().Error() != "Invalid authorization code" {
			t.Errorf("unexpected error %v", result.Error())
		}
	})

	t.Run("only one callback is processed", func(t *testing.T) {
		var calls int
		h := NewOAuthHandler(fakeLogin(&calls, nil), "source_1")

		callback(h, "state=source_1&code=one")
		rec := callback(h, "state=source_1&code=two")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}
		if calls != 1 {
			t.Errorf("expected one login, got %d", calls)
		}

		var results int
		for range h.Result() {
			results++
		}
		if results != 1 {
			t.Errorf("expected exactly one result, got %d", results)
		}
	})

	t.Run("routes", func(t *testing.T) {
		h := NewOAuthHandler(nil, "s")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})
}
