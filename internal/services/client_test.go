package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/desertthunder/sptx/internal/shared"
	tu "github.com/desertthunder/sptx/internal/testing"
)

func TestNewClient(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		c := NewClient(ClientOpts{})
		if c.BaseURL() != DefaultBaseURL {
			t.Errorf("BaseURL() = %s, want %s", c.BaseURL(), DefaultBaseURL)
		}
		if c.httpClient != http.DefaultClient {
			t.Error("expected http.DefaultClient to be used")
		}
		if c.limiter != nil {
			t.Error("expected pacing to be disabled")
		}
	})

	t.Run("Custom", func(t *testing.T) {
		hc := &http.Client{}
		c := NewClient(ClientOpts{BaseURL: "http://example.com/v1/", HTTPClient: hc, RequestsPerSecond: 5})
		if c.BaseURL() != "http://example.com/v1" {
			t.Errorf("BaseURL() = %s", c.BaseURL())
		}
		if c.httpClient != hc {
			t.Error("expected custom client to be used")
		}
		if c.limiter == nil {
			t.Error("expected limiter when requests_per_second > 0")
		}
	})
}

func TestResolve(t *testing.T) {
	c := NewClient(ClientOpts{BaseURL: "http://api.test/v1"})

	tc := []struct {
		in   string
		want string
	}{
		{in: "/me", want: "http://api.test/v1/me"},
		{in: "me/tracks", want: "http://api.test/v1/me/tracks"},
		{in: "https://api.spotify.com/v1/me/tracks?offset=50", want: "https://api.spotify.com/v1/me/tracks?offset=50"},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			if got := c.resolve(tt.in); got != tt.want {
				t.Errorf("resolve(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tc := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantKind error
	}{
		{
			name:     "web api error object",
			status:   http.StatusBadRequest,
			body:     `{"error":{"status":400,"message":"Invalid base62 id"}}`,
			wantMsg:  "Invalid base62 id",
			wantKind: shared.ErrAPIRequest,
		},
		{
			name:     "accounts error description",
			status:   http.StatusBadRequest,
			body:     `{"error":"invalid_grant","error_description":"Invalid authorization code"}`,
			wantMsg:  "Invalid authorization code",
			wantKind: shared.ErrAPIRequest,
		},
		{
			name:     "bare error string",
			status:   http.StatusBadRequest,
			body:     `{"error":"invalid_client"}`,
			wantMsg:  "invalid_client",
			wantKind: shared.ErrAPIRequest,
		},
		{
			name:     "json without message",
			status:   http.StatusInternalServerError,
			body:     `{}`,
			wantMsg:  "request failed (status 500)",
			wantKind: shared.ErrAPIRequest,
		},
		{
			name:     "expired token",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"status":401,"message":"The access token expired"}}`,
			wantMsg:  "The access token expired",
			wantKind: shared.ErrTokenExpired,
		},
		{
			name:     "non-json forbidden",
			status:   http.StatusForbidden,
			body:     "Check settings on developer.spotify.com/dashboard, the user may not be registered.",
			wantMsg:  NotRegisteredHint,
			wantKind: shared.ErrNotRegistered,
		},
		{
			name:     "non-json other",
			status:   http.StatusBadGateway,
			body:     "<html>bad gateway</html>",
			wantMsg:  "Spotify returned non-JSON (status 502). Try again.",
			wantKind: shared.ErrMalformedResponse,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			fake.Handle("GET", "/me", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := NewClient(ClientOpts{BaseURL: fake.URL}).Account("tok").Me(context.Background())

			var apiErr *RemoteAPIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected RemoteAPIError, got %T: %v", err, err)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantKind)
			}
		})
	}
}

func TestRequest(t *testing.T) {
	t.Run("Sends Bearer Token And JSON Body", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.JSON("PUT", "/me/tracks", http.StatusOK, nil)

		err := NewClient(ClientOpts{BaseURL: fake.URL}).Account("secret").SaveToLibrary(context.Background(), "tracks", []string{"a", "b"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		reqs := fake.Requests("PUT", "/me/tracks")
		if len(reqs) != 1 {
			t.Fatalf("expected 1 request, got %d", len(reqs))
		}
		if reqs[0].Token != "secret" {
			t.Errorf("token = %q, want secret", reqs[0].Token)
		}

		var body struct {
			IDs []string `json:"ids"`
		}
		reqs[0].DecodeBody(t, &body)
		if len(body.IDs) != 2 || body.IDs[0] != "a" {
			t.Errorf("body ids = %v", body.IDs)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		hc := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		_, err := NewClient(ClientOpts{HTTPClient: hc}).Account("tok").Me(context.Background())

		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		hc := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		_, err := NewClient(ClientOpts{HTTPClient: hc}).Account("tok").Me(context.Background())

		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Non-JSON Success Body", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.Handle("GET", "/me", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		})

		_, err := NewClient(ClientOpts{BaseURL: fake.URL}).Account("tok").Me(context.Background())
		if !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.JSON("GET", "/me", http.StatusOK, map[string]string{"id": "u"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewClient(ClientOpts{BaseURL: fake.URL}).Account("tok").Me(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Paced Requests", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.JSON("GET", "/me", http.StatusOK, map[string]string{"id": "u"})

		acct := NewClient(ClientOpts{BaseURL: fake.URL, RequestsPerSecond: 1000}).Account("tok")
		for range 3 {
			if _, err := acct.Me(context.Background()); err != nil {
				t.Fatalf("Me() error = %v", err)
			}
		}
		if fake.Count("GET", "/me") != 3 {
			t.Errorf("expected 3 requests, got %d", fake.Count("GET", "/me"))
		}
	})
}
