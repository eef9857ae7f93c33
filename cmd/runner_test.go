package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/services"
	"github.com/desertthunder/sptx/internal/session"
	"github.com/desertthunder/sptx/internal/shared"
	tu "github.com/desertthunder/sptx/internal/testing"
	"github.com/urfave/cli/v3"
)

// run executes args against a fresh command tree built from r.
func run(r *Runner, args ...string) error {
	app := &cli.Command{
		Name:      "sptx",
		Commands:  r.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	return app.Run(context.Background(), append([]string{"sptx"}, args...))
}

func signedIn(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewMemoryStore()
	if err := store.Set(session.Source, session.Entry{
		User:       models.UserProfile{ID: "alice", DisplayName: "Alice"},
		Credential: models.Credential{AccessToken: "src", RefreshToken: "src-refresh"},
	}); err != nil {
		t.Fatalf("failed to set source: %v", err)
	}
	if err := store.Set(session.Target, session.Entry{
		User:       models.UserProfile{ID: "bob", DisplayName: "Bob"},
		Credential: models.Credential{AccessToken: "dst", RefreshToken: "dst-refresh", Expiry: time.Now().Add(time.Hour)},
	}); err != nil {
		t.Fatalf("failed to set target: %v", err)
	}
	return store
}

// newFakeLibrary serves a source library of 3 liked songs, 1 album and 1 playlist of 2 tracks.
func newFakeLibrary(t *testing.T) *tu.FakeSpotify {
	t.Helper()
	fake := tu.NewFakeSpotify(t)
	fake.Paged("/me/playlists", []any{map[string]any{"id": "p1", "name": "Road", "tracks": map[string]int{"total": 2}}})
	fake.Paged("/me/tracks", tu.Items(3, func(i int) any {
		return map[string]any{"track": map[string]string{"id": fmt.Sprintf("t%d", i)}}
	}))
	fake.Paged("/me/albums", []any{map[string]any{"album": map[string]string{"id": "a1", "name": "Blue"}}})
	fake.PagedUnder("/me/following", "artists", nil)
	fake.Paged("/me/shows", nil)

	fake.JSON("PUT", "/me/tracks", http.StatusOK, nil)
	fake.JSON("PUT", "/me/albums", http.StatusOK, nil)
	fake.JSON("GET", "/me", http.StatusOK, map[string]string{"id": "bob"})
	fake.JSON("GET", "/playlists/p1", http.StatusOK, map[string]any{"id": "p1", "name": "Road", "description": "summer"})
	fake.JSON("POST", "/users/bob/playlists", http.StatusCreated, map[string]string{"id": "copy1"})
	fake.Paged("/playlists/p1/tracks", tu.Items(2, func(i int) any {
		return map[string]any{"track": map[string]string{"uri": fmt.Sprintf("spotify:track:%d", i)}}
	}))
	fake.JSON("POST", "/playlists/copy1/tracks", http.StatusCreated, map[string]string{"snapshot_id": "s"})
	return fake
}

func newTestRunner(t *testing.T, apiURL string, store *session.Store) (*Runner, *bytes.Buffer) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Spotify.APIURL = apiURL
	config.Database.Path = filepath.Join(t.TempDir(), "sptx.db")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Sessions: store,
		Logger:   shared.NewLogger(io.Discard),
		Output:   output,
	})
	return runner, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			store := session.NewMemoryStore()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Sessions:   store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.sessions != store {
				t.Error("expected sessions to be set")
			}
			if runner.client == nil || runner.engine == nil {
				t.Error("expected client and engine to be built")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("without credentials has no authenticator", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = ""
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.auth != nil {
				t.Error("expected nil authenticator")
			}
			if runner.refresher() != nil {
				t.Error("expected nil refresher interface")
			}
			if _, err := runner.authenticator(); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("with credentials builds an authenticator", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "id"
			config.Credentials.Spotify.ClientSecret = "secret"
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.auth == nil {
				t.Fatal("expected authenticator")
			}
			if runner.auth.RedirectURI() != config.Credentials.Spotify.RedirectURI {
				t.Errorf("RedirectURI() = %q", runner.auth.RedirectURI())
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "library", "transfer", "history", "ledger", "serve", "tui"} {
			if !names[want] {
				t.Errorf("missing command %q", want)
			}
		}
	})

	t.Run("openDatabase", func(t *testing.T) {
		t.Run("disabled without a path", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = ""
			runner := NewRunner(RunnerOpts{Config: config})

			db, err := runner.openDatabase()
			if err != nil || db != nil {
				t.Errorf("openDatabase() = %v, %v; want nil, nil", db, err)
			}
			if _, err := runner.requireDatabase(); !errors.Is(err, shared.ErrDatabaseDisabled) {
				t.Errorf("expected ErrDatabaseDisabled, got %v", err)
			}
		})
	})
}

func TestTransferCommand(t *testing.T) {
	t.Run("copies tracks and records history", func(t *testing.T) {
		fake := newFakeLibrary(t)
		runner, output := newTestRunner(t, fake.URL, signedIn(t))

		if err := run(runner, "transfer", "--tracks", "--albums"); err != nil {
			t.Fatalf("transfer error = %v", err)
		}

		if !strings.Contains(output.String(), "Transfer Complete!") {
			t.Errorf("unexpected output:\n%s", output.String())
		}

		saves := fake.Requests("PUT", "/me/tracks")
		if len(saves) != 1 {
			t.Fatalf("expected 1 track save, got %d", len(saves))
		}
		if saves[0].Token != "dst" {
			t.Errorf("save used token %q, want target token", saves[0].Token)
		}
		var body map[string][]string
		saves[0].DecodeBody(t, &body)
		if len(body["ids"]) != 3 {
			t.Errorf("saved ids = %v", body["ids"])
		}
		if got := fake.Count("PUT", "/me/albums"); got != 1 {
			t.Errorf("expected 1 album save, got %d", got)
		}
		if got := fake.Count("POST", "/users/bob/playlists"); got != 0 {
			t.Errorf("playlists were not selected, got %d creations", got)
		}

		output.Reset()
		if err := run(runner, "history", "--json"); err != nil {
			t.Fatalf("history error = %v", err)
		}
		var rows []runSummary
		if err := json.Unmarshal(output.Bytes(), &rows); err != nil {
			t.Fatalf("history output is not JSON: %v\n%s", err, output.String())
		}
		if len(rows) != 1 || rows[0].SourceUserID != "alice" || rows[0].TargetUserID != "bob" || rows[0].Succeeded != 2 {
			t.Errorf("history rows = %+v", rows)
		}
	})

	t.Run("skip-existing skips a copied playlist on the second run", func(t *testing.T) {
		fake := newFakeLibrary(t)
		runner, output := newTestRunner(t, fake.URL, signedIn(t))

		if err := run(runner, "transfer", "--playlists", "--skip-existing"); err != nil {
			t.Fatalf("first transfer error = %v", err)
		}
		if err := run(runner, "transfer", "--playlist-id", "p1", "--skip-existing"); err != nil {
			t.Fatalf("second transfer error = %v", err)
		}
		if got := fake.Count("POST", "/users/bob/playlists"); got != 1 {
			t.Errorf("expected 1 playlist creation across both runs, got %d", got)
		}

		output.Reset()
		if err := run(runner, "ledger", "list"); err != nil {
			t.Fatalf("ledger list error = %v", err)
		}
		if !strings.Contains(output.String(), "p1 → copy1") {
			t.Errorf("ledger output:\n%s", output.String())
		}
	})

	t.Run("json format prints only the result", func(t *testing.T) {
		fake := newFakeLibrary(t)
		runner, output := newTestRunner(t, fake.URL, signedIn(t))

		if err := run(runner, "transfer", "--tracks", "--format", "json"); err != nil {
			t.Fatalf("transfer error = %v", err)
		}

		var result models.TransferResult
		if err := json.Unmarshal(output.Bytes(), &result); err != nil {
			t.Fatalf("output is not a result: %v\n%s", err, output.String())
		}
		if result.Totals()[models.EntityTracks] != 3 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("report is written next to the output", func(t *testing.T) {
		fake := newFakeLibrary(t)
		runner, _ := newTestRunner(t, fake.URL, signedIn(t))
		report := filepath.Join(t.TempDir(), "reports", "run.csv")

		if err := run(runner, "transfer", "--tracks", "--report", report); err != nil {
			t.Fatalf("transfer error = %v", err)
		}
		tu.AssertFileExists(t, report)
		if content := tu.MustReadFile(t, report); !strings.HasPrefix(content, "Status,Type,ID") {
			t.Errorf("report is not CSV:\n%s", content)
		}
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		fake := newFakeLibrary(t)
		runner, output := newTestRunner(t, fake.URL, signedIn(t))

		if err := run(runner, "transfer", "--all", "--dry-run"); err != nil {
			t.Fatalf("transfer error = %v", err)
		}
		if fake.Count("PUT", "/me/tracks")+fake.Count("POST", "/users/bob/playlists") != 0 {
			t.Error("dry run should not write")
		}
		if !strings.Contains(output.String(), "Nothing was written") {
			t.Errorf("unexpected output:\n%s", output.String())
		}
	})

	tc := []struct {
		name    string
		args    []string
		store   func(t *testing.T) *session.Store
		wantErr error
	}{
		{
			name:    "nothing selected",
			args:    []string{"transfer"},
			store:   signedIn,
			wantErr: shared.ErrMissingArgument,
		},
		{
			name:    "target not signed in",
			args:    []string{"transfer", "--tracks"},
			wantErr: shared.ErrNotAuthenticated,
			store: func(t *testing.T) *session.Store {
				s := signedIn(t)
				s.Clear(session.Target)
				return s
			},
		},
		{
			name:    "same account on both slots",
			args:    []string{"transfer", "--tracks"},
			wantErr: shared.ErrInvalidArgument,
			store: func(t *testing.T) *session.Store {
				s := signedIn(t)
				e, _ := s.Get(session.Source)
				s.Set(session.Target, e)
				return s
			},
		},
		{
			name:    "expired source without authenticator",
			args:    []string{"transfer", "--tracks"},
			wantErr: shared.ErrTokenExpired,
			store: func(t *testing.T) *session.Store {
				s := signedIn(t)
				e, _ := s.Get(session.Source)
				e.Credential.Expiry = time.Now().Add(-time.Minute)
				s.Set(session.Source, e)
				return s
			},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeLibrary(t)
			runner, _ := newTestRunner(t, fake.URL, tt.store(t))
			runner.auth = nil

			err := run(runner, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if fake.Total() != 0 {
				t.Errorf("expected no API calls, got %d", fake.Total())
			}
		})
	}
}

func TestLibraryCommand(t *testing.T) {
	fake := newFakeLibrary(t)
	runner, output := newTestRunner(t, fake.URL, signedIn(t))

	t.Run("json", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "library", "--format", "json"); err != nil {
			t.Fatalf("library error = %v", err)
		}

		var snapshot models.LibrarySnapshot
		if err := json.Unmarshal(output.Bytes(), &snapshot); err != nil {
			t.Fatalf("output is not a snapshot: %v", err)
		}
		if len(snapshot.SavedTracks) != 3 || len(snapshot.Playlists) != 1 {
			t.Errorf("snapshot = %+v", snapshot)
		}
	})

	t.Run("text to file", func(t *testing.T) {
		output.Reset()
		path := filepath.Join(t.TempDir(), "library.md")
		if err := run(runner, "library", "--account", "source", "--output", path); err != nil {
			t.Fatalf("library error = %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.HasPrefix(content, "# Library of Alice") {
			t.Errorf("expected Markdown from extension, got:\n%s", content)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		if err := run(runner, "library", "--account", "other"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("status lists both slots", func(t *testing.T) {
		runner, output := newTestRunner(t, "", signedIn(t))
		if err := run(runner, "auth", "status"); err != nil {
			t.Fatalf("status error = %v", err)
		}
		for _, want := range []string{"source  ✓ Alice", "target  ✓ Bob", "token expires"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("status missing %q:\n%s", want, output.String())
			}
		}
	})

	t.Run("status json", func(t *testing.T) {
		store := signedIn(t)
		store.Clear(session.Target)
		runner, output := newTestRunner(t, "", store)

		if err := run(runner, "auth", "status", "--json"); err != nil {
			t.Fatalf("status error = %v", err)
		}
		var statuses []accountStatus
		if err := json.Unmarshal(output.Bytes(), &statuses); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(statuses) != 1 || statuses[0].Slot != session.Source || statuses[0].User.ID != "alice" {
			t.Errorf("statuses = %+v", statuses)
		}
	})

	t.Run("logout one slot", func(t *testing.T) {
		store := signedIn(t)
		runner, _ := newTestRunner(t, "", store)

		if err := run(runner, "auth", "logout", "--account", "target"); err != nil {
			t.Fatalf("logout error = %v", err)
		}
		if _, err := store.Get(session.Target); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("target should be cleared, got %v", err)
		}
		if _, err := store.Get(session.Source); err != nil {
			t.Errorf("source should remain, got %v", err)
		}
	})

	t.Run("logout all", func(t *testing.T) {
		store := signedIn(t)
		runner, _ := newTestRunner(t, "", store)

		if err := run(runner, "auth", "logout"); err != nil {
			t.Fatalf("logout error = %v", err)
		}
		if len(store.All()) != 0 {
			t.Errorf("expected empty store, got %v", store.All())
		}
	})

	t.Run("login requires an account", func(t *testing.T) {
		runner, _ := newTestRunner(t, "", session.NewMemoryStore())
		if err := run(runner, "auth", "login"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("refresh stores the new token", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.JSON("POST", "/api/token", http.StatusOK, map[string]any{
			"access_token": "fresh",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})

		auth, err := services.NewAuthenticator(services.AuthOpts{
			Credentials: shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret"},
			TokenURL:    fake.URL + "/api/token",
		})
		if err != nil {
			t.Fatalf("NewAuthenticator() error = %v", err)
		}

		store := signedIn(t)
		runner, output := newTestRunner(t, "", store)
		runner.auth = auth

		if err := run(runner, "auth", "refresh", "--account", "source"); err != nil {
			t.Fatalf("refresh error = %v", err)
		}

		e, _ := store.Get(session.Source)
		if e.Credential.AccessToken != "fresh" || e.Credential.RefreshToken != "src-refresh" {
			t.Errorf("credential = %+v", e.Credential)
		}
		if !strings.Contains(output.String(), "Refreshed source token for Alice") {
			t.Errorf("unexpected output: %s", output.String())
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	fake := newFakeLibrary(t)
	runner, output := newTestRunner(t, fake.URL, signedIn(t))

	for range 3 {
		if err := run(runner, "transfer", "--tracks"); err != nil {
			t.Fatalf("transfer error = %v", err)
		}
	}

	output.Reset()
	if err := run(runner, "history", "--prune", "1"); err != nil {
		t.Fatalf("prune error = %v", err)
	}
	if !strings.Contains(output.String(), "Pruned 2 runs") {
		t.Errorf("unexpected output: %s", output.String())
	}

	output.Reset()
	if err := run(runner, "history"); err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(output.String(), "Found 1 transfers") {
		t.Errorf("unexpected output: %s", output.String())
	}
}

func TestAPIRouter(t *testing.T) {
	config := shared.DefaultConfig()
	config.Server.FrontendURL = "http://localhost:5173"
	runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard), Output: io.Discard})
	router := runner.newAPIRouter()

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("allow origin = %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/spotify-data", nil))

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})
}
