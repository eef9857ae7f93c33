package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptx/internal/services"
	"github.com/desertthunder/sptx/internal/session"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/desertthunder/sptx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     *services.Client
	auth       *services.Authenticator
	engine     *tasks.Engine
	sessions   *session.Store
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Auth overrides the authenticator built from Config credentials.
	Auth       *services.Authenticator
	Sessions   *session.Store
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		auth:       opts.Auth,
		sessions:   opts.Sessions,
		httpClient: opts.HTTPClient,
		output:     opts.Output,
	}
	r.SetLogger(opts.Logger)

	if r.auth == nil {
		auth, err := services.NewAuthenticator(services.AuthOpts{
			Credentials: opts.Config.Credentials.Spotify,
			HTTPClient:  opts.HTTPClient,
		})
		if err != nil {
			r.logger.Debug("spotify authenticator unavailable", "error", err)
		}
		r.auth = auth
	}

	return r
}

// SetLogger swaps the logger and rebuilds the client and engine that log through it.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.client = services.NewClient(services.ClientOpts{
		BaseURL:           r.config.Spotify.APIURL,
		HTTPClient:        r.httpClient,
		RequestsPerSecond: r.config.Spotify.RequestsPerSecond,
		Logger:            shared.WithLogger(logger, "component", "client"),
	})
	r.engine = tasks.NewEngine(r.client.Connect(), shared.WithLogger(logger, "component", "engine"))
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, transferCommand, historyCommand, ledgerCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// authenticator returns the configured authenticator or explains how to configure one.
func (r *Runner) authenticator() (*services.Authenticator, error) {
	if r.auth == nil {
		if err := r.config.Validate(); err != nil {
			return nil, fmt.Errorf("%w (set them in config.toml or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)", err)
		}
		return nil, fmt.Errorf("%w: spotify authenticator not initialized", shared.ErrMissingCredentials)
	}
	return r.auth, nil
}

func (r *Runner) refresher() session.Refresher {
	if r.auth == nil {
		return nil
	}
	return r.auth
}

// account returns the stored entry for slot and an access token that is refreshed when expired.
func (r *Runner) account(ctx context.Context, slot session.Slot) (session.Entry, string, error) {
	token, err := r.sessions.Token(ctx, slot, r.refresher())
	if err != nil {
		return session.Entry{}, "", err
	}
	entry, err := r.sessions.Get(slot)
	if err != nil {
		return session.Entry{}, "", err
	}
	return entry, token, nil
}

// openDatabase opens the history database, or returns nil when none is configured.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if errors.Is(err, shared.ErrDatabaseDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// requireDatabase is [Runner.openDatabase] for commands that cannot run without one.
func (r *Runner) requireDatabase() (*sql.DB, error) {
	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, fmt.Errorf("%w: set database.path in config.toml and run `sptx setup`", shared.ErrDatabaseDisabled)
	}
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
