package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/server"
	"github.com/desertthunder/sptx/internal/services"
	"github.com/desertthunder/sptx/internal/session"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

// accountStatus is the JSON shape of one slot in `auth status`.
type accountStatus struct {
	Slot      session.Slot       `json:"slot"`
	User      models.UserProfile `json:"user"`
	Expiry    time.Time          `json:"expiry,omitzero"`
	Expired   bool               `json:"expired"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func parseAccount(cmd *cli.Command) (session.Slot, error) {
	raw := cmd.String("account")
	if raw == "" {
		return "", fmt.Errorf("%w: --account (source or target)", shared.ErrMissingArgument)
	}
	return session.ParseSlot(raw)
}

// AuthLogin signs an account slot in through the browser and stores its credential.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	slot, err := parseAccount(cmd)
	if err != nil {
		return err
	}

	auth, err := r.authenticator()
	if err != nil {
		return err
	}

	login, err := r.doOAuth(ctx, auth, slot, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if other, err := r.sessions.Get(otherSlot(slot)); err == nil && other.User.ID == login.User.ID {
		r.logger.Warn("both slots use the same account", "user", login.User.ID)
		r.writePlain("⚠ %s is also the %s account; sign in with a different account to transfer.\n", login.User.Name(), otherSlot(slot))
	}

	if err := r.sessions.Set(slot, session.Entry{User: login.User, Credential: login.Credential}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.writePlainln("✓ Signed in as %s (%s)", login.User.Name(), slot)
	if path := r.sessions.Path(); path != "" {
		r.writePlain("✓ Credentials saved to %s\n", path)
	}
	if _, err := r.sessions.Get(otherSlot(slot)); err != nil {
		r.writePlain("\nNext: sptx auth login --account %s\n", otherSlot(slot))
	}
	return nil
}

// AuthRefresh exchanges a slot's refresh token for a new access token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	slot, err := parseAccount(cmd)
	if err != nil {
		return err
	}

	auth, err := r.authenticator()
	if err != nil {
		return err
	}

	entry, err := r.sessions.Get(slot)
	if err != nil {
		return err
	}

	cred, err := auth.Refresh(ctx, entry.Credential.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh %s token: %w", slot, err)
	}

	entry.Credential = *cred
	entry.UpdatedAt = time.Time{}
	if err := r.sessions.Set(slot, entry); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.logger.Info("token refreshed", "slot", slot, "expiry", cred.Expiry)
	return r.writePlain("✓ Refreshed %s token for %s, expires %s\n", slot, entry.User.Name(), humanize.Time(cred.Expiry))
}

// AuthStatus shows which accounts are signed in.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	all := r.sessions.All()

	if cmd.Bool("json") {
		statuses := []accountStatus{}
		for _, slot := range session.Slots() {
			if e, ok := all[slot]; ok {
				statuses = append(statuses, accountStatus{
					Slot:      slot,
					User:      e.User,
					Expiry:    e.Credential.Expiry,
					Expired:   e.Credential.Expired(),
					UpdatedAt: e.UpdatedAt,
				})
			}
		}
		return r.writeJSON(statuses, true)
	}

	for _, slot := range session.Slots() {
		e, ok := all[slot]
		if !ok {
			r.writePlain("%-7s ✗ not signed in\n", slot)
			continue
		}

		r.writePlain("%-7s ✓ %s", slot, e.User.Name())
		if e.User.Email != "" {
			r.writePlain(" <%s>", e.User.Email)
		}
		r.writePlain("\n")

		switch {
		case e.Credential.Expiry.IsZero():
		case e.Credential.Expired() && e.Credential.RefreshToken != "":
			r.writePlain("        token expired %s, refreshed on next use\n", humanize.Time(e.Credential.Expiry))
		case e.Credential.Expired():
			r.writePlain("        token expired %s, sign in again\n", humanize.Time(e.Credential.Expiry))
		default:
			r.writePlain("        token expires %s\n", humanize.Time(e.Credential.Expiry))
		}
		r.writePlain("        signed in %s\n", humanize.Time(e.UpdatedAt))
	}
	return nil
}

// AuthLogout forgets one slot or both.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	var slots []session.Slot
	if cmd.String("account") != "" {
		slot, err := parseAccount(cmd)
		if err != nil {
			return err
		}
		slots = append(slots, slot)
	}

	if err := r.sessions.Clear(slots...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	if len(slots) == 0 {
		return r.writePlain("✓ Signed out of both accounts\n")
	}
	return r.writePlain("✓ Signed out of the %s account\n", slots[0])
}

func otherSlot(slot session.Slot) session.Slot {
	if slot == session.Source {
		return session.Target
	}
	return session.Source
}

// callbackAddr derives the local listen address from the redirect URI, falling back to server config.
func (r *Runner) callbackAddr(redirectURI string) string {
	fallback := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	u, err := url.Parse(redirectURI)
	if err != nil || u.Port() == "" {
		return fallback
	}
	return net.JoinHostPort(u.Hostname(), u.Port())
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, auth *services.Authenticator, slot session.Slot, timeout time.Duration) (*services.Login, error) {
	if timeout <= 0 {
		timeout = loginTimeout
	}

	state := services.NewState(string(slot))
	login := func(ctx context.Context, code string) (*services.Login, error) {
		return auth.Login(ctx, r.client, code)
	}

	oauthHandler := server.NewOAuthHandler(login, state)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	serverAddr := r.callbackAddr(auth.RedirectURI())
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", serverAddr, err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", slot, serverAddr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := auth.AuthURL(state)
	r.writePlain("→ Opening browser to sign in the %s account...\n", slot)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Login == nil {
		return nil, fmt.Errorf("%w: no credential received", shared.ErrAuthFailed)
	}
	return result.Login, nil
}
