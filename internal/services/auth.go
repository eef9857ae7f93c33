package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes are the permissions needed to read a library and write it to another account.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserLibraryModify,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserFollowRead,
	spotifyauth.ScopeUserFollowModify,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
}

// AuthOpts configures an [Authenticator]. Empty URLs default to the Spotify accounts service.
type AuthOpts struct {
	Credentials shared.SpotifyConfig
	AuthURL     string
	TokenURL    string
	HTTPClient  *http.Client
}

// Authenticator runs the authorization-code flow against the accounts service.
type Authenticator struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// Login is the outcome of a completed authorization: tokens plus the profile they belong to.
type Login struct {
	Credential models.Credential  `json:"credential"`
	User       models.UserProfile `json:"user"`
}

// NewAuthenticator creates an [Authenticator] for the configured application.
func NewAuthenticator(opts AuthOpts) (*Authenticator, error) {
	creds := opts.Credentials
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	authURL, tokenURL := opts.AuthURL, opts.TokenURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}, nil
}

// WithRedirect returns a copy of a that uses redirectURI.
func (a *Authenticator) WithRedirect(redirectURI string) *Authenticator {
	if redirectURI == "" || redirectURI == a.config.RedirectURL {
		return a
	}
	cfg := *a.config
	cfg.RedirectURL = redirectURI
	return &Authenticator{config: &cfg, httpClient: a.httpClient}
}

// RedirectURI returns the callback URL registered with the provider.
func (a *Authenticator) RedirectURI() string { return a.config.RedirectURL }

// AuthURL returns the consent page URL. The dialog is always shown so a second account can be chosen.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

func (a *Authenticator) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// Exchange trades an authorization code for a credential.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*models.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := a.config.Exchange(a.context(ctx), code)
	if err != nil {
		return nil, tokenError(err, shared.ErrAuthFailed, "Token exchange failed")
	}
	return credentialFrom(token, ""), nil
}

// Refresh obtains a new access token. The old refresh token is kept when the provider does not rotate it.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*models.Credential, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	src := a.config.TokenSource(a.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, tokenError(err, shared.ErrRefreshFailed, "Token refresh failed")
	}
	return credentialFrom(token, refreshToken), nil
}

// Login exchanges code and resolves the profile of the account that granted it.
func (a *Authenticator) Login(ctx context.Context, client *Client, code string) (*Login, error) {
	cred, err := a.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := client.Account(cred.AccessToken).Me(ctx)
	if err != nil {
		return nil, err
	}
	return &Login{Credential: *cred, User: *user}, nil
}

func credentialFrom(t *oauth2.Token, previousRefresh string) *models.Credential {
	refresh := t.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &models.Credential{AccessToken: t.AccessToken, RefreshToken: refresh, Expiry: t.Expiry}
}

// tokenError turns a token endpoint failure into a [RemoteAPIError] carrying the provider's message.
func tokenError(err error, kind error, fallback string) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("%w: %v", kind, err)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}

	msg := re.ErrorDescription
	if msg == "" {
		msg = re.ErrorCode
	}
	if msg == "" {
		msg, _ = ErrorMessage(re.Body)
	}
	if msg == "" && len(re.Body) > 0 && !json.Valid(re.Body) && !strings.Contains(string(re.Body), "error=") {
		msg = fmt.Sprintf("Spotify token endpoint returned non-JSON (status %d). Verify the Redirect URI and Client Secret in the Spotify app settings.", status)
	}
	if msg == "" {
		msg = fmt.Sprintf("%s (status %d)", fallback, status)
	}
	return &RemoteAPIError{Status: status, Message: msg, Kind: kind}
}

// NewState returns an OAuth state value tagged with the session slot it is meant for.
func NewState(slot string) string {
	return slot + "_" + shared.GenerateID()
}

// SlotFromState recovers the slot name from a state produced by [NewState].
func SlotFromState(state string) string {
	slot, _, ok := strings.Cut(state, "_")
	if !ok {
		return ""
	}
	return slot
}
