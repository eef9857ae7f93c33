package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/services"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/desertthunder/sptx/internal/tasks"
)

const maxBodyBytes = 8 << 20

// APIOpts wires the JSON API to its collaborators.
type APIOpts struct {
	Auth   *services.Authenticator
	Client *services.Client
	Engine *tasks.Engine
	Logger *log.Logger
	Now    func() time.Time
}

// API serves the JSON endpoints used by a browser frontend.
//
// Failed operations answer 200 with {"error": "..."}. Malformed bodies and unknown actions answer 400.
type API struct {
	auth   *services.Authenticator
	client *services.Client
	engine *tasks.Engine
	logger *log.Logger
	now    func() time.Time
}

// NewAPI creates the API. A nil Auth makes the auth actions report missing credentials.
func NewAPI(opts APIOpts) *API {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &API{
		auth:   opts.Auth,
		client: opts.Client,
		engine: opts.Engine,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

// Register adds the API routes to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(a.health))
	r.Handle(http.MethodPost, "/api/spotify-auth", http.HandlerFunc(a.spotifyAuth))
	r.Handle(http.MethodPost, "/api/spotify-data", http.HandlerFunc(a.spotifyData))
}

type errorBody struct {
	Error string `json:"error"`
}

type authRequest struct {
	Action       string `json:"action"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	RefreshToken string `json:"refresh_token"`
	AccountType  string `json:"account_type"`
}

type authURLResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

type tokenResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	ExpiresIn    int                 `json:"expires_in,omitempty"`
	User         *models.UserProfile `json:"user,omitempty"`
}

type dataRequest struct {
	Action      string        `json:"action"`
	AccessToken string        `json:"access_token"`
	Data        *transferData `json:"data"`
}

type transferData struct {
	SourceToken     string                   `json:"source_token"`
	TargetToken     string                   `json:"target_token"`
	TransferOptions models.TransferSelection `json:"transfer_options"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": a.now().UTC().Format(time.RFC3339Nano),
	})
}

func (a *API) spotifyAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decodeBody(w, r, &req) {
		return
	}

	logger := shared.WithLogger(a.logger, "action", req.Action, "account", req.AccountType)
	logger.Info("spotify auth")

	switch req.Action {
	case "get_auth_url", "exchange_token", "refresh_token":
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid action"})
		return
	}

	if a.auth == nil {
		a.operationError(w, logger, fmt.Errorf("%w: Spotify client_id and client_secret are not configured", shared.ErrMissingCredentials))
		return
	}

	auth := a.auth
	if req.RedirectURI != "" {
		auth = auth.WithRedirect(req.RedirectURI)
	}

	switch req.Action {
	case "get_auth_url":
		state := services.NewState(req.AccountType)
		writeJSON(w, http.StatusOK, authURLResponse{AuthURL: auth.AuthURL(state), State: state})

	case "exchange_token":
		login, err := auth.Login(r.Context(), a.client, req.Code)
		if err != nil {
			a.operationError(w, logger, err)
			return
		}
		logger.Info("token exchanged", "user", login.User.Name())
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken:  login.Credential.AccessToken,
			RefreshToken: login.Credential.RefreshToken,
			ExpiresIn:    a.expiresIn(login.Credential.Expiry),
			User:         &login.User,
		})

	case "refresh_token":
		cred, err := auth.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			a.operationError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken:  cred.AccessToken,
			RefreshToken: cred.RefreshToken,
			ExpiresIn:    a.expiresIn(cred.Expiry),
		})
	}
}

func (a *API) spotifyData(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !decodeBody(w, r, &req) {
		return
	}

	logger := shared.WithLogger(a.logger, "action", req.Action)
	logger.Info("spotify data")

	switch req.Action {
	case "get_user_data":
		if req.AccessToken == "" {
			a.operationError(w, logger, fmt.Errorf("%w: access_token", shared.ErrMissingArgument))
			return
		}
		snapshot, err := a.engine.FetchLibrary(r.Context(), req.AccessToken, nil)
		if err != nil {
			a.operationError(w, logger, err)
			return
		}
		logger.Info("fetched library",
			"playlists", len(snapshot.Playlists),
			"tracks", len(snapshot.SavedTracks),
			"albums", len(snapshot.SavedAlbums),
			"artists", len(snapshot.FollowedArtists),
			"podcasts", len(snapshot.SavedShows),
		)
		writeJSON(w, http.StatusOK, snapshot)

	case "transfer_data":
		if req.Data == nil || req.Data.SourceToken == "" || req.Data.TargetToken == "" {
			a.operationError(w, logger, fmt.Errorf("%w: data.source_token and data.target_token", shared.ErrMissingArgument))
			return
		}
		result, err := a.engine.Transfer(r.Context(), req.Data.SourceToken, req.Data.TargetToken, req.Data.TransferOptions, tasks.TransferOpts{})
		if err != nil {
			a.operationError(w, logger, err)
			return
		}
		logger.Info("transfer finished", "succeeded", len(result.Success), "failed", len(result.Failed))
		writeJSON(w, http.StatusOK, result)

	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid action"})
	}
}

func (a *API) operationError(w http.ResponseWriter, logger *log.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Warn("request cancelled")
	} else {
		logger.Error("operation failed", "error", err)
	}
	writeJSON(w, http.StatusOK, errorBody{Error: err.Error()})
}

func (a *API) expiresIn(expiry time.Time) int {
	if expiry.IsZero() {
		return 0
	}
	return int(expiry.Sub(a.now()).Round(time.Second) / time.Second)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid action"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
