// Spotify Web API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/shared"
)

const (
	// LibraryBatchSize is the most IDs a library write accepts.
	LibraryBatchSize = 50
	// PlaylistBatchSize is the most URIs a playlist add accepts.
	PlaylistBatchSize = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []models.Image `json:"images"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []models.Image `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Images  []models.Image  `json:"images"`
	URI     string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	URI     string          `json:"uri"`
}

// SpotifyShow represents a podcast.
type SpotifyShow struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Publisher string         `json:"publisher"`
	Images    []models.Image `json:"images"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist as returned by list and detail endpoints.
type SpotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       models.Owner      `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      playlistTracksRef `json:"tracks"`
	Images      []models.Image    `json:"images"`
}

// SavedTrackItem wraps a track saved in the user's library.
type SavedTrackItem struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SavedAlbumItem wraps an album saved in the user's library.
type SavedAlbumItem struct {
	AddedAt string       `json:"added_at"`
	Album   SpotifyAlbum `json:"album"`
}

// SavedShowItem wraps a show saved in the user's library.
type SavedShowItem struct {
	AddedAt string      `json:"added_at"`
	Show    SpotifyShow `json:"show"`
}

// PlaylistItem is one entry of a playlist. Track is nil for removed or unavailable content.
type PlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// saveEndpoints maps bulk entity types to their library write endpoints.
var saveEndpoints = map[models.EntityType]string{
	models.EntityTracks:   "/me/tracks",
	models.EntityAlbums:   "/me/albums",
	models.EntityArtists:  "/me/following?type=artist",
	models.EntityPodcasts: "/me/shows",
}

func joinArtists(artists []SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Me retrieves the current authenticated user's profile.
func (a *Account) Me(ctx context.Context) (*models.UserProfile, error) {
	var user SpotifyUser
	if err := a.do(ctx, "GET", "/me", nil, &user); err != nil {
		return nil, err
	}
	return &models.UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
		Images:      user.Images,
	}, nil
}

// Playlists retrieves every playlist in the user's library.
func (a *Account) Playlists(ctx context.Context) ([]models.PlaylistSummary, error) {
	items, err := FetchAllPages[SpotifyPlaylist](ctx, a, "/me/playlists", DefaultPageSize)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.PlaylistSummary, 0, len(items))
	for _, p := range items {
		playlists = append(playlists, models.PlaylistSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Images:      p.Images,
			TracksTotal: p.Tracks.Total,
			Public:      p.Public,
			Owner:       p.Owner,
		})
	}
	return playlists, nil
}

// SavedTracks retrieves every liked song.
func (a *Account) SavedTracks(ctx context.Context) ([]models.SavedTrack, error) {
	items, err := FetchAllPages[SavedTrackItem](ctx, a, "/me/tracks", DefaultPageSize)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.SavedTrack, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, models.SavedTrack{
			ID:      item.Track.ID,
			Name:    item.Track.Name,
			Artists: joinArtists(item.Track.Artists),
			Album:   item.Track.Album.Name,
			AddedAt: item.AddedAt,
		})
	}
	return tracks, nil
}

// SavedAlbums retrieves every saved album.
func (a *Account) SavedAlbums(ctx context.Context) ([]models.SavedAlbum, error) {
	items, err := FetchAllPages[SavedAlbumItem](ctx, a, "/me/albums", DefaultPageSize)
	if err != nil {
		return nil, err
	}

	albums := make([]models.SavedAlbum, 0, len(items))
	for _, item := range items {
		albums = append(albums, models.SavedAlbum{
			ID:      item.Album.ID,
			Name:    item.Album.Name,
			Artists: joinArtists(item.Album.Artists),
			Images:  item.Album.Images,
			AddedAt: item.AddedAt,
		})
	}
	return albums, nil
}

// FollowedArtists retrieves every followed artist.
func (a *Account) FollowedArtists(ctx context.Context) ([]models.FollowedArtist, error) {
	items, err := FetchFollowedArtists(ctx, a, DefaultPageSize)
	if err != nil {
		return nil, err
	}

	artists := make([]models.FollowedArtist, 0, len(items))
	for _, item := range items {
		artists = append(artists, models.FollowedArtist{
			ID:     item.ID,
			Name:   item.Name,
			Images: item.Images,
			Genres: item.Genres,
		})
	}
	return artists, nil
}

// SavedShows retrieves every saved podcast.
func (a *Account) SavedShows(ctx context.Context) ([]models.SavedShow, error) {
	items, err := FetchAllPages[SavedShowItem](ctx, a, "/me/shows", DefaultPageSize)
	if err != nil {
		return nil, err
	}

	shows := make([]models.SavedShow, 0, len(items))
	for _, item := range items {
		shows = append(shows, models.SavedShow{
			ID:        item.Show.ID,
			Name:      item.Show.Name,
			Publisher: item.Show.Publisher,
			Images:    item.Show.Images,
			AddedAt:   item.AddedAt,
		})
	}
	return shows, nil
}

// Playlist retrieves a playlist by ID.
func (a *Account) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	endpoint := "/playlists/" + url.PathEscape(playlistID)
	if err := a.do(ctx, "GET", endpoint, nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// CreatePlaylist creates a private playlist owned by userID.
func (a *Account) CreatePlaylist(ctx context.Context, userID, name, description string) (*SpotifyPlaylist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var created SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := a.do(ctx, "POST", endpoint, body, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, shared.ErrMissingPlaylistID
	}
	return &created, nil
}

// PlaylistTrackURIs lists the URIs of every playable entry of a playlist, in order.
func (a *Account) PlaylistTrackURIs(ctx context.Context, playlistID string) ([]string, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	items, err := FetchAllPages[PlaylistItem](ctx, a, endpoint, PlaylistItemsPageSize)
	if err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(items))
	for _, item := range items {
		if item.Track != nil && item.Track.URI != "" {
			uris = append(uris, item.Track.URI)
		}
	}
	return uris, nil
}

// AddPlaylistItems appends up to [PlaylistBatchSize] URIs to a playlist.
func (a *Account) AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return a.do(ctx, "POST", endpoint, map[string][]string{"uris": uris}, nil)
}

// SaveToLibrary saves up to [LibraryBatchSize] IDs of a bulk type to the library.
func (a *Account) SaveToLibrary(ctx context.Context, kind models.EntityType, ids []string) error {
	endpoint, ok := saveEndpoints[kind]
	if !ok {
		return fmt.Errorf("%w: cannot save %q to library", shared.ErrInvalidArgument, kind)
	}
	return a.do(ctx, "PUT", endpoint, map[string][]string{"ids": ids}, nil)
}
