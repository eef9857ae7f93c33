// package services defines interface Service for interacting with the Spotify Web API
package services

import (
	"context"

	"github.com/desertthunder/sptx/internal/models"
)

// Service is the set of Web API operations performed on behalf of a single account.
type Service interface {
	// Me returns the profile of the token's owner.
	Me(ctx context.Context) (*models.UserProfile, error)

	// Library reads. Each returns the complete collection or an error.
	Playlists(ctx context.Context) ([]models.PlaylistSummary, error)
	SavedTracks(ctx context.Context) ([]models.SavedTrack, error)
	SavedAlbums(ctx context.Context) ([]models.SavedAlbum, error)
	FollowedArtists(ctx context.Context) ([]models.FollowedArtist, error)
	SavedShows(ctx context.Context) ([]models.SavedShow, error)

	// Playlist copying.
	Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error)
	CreatePlaylist(ctx context.Context, userID, name, description string) (*SpotifyPlaylist, error)
	PlaylistTrackURIs(ctx context.Context, playlistID string) ([]string, error)
	AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error

	// SaveToLibrary performs one bulk library write.
	SaveToLibrary(ctx context.Context, kind models.EntityType, ids []string) error
}

// Connector opens a [Service] for an access token.
type Connector func(token string) Service

// Connect returns a [Connector] backed by c.
func (c *Client) Connect() Connector {
	return func(token string) Service { return c.Account(token) }
}

var _ Service = (*Account)(nil)
