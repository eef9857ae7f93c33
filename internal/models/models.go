// package models defines the data model for the library migration service
package models

import (
	"time"
)

// EntityType labels a category of library content in transfer results.
type EntityType string

const (
	EntityTracks   EntityType = "tracks"
	EntityAlbums   EntityType = "albums"
	EntityArtists  EntityType = "artists"
	EntityPodcasts EntityType = "podcasts"
	EntityPlaylist EntityType = "playlist"
)

// BulkTypes lists the library types saved through bulk writes, in transfer order.
var BulkTypes = []EntityType{EntityTracks, EntityAlbums, EntityArtists, EntityPodcasts}

// Credential is an OAuth token pair for one account.
type Credential struct {
	AccessToken  string    `json:"access_token" toml:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty" toml:"refresh_token"`
	Expiry       time.Time `json:"expiry,omitzero" toml:"expiry"`
}

// Expired reports whether the access token is past its expiry.
// A zero expiry never expires.
func (c Credential) Expired() bool {
	return !c.Expiry.IsZero() && time.Now().After(c.Expiry)
}

// Image is an artwork reference.
type Image struct {
	URL    string `json:"url" toml:"url"`
	Height int    `json:"height,omitempty" toml:"height,omitempty"`
	Width  int    `json:"width,omitempty" toml:"width,omitempty"`
}

// UserProfile is the "who am I" projection of an account.
type UserProfile struct {
	ID          string  `json:"id" toml:"id"`
	DisplayName string  `json:"display_name" toml:"display_name"`
	Email       string  `json:"email,omitempty" toml:"email"`
	Country     string  `json:"country,omitempty" toml:"country"`
	Product     string  `json:"product,omitempty" toml:"product"`
	Images      []Image `json:"images,omitempty" toml:"-"`
}

// Name returns the display name, falling back to the user ID.
func (u UserProfile) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}
