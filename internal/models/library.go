package models

// Owner identifies a playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// PlaylistSummary is a playlist as listed in a user's library.
type PlaylistSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Images      []Image `json:"images"`
	TracksTotal int     `json:"tracks_total"`
	Public      bool    `json:"public"`
	Owner       Owner   `json:"owner"`
}

// SavedTrack is a liked song. Artists are comma-joined names.
type SavedTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists string `json:"artists"`
	Album   string `json:"album"`
	AddedAt string `json:"added_at"`
}

// SavedAlbum is an album saved to the library.
type SavedAlbum struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Artists string  `json:"artists"`
	Images  []Image `json:"images"`
	AddedAt string  `json:"added_at"`
}

// FollowedArtist is an artist the user follows.
type FollowedArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Images []Image  `json:"images"`
	Genres []string `json:"genres"`
}

// SavedShow is a podcast saved to the library.
type SavedShow struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Publisher string  `json:"publisher"`
	Images    []Image `json:"images"`
	AddedAt   string  `json:"added_at"`
}

// LibrarySnapshot is the full library of one account at the time it was read.
//
// Each sequence preserves the order the API returned.
type LibrarySnapshot struct {
	Playlists       []PlaylistSummary `json:"playlists"`
	SavedTracks     []SavedTrack      `json:"savedTracks"`
	SavedAlbums     []SavedAlbum      `json:"savedAlbums"`
	FollowedArtists []FollowedArtist  `json:"followedArtists"`
	SavedShows      []SavedShow       `json:"savedShows"`
}

// Count returns how many items of the given type the snapshot holds.
func (s *LibrarySnapshot) Count(t EntityType) int {
	switch t {
	case EntityTracks:
		return len(s.SavedTracks)
	case EntityAlbums:
		return len(s.SavedAlbums)
	case EntityArtists:
		return len(s.FollowedArtists)
	case EntityPodcasts:
		return len(s.SavedShows)
	case EntityPlaylist:
		return len(s.Playlists)
	}
	return 0
}

// IDs returns the non-empty IDs of the given type in snapshot order.
func (s *LibrarySnapshot) IDs(t EntityType) []string {
	switch t {
	case EntityTracks:
		return collectIDs(s.SavedTracks, func(v SavedTrack) string { return v.ID })
	case EntityAlbums:
		return collectIDs(s.SavedAlbums, func(v SavedAlbum) string { return v.ID })
	case EntityArtists:
		return collectIDs(s.FollowedArtists, func(v FollowedArtist) string { return v.ID })
	case EntityPodcasts:
		return collectIDs(s.SavedShows, func(v SavedShow) string { return v.ID })
	case EntityPlaylist:
		return collectIDs(s.Playlists, func(v PlaylistSummary) string { return v.ID })
	}
	return nil
}

// Playlist looks up a playlist summary by ID.
func (s *LibrarySnapshot) Playlist(id string) (PlaylistSummary, bool) {
	for _, p := range s.Playlists {
		if p.ID == id {
			return p, true
		}
	}
	return PlaylistSummary{}, false
}

func collectIDs[T any](items []T, id func(T) string) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if v := id(item); v != "" {
			ids = append(ids, v)
		}
	}
	return ids
}
