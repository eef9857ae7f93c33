package models

import (
	"encoding/json"
	"time"
)

// TransferSelection describes what to copy from the source account.
//
// For every bulk type whose flag is set, the matching ID list holds all IDs of that type in the source snapshot.
// Playlists are chosen individually.
type TransferSelection struct {
	Playlists bool `json:"playlists"`
	Tracks    bool `json:"tracks"`
	Albums    bool `json:"albums"`
	Artists   bool `json:"artists"`
	Podcasts  bool `json:"podcasts"`

	PlaylistIDs []string `json:"playlistIds"`
	TrackIDs    []string `json:"trackIds"`
	AlbumIDs    []string `json:"albumIds"`
	ArtistIDs   []string `json:"artistIds"`
	ShowIDs     []string `json:"showIds"`
}

// SelectionFlags toggles each entity type.
type SelectionFlags struct {
	Playlists bool
	Tracks    bool
	Albums    bool
	Artists   bool
	Podcasts  bool
}

// AllTypes selects every entity type.
func AllTypes() SelectionFlags {
	return SelectionFlags{Playlists: true, Tracks: true, Albums: true, Artists: true, Podcasts: true}
}

// Any reports whether at least one type is selected.
func (f SelectionFlags) Any() bool {
	return f.Playlists || f.Tracks || f.Albums || f.Artists || f.Podcasts
}

// NewSelection builds a selection from a snapshot.
//
// Bulk types take every ID of their type. Playlists take playlistIDs, or every playlist when playlistIDs is empty.
func NewSelection(snapshot *LibrarySnapshot, flags SelectionFlags, playlistIDs []string) TransferSelection {
	sel := TransferSelection{
		Playlists: flags.Playlists,
		Tracks:    flags.Tracks,
		Albums:    flags.Albums,
		Artists:   flags.Artists,
		Podcasts:  flags.Podcasts,
	}
	if flags.Tracks {
		sel.TrackIDs = snapshot.IDs(EntityTracks)
	}
	if flags.Albums {
		sel.AlbumIDs = snapshot.IDs(EntityAlbums)
	}
	if flags.Artists {
		sel.ArtistIDs = snapshot.IDs(EntityArtists)
	}
	if flags.Podcasts {
		sel.ShowIDs = snapshot.IDs(EntityPodcasts)
	}
	if flags.Playlists {
		if len(playlistIDs) > 0 {
			sel.PlaylistIDs = append([]string(nil), playlistIDs...)
		} else {
			sel.PlaylistIDs = snapshot.IDs(EntityPlaylist)
		}
	}
	return sel
}

// BulkIDs returns the flag and ID list for a bulk entity type.
func (s TransferSelection) BulkIDs(t EntityType) (bool, []string) {
	switch t {
	case EntityTracks:
		return s.Tracks, s.TrackIDs
	case EntityAlbums:
		return s.Albums, s.AlbumIDs
	case EntityArtists:
		return s.Artists, s.ArtistIDs
	case EntityPodcasts:
		return s.Podcasts, s.ShowIDs
	}
	return false, nil
}

// Items counts the items that would be attempted.
func (s TransferSelection) Items() int {
	n := 0
	for _, t := range BulkTypes {
		if on, ids := s.BulkIDs(t); on {
			n += len(ids)
		}
	}
	if s.Playlists {
		n += len(s.PlaylistIDs)
	}
	return n
}

// SuccessEntry records one successful batch or playlist.
//
// Bulk entries carry Count. Playlist entries carry Name and Tracks.
type SuccessEntry struct {
	Type          EntityType
	Count         int
	Name          string
	Tracks        int
	Skipped       bool
	FailedBatches int
}

type bulkSuccessJSON struct {
	Type  EntityType `json:"type"`
	Count int        `json:"count"`
}

type playlistSuccessJSON struct {
	Type          EntityType `json:"type"`
	Name          string     `json:"name"`
	Tracks        int        `json:"tracks"`
	Skipped       bool       `json:"skipped,omitempty"`
	FailedBatches int        `json:"failed_batches,omitempty"`
}

// MarshalJSON emits {type,count} for bulk entries and {type,name,tracks} for playlists.
func (e SuccessEntry) MarshalJSON() ([]byte, error) {
	if e.Type == EntityPlaylist {
		return json.Marshal(playlistSuccessJSON{
			Type: e.Type, Name: e.Name, Tracks: e.Tracks,
			Skipped: e.Skipped, FailedBatches: e.FailedBatches,
		})
	}
	return json.Marshal(bulkSuccessJSON{Type: e.Type, Count: e.Count})
}

// UnmarshalJSON accepts either entry shape.
func (e *SuccessEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type          EntityType `json:"type"`
		Count         int        `json:"count"`
		Name          string     `json:"name"`
		Tracks        int        `json:"tracks"`
		Skipped       bool       `json:"skipped"`
		FailedBatches int        `json:"failed_batches"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = SuccessEntry(raw)
	return nil
}

// Items is the number of items the entry accounts for.
func (e SuccessEntry) Items() int {
	if e.Type == EntityPlaylist {
		return e.Tracks
	}
	return e.Count
}

// FailedEntry records one failed batch or playlist. ID is set for playlists only.
type FailedEntry struct {
	Type  EntityType `json:"type"`
	ID    string     `json:"id,omitempty"`
	Error string     `json:"error"`
}

// TransferResult is the ordered outcome of a transfer.
type TransferResult struct {
	Success []SuccessEntry `json:"success"`
	Failed  []FailedEntry  `json:"failed"`
}

// NewTransferResult returns a result whose sequences encode as empty arrays.
func NewTransferResult() *TransferResult {
	return &TransferResult{Success: []SuccessEntry{}, Failed: []FailedEntry{}}
}

// Succeed appends a success entry.
func (r *TransferResult) Succeed(e SuccessEntry) { r.Success = append(r.Success, e) }

// Fail appends a failure entry.
func (r *TransferResult) Fail(t EntityType, id, msg string) {
	r.Failed = append(r.Failed, FailedEntry{Type: t, ID: id, Error: msg})
}

// Totals sums success entries per type.
func (r *TransferResult) Totals() map[EntityType]int {
	totals := make(map[EntityType]int)
	for _, e := range r.Success {
		totals[e.Type] += e.Items()
	}
	return totals
}

// PlaylistTransfer is a ledger row for a playlist created on a target account.
type PlaylistTransfer struct {
	SourcePlaylistID string
	TargetUserID     string
	TargetPlaylistID string
	Name             string
	TrackCount       int
	CreatedAt        time.Time
}

// TransferRun is one completed transfer kept for history.
type TransferRun struct {
	ID           string
	SourceUserID string
	TargetUserID string
	Succeeded    int
	Failed       int
	Result       *TransferResult
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is how long the run took.
func (r TransferRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
