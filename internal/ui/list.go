package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/dustin/go-humanize"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.PlaylistSummary] with its selection state to implement [list.Item].
type playlistItem struct {
	playlist models.PlaylistSummary
	selected bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return checkbox(i.selected) + " " + i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%s tracks", humanize.Comma(int64(i.playlist.TracksTotal)))
	if owner := i.playlist.Owner.DisplayName; owner != "" {
		desc = fmt.Sprintf("%s • by %s", desc, owner)
	}
	return desc
}

// typeOption is one row of the entity type checklist.
type typeOption struct {
	kind  models.EntityType
	label string
}

var typeOptions = []typeOption{
	{models.EntityPlaylist, "Playlists"},
	{models.EntityTracks, "Liked songs"},
	{models.EntityAlbums, "Saved albums"},
	{models.EntityArtists, "Followed artists"},
	{models.EntityPodcasts, "Saved podcasts"},
}

func flagFor(f *models.SelectionFlags, kind models.EntityType) *bool {
	switch kind {
	case models.EntityPlaylist:
		return &f.Playlists
	case models.EntityTracks:
		return &f.Tracks
	case models.EntityAlbums:
		return &f.Albums
	case models.EntityArtists:
		return &f.Artists
	case models.EntityPodcasts:
		return &f.Podcasts
	}
	return nil
}
