package tasks

import (
	"fmt"

	"github.com/desertthunder/sptx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase             // Operation phase
	Type    models.EntityType // Entity type being processed, if any
	Step    int               // Completed units (batches, playlists or reads)
	Total   int               // Total units for the whole operation
	Message string            // Human-readable message for display

	// Running item counts. Bulk types count IDs; the playlist phase counts playlists.
	Attempted int
	Succeeded int
	Failed    int
}

// Fraction is Step/Total in [0,1].
func (u ProgressUpdate) Fraction() float64 {
	if u.Total <= 0 {
		return 0
	}
	return min(float64(u.Step)/float64(u.Total), 1)
}

// Operation phase enumeration
type Phase int

const (
	FetchLibrary Phase = iota
	SaveLibrary
	CopyPlaylists
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchLibrary:
		return "fetch_library"
	case SaveLibrary:
		return "save_library"
	case CopyPlaylists:
		return "copy_playlists"
	case Done:
		return "done"
	default:
		return ""
	}
}

// counter accumulates the running totals reported with each update.
type counter struct {
	step      int
	total     int
	attempted int
	succeeded int
	failed    int
}

func (c *counter) update(phase Phase, kind models.EntityType, msg string) ProgressUpdate {
	return ProgressUpdate{
		Phase:     phase,
		Type:      kind,
		Step:      c.step,
		Total:     c.total,
		Message:   msg,
		Attempted: c.attempted,
		Succeeded: c.succeeded,
		Failed:    c.failed,
	}
}

func fetchedUpdate(step, total int, what string, n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetched %d %s", n, what),
	}
}

func batchUpdate(c *counter, kind models.EntityType, size int, err error) ProgressUpdate {
	if err != nil {
		return c.update(SaveLibrary, kind, fmt.Sprintf("[%d/%d] ✗ %d %s: %v", c.step, c.total, size, kind, err))
	}
	return c.update(SaveLibrary, kind, fmt.Sprintf("[%d/%d] ✓ %d %s", c.step, c.total, size, kind))
}

func playlistUpdate(c *counter, name string, tracks int, skipped bool) ProgressUpdate {
	if skipped {
		return c.update(CopyPlaylists, models.EntityPlaylist, fmt.Sprintf("[%d/%d] - %s (already transferred)", c.step, c.total, name))
	}
	return c.update(CopyPlaylists, models.EntityPlaylist, fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", c.step, c.total, name, tracks))
}

func playlistFailedUpdate(c *counter, id string, err error) ProgressUpdate {
	return c.update(CopyPlaylists, models.EntityPlaylist, fmt.Sprintf("[%d/%d] ✗ %s: %v", c.step, c.total, id, err))
}

func doneUpdate(c *counter) ProgressUpdate {
	return c.update(Done, "", fmt.Sprintf("Transfer complete: %d succeeded, %d failed", c.succeeded, c.failed))
}
