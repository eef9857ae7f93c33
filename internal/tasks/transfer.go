package tasks

import (
	"context"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/services"
)

// PlaylistLedger remembers playlists already created on a target account.
type PlaylistLedger interface {
	// Find returns the recorded transfer, or nil when there is none.
	Find(ctx context.Context, sourcePlaylistID, targetUserID string) (*models.PlaylistTransfer, error)
	Record(ctx context.Context, t models.PlaylistTransfer) error
}

// TransferOpts tunes a transfer. The zero value reports nothing and records nothing.
type TransferOpts struct {
	Progress        ProgressFunc
	Ledger          PlaylistLedger
	SkipTransferred bool
}

// transfer is the state of one [Engine.Transfer] call.
type transfer struct {
	*Engine
	source, target services.Service
	result         *models.TransferResult
	count          *counter
	opts           TransferOpts
}

// Transfer copies the selected library content from the source account to the target account.
//
// Types run in the order tracks, albums, artists, podcasts, playlists, all sequentially.
// Every batch or playlist yields one success or failure entry and failures never stop the run.
// If ctx is cancelled the partial result is returned together with ctx.Err().
func (e *Engine) Transfer(ctx context.Context, sourceToken, targetToken string, sel models.TransferSelection, opts TransferOpts) (*models.TransferResult, error) {
	t := &transfer{
		Engine: e,
		source: e.connect(sourceToken),
		target: e.connect(targetToken),
		result: models.NewTransferResult(),
		count:  &counter{total: plannedUnits(sel)},
		opts:   opts,
	}

	for _, kind := range models.BulkTypes {
		on, ids := sel.BulkIDs(kind)
		if !on || len(ids) == 0 {
			continue
		}
		if err := t.saveBulk(ctx, kind, ids); err != nil {
			return t.result, err
		}
	}

	if sel.Playlists && len(sel.PlaylistIDs) > 0 {
		if err := t.copyPlaylists(ctx, sel.PlaylistIDs); err != nil {
			return t.result, err
		}
	}

	opts.Progress.send(doneUpdate(t.count))
	e.logger.Info("transfer complete", "succeeded", len(t.result.Success), "failed", len(t.result.Failed))
	return t.result, nil
}

// plannedUnits is the number of progress steps a selection produces.
func plannedUnits(sel models.TransferSelection) int {
	n := 0
	for _, kind := range models.BulkTypes {
		if on, ids := sel.BulkIDs(kind); on {
			n += batches(len(ids), services.LibraryBatchSize)
		}
	}
	if sel.Playlists {
		n += len(sel.PlaylistIDs)
	}
	return n
}

func (t *transfer) saveBulk(ctx context.Context, kind models.EntityType, ids []string) error {
	for _, batch := range Chunk(ids, services.LibraryBatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := t.target.SaveToLibrary(ctx, kind, batch)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		t.count.step++
		t.count.attempted += len(batch)
		if err != nil {
			t.count.failed += len(batch)
			t.result.Fail(kind, "", err.Error())
			t.logger.Warn("batch failed", "type", kind, "size", len(batch), "error", err)
		} else {
			t.count.succeeded += len(batch)
			t.result.Succeed(models.SuccessEntry{Type: kind, Count: len(batch)})
		}
		t.opts.Progress.send(batchUpdate(t.count, kind, len(batch), err))
	}
	return nil
}

func (t *transfer) copyPlaylists(ctx context.Context, ids []string) error {
	user, err := t.target.Me(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.logger.Error("could not resolve target account", "error", err)
		for _, id := range ids {
			t.playlistFailed(id, err)
		}
		return nil
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry, err := t.copyPlaylist(ctx, user.ID, id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.playlistFailed(id, err)
			continue
		}

		t.count.step++
		t.count.attempted++
		t.count.succeeded++
		t.result.Succeed(*entry)
		t.opts.Progress.send(playlistUpdate(t.count, entry.Name, entry.Tracks, entry.Skipped))
	}
	return nil
}

func (t *transfer) playlistFailed(id string, err error) {
	t.count.step++
	t.count.attempted++
	t.count.failed++
	t.result.Fail(models.EntityPlaylist, id, err.Error())
	t.logger.Warn("playlist failed", "id", id, "error", err)
	t.opts.Progress.send(playlistFailedUpdate(t.count, id, err))
}

// copyPlaylist recreates one playlist on the target account.
//
// Failed item batches do not fail the playlist; they are counted in the entry's FailedBatches.
func (t *transfer) copyPlaylist(ctx context.Context, targetUserID, id string) (*models.SuccessEntry, error) {
	if t.opts.Ledger != nil && t.opts.SkipTransferred {
		prior, err := t.opts.Ledger.Find(ctx, id, targetUserID)
		switch {
		case err != nil:
			t.logger.Warn("ledger lookup failed", "id", id, "error", err)
		case prior != nil:
			return &models.SuccessEntry{Type: models.EntityPlaylist, Name: prior.Name, Tracks: prior.TrackCount, Skipped: true}, nil
		}
	}

	playlist, err := t.source.Playlist(ctx, id)
	if err != nil {
		return nil, err
	}

	created, err := t.target.CreatePlaylist(ctx, targetUserID, playlist.Name, playlist.Description)
	if err != nil {
		return nil, err
	}

	uris, err := t.source.PlaylistTrackURIs(ctx, id)
	if err != nil {
		t.logger.Warn("created playlist left empty", "id", id, "target_id", created.ID)
		return nil, err
	}

	failedBatches := 0
	for _, batch := range Chunk(uris, services.PlaylistBatchSize) {
		if err := t.target.AddPlaylistItems(ctx, created.ID, batch); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failedBatches++
			t.logger.Warn("playlist items not added", "playlist", playlist.Name, "size", len(batch), "error", err)
		}
	}

	if t.opts.Ledger != nil {
		record := models.PlaylistTransfer{
			SourcePlaylistID: id,
			TargetUserID:     targetUserID,
			TargetPlaylistID: created.ID,
			Name:             playlist.Name,
			TrackCount:       len(uris),
		}
		if err := t.opts.Ledger.Record(ctx, record); err != nil {
			t.logger.Warn("ledger record failed", "id", id, "error", err)
		}
	}

	return &models.SuccessEntry{
		Type:          models.EntityPlaylist,
		Name:          playlist.Name,
		Tracks:        len(uris),
		FailedBatches: failedBatches,
	}, nil
}
