package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sptx/internal/models"
)

const (
	findTransferQuery = `
		SELECT source_playlist_id, target_user_id, target_playlist_id, name, track_count, created_at
		FROM playlist_transfers
		WHERE source_playlist_id = ? AND target_user_id = ?`

	recordTransferQuery = `
		INSERT OR REPLACE INTO playlist_transfers
			(source_playlist_id, target_user_id, target_playlist_id, name, track_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	listTransfersQuery = `
		SELECT source_playlist_id, target_user_id, target_playlist_id, name, track_count, created_at
		FROM playlist_transfers
		WHERE target_user_id = ?
		ORDER BY created_at DESC, name`

	forgetTransfersQuery = `DELETE FROM playlist_transfers WHERE target_user_id = ?`
)

// PlaylistLedger records which source playlists already have a copy on a target account.
type PlaylistLedger struct {
	db *sql.DB
}

// NewPlaylistLedger creates a new ledger over db.
func NewPlaylistLedger(db *sql.DB) *PlaylistLedger {
	return &PlaylistLedger{db: db}
}

// Find returns the recorded copy of sourcePlaylistID for targetUserID, or nil when there is none.
func (l *PlaylistLedger) Find(ctx context.Context, sourcePlaylistID, targetUserID string) (*models.PlaylistTransfer, error) {
	row := l.db.QueryRowContext(ctx, findTransferQuery, sourcePlaylistID, targetUserID)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find playlist transfer: %w", err)
	}
	return t, nil
}

// Record stores t, replacing any earlier copy for the same source playlist and target user.
func (l *PlaylistLedger) Record(ctx context.Context, t models.PlaylistTransfer) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx, recordTransferQuery,
		t.SourcePlaylistID, t.TargetUserID, t.TargetPlaylistID, t.Name, t.TrackCount, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record playlist transfer: %w", err)
	}
	return nil
}

// List returns every recorded copy on targetUserID's account, newest first.
func (l *PlaylistLedger) List(ctx context.Context, targetUserID string) ([]*models.PlaylistTransfer, error) {
	rows, err := l.db.QueryContext(ctx, listTransfersQuery, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlist transfers: %w", err)
	}
	defer rows.Close()

	transfers := []*models.PlaylistTransfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating playlist transfers: %w", err)
	}
	return transfers, nil
}

// Forget drops every record for targetUserID and reports how many were removed.
func (l *PlaylistLedger) Forget(ctx context.Context, targetUserID string) (int64, error) {
	res, err := l.db.ExecContext(ctx, forgetTransfersQuery, targetUserID)
	if err != nil {
		return 0, fmt.Errorf("failed to forget playlist transfers: %w", err)
	}
	return res.RowsAffected()
}

func scanTransfer(s scanner) (*models.PlaylistTransfer, error) {
	var t models.PlaylistTransfer
	if err := s.Scan(
		&t.SourcePlaylistID, &t.TargetUserID, &t.TargetPlaylistID,
		&t.Name, &t.TrackCount, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
