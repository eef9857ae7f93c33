package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/shared"
)

const (
	runColumns = `id, source_user_id, target_user_id, succeeded, failed, result, started_at, finished_at`

	createRunQuery = `INSERT INTO transfer_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	getRunQuery    = `SELECT ` + runColumns + ` FROM transfer_runs WHERE id = ?`
	listRunsQuery  = `SELECT ` + runColumns + ` FROM transfer_runs ORDER BY started_at DESC LIMIT ?`

	pruneCutoffQuery = `SELECT started_at FROM transfer_runs ORDER BY started_at DESC LIMIT 1 OFFSET ?`
	pruneRunsQuery   = `DELETE FROM transfer_runs WHERE started_at <= ?`
)

// RunRepository stores finished transfers for the history command.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts run, assigning an ID when it has none.
// Succeeded and Failed count the result's entries when one is attached.
func (r *RunRepository) Create(ctx context.Context, run *models.TransferRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}

	result := run.Result
	if result == nil {
		result = models.NewTransferResult()
	} else {
		run.Succeeded, run.Failed = len(result.Success), len(result.Failed)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode transfer result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, createRunQuery,
		run.ID, run.SourceUserID, run.TargetUserID, run.Succeeded, run.Failed,
		string(data), run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create transfer run: %w", err)
	}
	return nil
}

// Get returns the run with id, or [shared.ErrNotFound].
func (r *RunRepository) Get(ctx context.Context, id string) (*models.TransferRun, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, getRunQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transfer run %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less means no limit.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.TransferRun, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, listRunsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.TransferRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfer runs: %w", err)
	}
	return runs, nil
}

// Prune keeps the newest keep runs and deletes the rest.
func (r *RunRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must not be negative", shared.ErrInvalidArgument)
	}

	var removed int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var cutoff sql.NullTime
		err := tx.QueryRowContext(ctx, pruneCutoffQuery, keep).Scan(&cutoff)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find prune cutoff: %w", err)
		}

		res, err := tx.ExecContext(ctx, pruneRunsQuery, cutoff.Time)
		if err != nil {
			return fmt.Errorf("failed to prune transfer runs: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func scanRun(s scanner) (*models.TransferRun, error) {
	var (
		run    models.TransferRun
		result string
	)
	if err := s.Scan(
		&run.ID, &run.SourceUserID, &run.TargetUserID, &run.Succeeded, &run.Failed,
		&result, &run.StartedAt, &run.FinishedAt,
	); err != nil {
		return nil, err
	}

	run.Result = models.NewTransferResult()
	if err := json.Unmarshal([]byte(result), run.Result); err != nil {
		return nil, fmt.Errorf("%w: run %s result: %v", shared.ErrMalformedResponse, run.ID, err)
	}
	return &run, nil
}
