package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/sptx/internal/formatter"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/repositories"
	"github.com/desertthunder/sptx/internal/session"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// runSummary is the JSON shape of one row in `history`.
type runSummary struct {
	ID           string    `json:"id"`
	SourceUserID string    `json:"source_user_id"`
	TargetUserID string    `json:"target_user_id"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// History lists recorded transfers, shows one in full, or prunes old ones.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.requireDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs := repositories.NewRunRepository(db)

	if keep := cmd.Int("prune"); keep >= 0 {
		n, err := runs.Prune(ctx, keep)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Pruned %s, kept the newest %d\n", pluralRuns(n), keep)
	}

	if id := cmd.String("show"); id != "" {
		return r.showRun(ctx, runs, id, cmd.Bool("json"))
	}

	list, err := runs.List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]runSummary, len(list))
		for i, run := range list {
			rows[i] = runSummary{
				ID:           run.ID,
				SourceUserID: run.SourceUserID,
				TargetUserID: run.TargetUserID,
				Succeeded:    run.Succeeded,
				Failed:       run.Failed,
				StartedAt:    run.StartedAt,
				FinishedAt:   run.FinishedAt,
			}
		}
		return r.writeJSON(rows, true)
	}

	if len(list) == 0 {
		return r.writePlain("No transfers recorded yet.\n")
	}

	r.writePlain("Found %d transfers:\n\n", len(list))
	for _, run := range list {
		status := "✓"
		if run.Failed > 0 {
			status = "⚠"
		}
		r.writePlain("%s %s  %s → %s\n", status, run.ID, run.SourceUserID, run.TargetUserID)
		r.writePlain("   %s, took %s\n", humanize.Time(run.StartedAt), run.Duration().Round(time.Second))
		r.writePlain("   %d succeeded, %d failed\n\n", run.Succeeded, run.Failed)
	}
	return nil
}

func (r *Runner) showRun(ctx context.Context, runs *repositories.RunRepository, id string, asJSON bool) error {
	run, err := runs.Get(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		return r.writeJSON(run.Result, true)
	}

	r.writePlainHeader(fmt.Sprintf("Transfer %s", run.ID))
	r.writePlain("%s → %s, %s\n\n", run.SourceUserID, run.TargetUserID, humanize.Time(run.StartedAt))
	return r.writeBytes(formatter.ResultToText(run.Result))
}

func pluralRuns(n int64) string {
	if n == 1 {
		return "1 run"
	}
	return fmt.Sprintf("%d runs", n)
}

// targetLedger opens the ledger and resolves the signed-in target account.
func (r *Runner) targetLedger() (*repositories.PlaylistLedger, models.UserProfile, func() error, error) {
	target, err := r.sessions.Get(session.Target)
	if err != nil {
		return nil, models.UserProfile{}, nil, err
	}

	db, err := r.requireDatabase()
	if err != nil {
		return nil, models.UserProfile{}, nil, err
	}
	return repositories.NewPlaylistLedger(db), target.User, db.Close, nil
}

// LedgerList shows playlists recorded as copied to the target account.
func (r *Runner) LedgerList(ctx context.Context, cmd *cli.Command) error {
	ledger, user, closeDB, err := r.targetLedger()
	if err != nil {
		return err
	}
	defer closeDB()

	rows, err := ledger.List(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return r.writePlain("No playlists copied to %s yet.\n", user.Name())
	}

	r.writePlain("Copied to %s:\n\n", user.Name())
	for _, row := range rows {
		r.writePlain("- %s (%s tracks), %s\n", row.Name, humanize.Comma(int64(row.TrackCount)), humanize.Time(row.CreatedAt))
		r.writePlain("  %s → %s\n", row.SourcePlaylistID, row.TargetPlaylistID)
	}
	return nil
}

// LedgerForget clears the ledger for the target account.
func (r *Runner) LedgerForget(ctx context.Context, cmd *cli.Command) error {
	ledger, user, closeDB, err := r.targetLedger()
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := ledger.Forget(ctx, user.ID)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Forgot %d copied playlists for %s\n", n, user.Name())
}
