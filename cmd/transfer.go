package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/sptx/internal/formatter"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/repositories"
	"github.com/desertthunder/sptx/internal/session"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/desertthunder/sptx/internal/tasks"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func selectionFlags(cmd *cli.Command) (models.SelectionFlags, []string, error) {
	playlistIDs := cmd.StringSlice("playlist-id")

	if cmd.Bool("all") {
		return models.AllTypes(), playlistIDs, nil
	}

	flags := models.SelectionFlags{
		Playlists: cmd.Bool("playlists") || len(playlistIDs) > 0,
		Tracks:    cmd.Bool("tracks"),
		Albums:    cmd.Bool("albums"),
		Artists:   cmd.Bool("artists"),
		Podcasts:  cmd.Bool("podcasts"),
	}
	if !flags.Any() {
		return flags, nil, fmt.Errorf("%w: choose what to copy with --all or --playlists, --tracks, --albums, --artists, --podcasts", shared.ErrMissingArgument)
	}
	return flags, playlistIDs, nil
}

// transferStores holds the optional persistence of a transfer.
type transferStores struct {
	db     *sql.DB
	ledger *repositories.PlaylistLedger
	runs   *repositories.RunRepository
}

func (s *transferStores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// openTransferStores opens the ledger and run history when a database is configured.
func (r *Runner) openTransferStores(skipExisting bool) (*transferStores, error) {
	var (
		db  *sql.DB
		err error
	)
	if skipExisting {
		db, err = r.requireDatabase()
	} else {
		db, err = r.openDatabase()
	}
	if err != nil || db == nil {
		return &transferStores{}, err
	}
	return &transferStores{
		db:     db,
		ledger: repositories.NewPlaylistLedger(db),
		runs:   repositories.NewRunRepository(db),
	}, nil
}

// transferOpts wires the ledger into the engine. A nil ledger pointer must not become a non-nil interface.
func (s *transferStores) transferOpts(skipExisting bool, progress tasks.ProgressFunc) tasks.TransferOpts {
	opts := tasks.TransferOpts{Progress: progress, SkipTransferred: skipExisting}
	if s.ledger != nil {
		opts.Ledger = s.ledger
	}
	return opts
}

// recordRun stores a finished transfer in history. It does nothing without a database.
func (s *transferStores) recordRun(ctx context.Context, source, target session.Entry, result *models.TransferResult, started time.Time) error {
	if s.runs == nil {
		return nil
	}
	return s.runs.Create(ctx, &models.TransferRun{
		SourceUserID: source.User.ID,
		TargetUserID: target.User.ID,
		Result:       result,
		StartedAt:    started,
		FinishedAt:   time.Now(),
	})
}

// accounts resolves both slots and refuses to copy an account onto itself.
func (r *Runner) accounts(ctx context.Context) (source, target session.Entry, sourceToken, targetToken string, err error) {
	if source, sourceToken, err = r.account(ctx, session.Source); err != nil {
		return
	}
	if target, targetToken, err = r.account(ctx, session.Target); err != nil {
		return
	}
	if source.User.ID != "" && source.User.ID == target.User.ID {
		err = fmt.Errorf("%w: source and target are the same account (%s)", shared.ErrInvalidArgument, source.User.Name())
	}
	return
}

// Transfer copies the selected library content from the source account to the target account.
func (r *Runner) Transfer(ctx context.Context, cmd *cli.Command) error {
	flags, playlistIDs, err := selectionFlags(cmd)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	skipExisting := cmd.Bool("skip-existing")
	dryRun := cmd.Bool("dry-run")

	source, target, sourceToken, targetToken, err := r.accounts(ctx)
	if err != nil {
		return err
	}

	stores, err := r.openTransferStores(skipExisting && !dryRun)
	if err != nil {
		return err
	}
	defer stores.Close()

	quiet := format != formatter.FormatText
	say := func(f string, args ...any) {
		if !quiet {
			r.writePlain(f, args...)
		}
	}

	say("Reading library of %s...\n", source.User.Name())
	snapshot, err := r.engine.FetchLibrary(ctx, sourceToken, nil)
	if err != nil {
		return fmt.Errorf("failed to read source library: %w", err)
	}

	for _, id := range playlistIDs {
		if _, ok := snapshot.Playlist(id); !ok {
			r.logger.Warn("playlist not in source library, copying anyway", "id", id)
		}
	}

	sel := models.NewSelection(snapshot, flags, playlistIDs)
	if sel.Items() == 0 {
		return r.writePlain("Nothing to copy: the selected collections are empty.\n")
	}

	if dryRun {
		return r.writeSelection(source, target, sel)
	}

	r.logger.Info("starting transfer", "source", source.User.ID, "target", target.User.ID, "items", sel.Items())
	say("Copying to %s...\n\n", target.User.Name())

	progress := func(u tasks.ProgressUpdate) {
		switch u.Phase {
		case tasks.SaveLibrary, tasks.CopyPlaylists:
			say("[%d/%d] %s\n", u.Step, u.Total, u.Message)
		default:
			r.logger.Debug(u.Message, "phase", u.Phase)
		}
	}

	started := time.Now()
	result, transferErr := r.engine.Transfer(ctx, sourceToken, targetToken, sel, stores.transferOpts(skipExisting, progress))
	if result == nil {
		return transferErr
	}

	if err := stores.recordRun(context.WithoutCancel(ctx), source, target, result, started); err != nil {
		r.logger.Warn("failed to record transfer", "error", err)
	}

	if path := cmd.String("report"); path != "" {
		if reportFormat, err := formatter.WriteReport(result, path); err != nil {
			r.logger.Warn("failed to write report", "path", path, "error", err)
		} else {
			r.logger.Info("report written", "path", path, "format", reportFormat)
		}
	}

	if err := r.writeResult(result, format, source, target, time.Since(started)); err != nil {
		return err
	}

	if transferErr != nil {
		return fmt.Errorf("transfer interrupted: %w", transferErr)
	}
	if len(result.Failed) > 0 {
		r.logger.Warn("transfer finished with failures", "failed", len(result.Failed))
	}
	return nil
}

func (r *Runner) writeResult(result *models.TransferResult, format formatter.Format, source, target session.Entry, took time.Duration) error {
	if format == formatter.FormatMarkdown {
		title := fmt.Sprintf("Transfer %s → %s", source.User.Name(), target.User.Name())
		return r.writeBytes(formatter.ResultToMarkdown(result, title))
	}

	data, err := formatter.RenderResult(result, format)
	if err != nil {
		return err
	}

	if format == formatter.FormatText {
		r.writePlain("\n")
		r.writePlainHeader("Transfer Complete!")
		r.writePlain("%s → %s in %s\n\n", source.User.Name(), target.User.Name(), took.Round(time.Second))
	}
	return r.writeBytes(data)
}

func (r *Runner) writeSelection(source, target session.Entry, sel models.TransferSelection) error {
	r.writePlainHeader("Dry run")
	r.writePlain("%s → %s\n\n", source.User.Name(), target.User.Name())
	for _, kind := range models.BulkTypes {
		if on, ids := sel.BulkIDs(kind); on {
			r.writePlain("  %-10s %s\n", kind, humanize.Comma(int64(len(ids))))
		}
	}
	if sel.Playlists {
		r.writePlain("  %-10s %d\n", "playlists", len(sel.PlaylistIDs))
	}
	return r.writePlain("\nNothing was written to the target account.\n")
}
