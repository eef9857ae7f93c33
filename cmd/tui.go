package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/desertthunder/sptx/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogFile = "./tmp/sptx-tui.log"

// TUI launches the interactive terminal UI for a library transfer.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	source, target, sourceToken, targetToken, err := r.accounts(ctx)
	if err != nil {
		return err
	}

	skipExisting := cmd.Bool("skip-existing")
	stores, err := r.openTransferStores(skipExisting)
	if err != nil {
		return err
	}
	defer stores.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	logCfg := r.config.Log
	if logCfg.File == "" {
		logCfg.File = tuiLogFile
	}
	fileLogger, closer := shared.NewFileLogger(logCfg)
	defer closer.Close()
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, ui.Options{
		Engine:   r.engine,
		Source:   ui.Account{Name: source.User.Name(), Token: sourceToken},
		Target:   ui.Account{Name: target.User.Name(), Token: targetToken},
		Transfer: stores.transferOpts(skipExisting, nil),
		Logger:   fileLogger,
		OnComplete: func(ctx context.Context, result *models.TransferResult, started time.Time) error {
			return stores.recordRun(context.WithoutCancel(ctx), source, target, result, started)
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
