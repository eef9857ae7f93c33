package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/sptx/internal/formatter"
	"github.com/desertthunder/sptx/internal/session"
	"github.com/desertthunder/sptx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Library reads every collection of an account and prints or saves it.
func (r *Runner) Library(ctx context.Context, cmd *cli.Command) error {
	slot, err := session.ParseSlot(cmd.String("account"))
	if err != nil {
		return err
	}

	outputFile := cmd.String("output")
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if outputFile != "" && !cmd.IsSet("format") {
		format = formatter.FormatFromPath(outputFile)
	}

	entry, token, err := r.account(ctx, slot)
	if err != nil {
		return err
	}

	r.logger.Info("reading library", "slot", slot, "user", entry.User.ID)
	snapshot, err := r.engine.FetchLibrary(ctx, token, func(u tasks.ProgressUpdate) {
		r.logger.Debug(u.Message, "step", u.Step, "total", u.Total)
	})
	if err != nil {
		return err
	}

	var data []byte
	if format == formatter.FormatMarkdown {
		data = formatter.SnapshotToMarkdown(snapshot, fmt.Sprintf("Library of %s", entry.User.Name()))
	} else if data, err = formatter.RenderSnapshot(snapshot, format); err != nil {
		return err
	}

	if outputFile == "" {
		if format == formatter.FormatText {
			r.writePlainHeader(fmt.Sprintf("Library of %s (%s)", entry.User.Name(), slot))
		}
		return r.writeBytes(data)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	r.logger.Infof("library written to %v", outputFile)
	return r.writePlain("✓ Library of %s written to %s\n", entry.User.Name(), outputFile)
}
