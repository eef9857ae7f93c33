package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/sptx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing and initializes the history database when one is configured.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if !cmd.IsSet("config") && r.configPath != "" {
		configPath = r.configPath
	}

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Using config %s\n", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", configPath)
		config = shared.DefaultConfig()
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		r.writePlain("⚠ %v\n", err)
		r.writePlain("  Create an app at https://developer.spotify.com/dashboard and set its credentials.\n")
		r.writePlain("  Register %s as a Redirect URI.\n", config.Credentials.Spotify.RedirectURI)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	switch {
	case errors.Is(err, shared.ErrDatabaseDisabled):
		r.writePlain("- No database.path set; transfer history and the playlist ledger are off\n")
	case err != nil:
		return fmt.Errorf("failed to set up database: %w", err)
	default:
		db.Close()
		r.logger.Infof("setup complete for database: %v", config.Database.Path)
		r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	}

	r.writePlainln("Next steps:")
	r.writePlain("1. sptx auth login --account source\n")
	r.writePlain("2. sptx auth login --account target\n")
	r.writePlain("3. sptx transfer --all   (or sptx tui)\n")
	return nil
}
