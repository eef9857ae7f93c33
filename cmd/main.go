package main

import (
	"context"
	"os"

	"github.com/desertthunder/sptx/internal/session"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/urfave/cli/v3"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))
	if config.Log.File != "" {
		fileLogger, closer := shared.NewFileLogger(config.Log)
		defer closer.Close()
		logger = fileLogger
	}

	sessions, err := session.Open(config.Session.Path)
	if err != nil {
		logger.Fatalf("failed to open session file: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Sessions:   sessions,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "sptx",
		Usage:    "Copy a Spotify library from one account to another",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
