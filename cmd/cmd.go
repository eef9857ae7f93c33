// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func accountFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "account",
		Aliases: []string{"a"},
		Usage:   "Account slot (source or target)",
		Value:   value,
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the history database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles sign-in for the source and target accounts
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the source and target Spotify accounts",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in to an account slot with OAuth2 in the browser",
				Flags: []cli.Flag{
					accountFlag(""),
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: loginTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the access token of an account slot",
				Flags:  []cli.Flag{accountFlag("")},
				Action: r.AuthRefresh,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in accounts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget one account slot, or both when --account is omitted",
				Flags:  []cli.Flag{accountFlag("")},
				Action: r.AuthLogout,
			},
		},
	}
}

// libraryCommand prints an account's library
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Read the full library of an account",
		Flags: []cli.Flag{
			accountFlag("source"),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the library to a file instead of stdout",
			},
		},
		Action: r.Library,
	}
}

// transferCommand copies the source library to the target account
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Copy library content from the source account to the target account",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Copy every entity type",
			},
			&cli.BoolFlag{
				Name:  "playlists",
				Usage: "Copy playlists (all of them unless --playlist-id is given)",
			},
			&cli.StringSliceFlag{
				Name:  "playlist-id",
				Usage: "Copy only this playlist; repeatable",
			},
			&cli.BoolFlag{
				Name:  "tracks",
				Usage: "Copy liked songs",
			},
			&cli.BoolFlag{
				Name:  "albums",
				Usage: "Copy saved albums",
			},
			&cli.BoolFlag{
				Name:  "artists",
				Usage: "Copy followed artists",
			},
			&cli.BoolFlag{
				Name:  "podcasts",
				Usage: "Copy saved podcasts",
			},
			&cli.BoolFlag{
				Name:  "skip-existing",
				Usage: "Skip playlists already copied to the target (needs database.path)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would be copied without writing to the target",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Result format: text, markdown, csv or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Also write the result to this file; format follows the extension",
			},
		},
		Action: r.Transfer,
	}
}

// historyCommand lists recorded transfers
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded transfers",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show (0 shows all)",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "show",
				Usage: "Print the full result of one run by ID",
			},
			&cli.IntFlag{
				Name:  "prune",
				Usage: "Delete all but the newest N runs",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// ledgerCommand inspects the playlists recorded as copied
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Inspect playlists already copied to the target account",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists copied to the target account",
				Action: r.LedgerList,
			},
			{
				Name:   "forget",
				Usage:  "Forget copied playlists so the next transfer copies them again",
				Action: r.LedgerForget,
			},
		},
	}
}

// serveCommand runs the JSON API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API used by the web frontend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default host:api_port from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive transfers.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for library transfer",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-existing",
				Usage: "Skip playlists already copied to the target (needs database.path)",
			},
		},
		Action: r.TUI,
	}
}
