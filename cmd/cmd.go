// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/dejavu/internal/formatter"
)

func formatFlag() cli.Flag {
	names := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		names[i] = string(f)
	}
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: " + strings.Join(names, ", "),
		Value:   string(formatter.FormatText),
	}
}

// similarCommand runs a similarity search
func similarCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "similar",
		Aliases:   []string{"like"},
		Usage:     "Find songs similar to a track",
		ArgsUsage: "<name> <artist>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name"},
			&cli.StringArg{Name: "artist"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Catalog track ID to use as the seed instead of name and artist",
			},
			formatFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write results to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "no-enrich",
				Usage: "Skip artwork enrichment and print the first-pass results",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Log each aggregation phase",
			},
		},
		Action: r.Similar,
	}
}

// searchCommand searches the catalog
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog for tracks",
		ArgsUsage: "<query>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to return",
			},
			formatFlag(),
		},
		Action: r.Search,
	}
}

// trackCommand shows one catalog track
func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "track",
		Usage:     "Show a catalog track",
		ArgsUsage: "<id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			formatFlag(),
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the track in the browser",
			},
		},
		Action: r.Track,
	}
}

// confirmCommand records a community connection
func confirmCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "confirm",
		Usage: "Confirm that two catalog tracks are similar",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Usage:    "Catalog ID of the seed track",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "similar",
				Usage:    "Catalog ID of the similar track",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "reason",
				Aliases: []string{"r"},
				Usage:   "Why the tracks are similar (repeatable)",
			},
			&cli.StringFlag{
				Name:  "by",
				Usage: "Who confirmed the connection",
				Value: "cli",
			},
		},
		Action: r.Confirm,
	}
}

// upvoteCommand upvotes a connection
func upvoteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "upvote",
		Usage:     "Upvote a community connection",
		ArgsUsage: "<connection-id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.Upvote,
	}
}

// connectionsCommand lists community connections
func connectionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "connections",
		Usage: "List community connections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Usage: "Only connections for this seed track ID",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of connections",
				Value: 50,
			},
			formatFlag(),
		},
		Action: r.Connections,
	}
}

// historyCommand lists recent searches
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent similarity searches",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of searches",
				Value: 20,
			},
			formatFlag(),
		},
		Action: r.History,
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
		},
		Action: r.Serve,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create configuration and manage the database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.RollbackDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show the current migration version",
				Action: r.DatabaseStatus,
			},
		},
	}
}
