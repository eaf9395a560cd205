package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quill/internal"
	pkgconfig "github.com/starford/quill/pkg/config"
)

var version = "dev"

// loadConfig reads the config file when present and applies --root.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// The flag wins over the file.
	if root := cmd.String("root"); root != "" {
		cfg.Notes.Root = root
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "quill",
		Version: version,
		Usage:   "Browse and manage Markdown notes grouped in category directories",
		Description: heredoc.Doc(`
			Every top-level directory of the notes root is a category. Every file
			in a category whose name contains ".md" and whose header carries a
			title line is a note:

			    ---
			    title: Pipes
			    description: Inter-process communication
			    ---

			Without a command the whole tree is printed, newest first.
		`),
		Action: treeAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Notes root; overrides notes.root from the config file",
				Sources: cli.EnvVars("QUILL_ROOT"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Verbose output and debug logging",
			},
			&cli.StringFlag{
				Name:    "delimiter",
				Aliases: []string{"d"},
				Usage:   "Separator printed between a note title and its description",
				Value:   " --- ",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only show categories whose title matches this glob",
			},
			&cli.StringFlag{
				Name:  "note",
				Usage: "Only show notes whose title matches this glob",
			},
			&cli.StringFlag{
				Name:  "since",
				Usage: "Only show notes modified since a date or span (2024-01-31, 7d, 36h)",
			},
			&cli.BoolFlag{
				Name:  "alpha",
				Usage: "Sort alphabetically instead of newest first",
			},
		},
		Commands: []*cli.Command{
			treeCommand(),
			listCommand(),
			addCommand(),
			removeCommand(),
			pathCommand(),
			infoCommand(),
			showCommand(),
			{
				Name:   "serve",
				Usage:  "Serve the REST API and change events over HTTP",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
