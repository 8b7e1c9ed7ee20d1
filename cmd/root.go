package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/pushnotify/config"
	"github.com/masmgr/pushnotify/internal/notify"
	"github.com/masmgr/pushnotify/internal/output"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "pushnotify",
		Usage:   "Describe what a push did to a Git repository",
		Version: "1.0.0",
		Commands: []*cli.Command{
			HookCmd(),
			ShowCmd(),
			ClassifyCmd(),
			DiffCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (.json, .yaml, .yml or .toml)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with PUSHNOTIFY_* overrides",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every repository query",
			},
		},
		Before: setupLogging,
	}
}

// setupLogging installs a text handler on stderr; --verbose lowers the level
// to debug.
func setupLogging(c *cli.Context) error {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// Common flags shared across commands
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Path to Git repository",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Repository backend (cli, native)",
		},
		&cli.StringFlag{
			Name:  "merge-policy",
			Usage: "How merges treat commits already on other refs (annotate, exclude)",
		},
		&cli.StringFlag{
			Name:  "mirror-remote",
			Usage: "Remote whose refs/remotes/<remote>/* count as branches",
		},
		&cli.BoolFlag{
			Name:  "no-diff",
			Usage: "Do not load per-commit diffs",
		},
		&cli.BoolFlag{
			Name:  "skip-malformed",
			Usage: "Skip file diffs that fail to parse instead of failing",
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns of files to show (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns of files to hide (can be specified multiple times)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (console, json, csv, markdown, ci)",
			Value:   "console",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Maximum commits listed per reference (0 = all)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path; .gz and .zst are compressed (default: stdout)",
		},
		&cli.BoolFlag{
			Name:  "explain",
			Usage: "List changed files for every commit",
		},
	}
}

// getOutputFormat parses the output format flag.
func getOutputFormat(s string) output.OutputFormat {
	switch s {
	case "json":
		return output.FormatJSON
	case "csv":
		return output.FormatCSV
	case "markdown", "md":
		return output.FormatMarkdown
	case "ci", "ndjson":
		return output.FormatCI
	default:
		return output.FormatConsole
	}
}

// loadConfig loads configuration from file, environment and CLI flags, in
// increasing order of precedence.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnvFile(cfg, c.String("env-file")); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	if backend := c.String("backend"); backend != "" {
		cfg.Repository.Backend = backend
	}
	if policy := c.String("merge-policy"); policy != "" {
		cfg.Merges.Policy = policy
	}
	if remote := c.String("mirror-remote"); remote != "" {
		cfg.References.MirrorRemote = remote
	}
	if c.Bool("no-diff") {
		cfg.Diff.Enabled = false
	}
	if c.Bool("skip-malformed") {
		cfg.Diff.SkipMalformed = true
	}
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Filters.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Filters.Exclude = excludes
	}
	if c.IsSet("jobs") {
		cfg.Jobs = c.Int("jobs")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Run executes the CLI application.
func Run() {
	if err := App().Run(os.Args); err != nil {
		var changeErr *notify.ChangeError
		if errors.As(err, &changeErr) {
			fmt.Fprintf(os.Stderr, "Error: reference %s: %v\n", changeErr.Change.Name, changeErr.Err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
