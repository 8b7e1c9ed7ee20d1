package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/pushnotify/config"
	"github.com/masmgr/pushnotify/internal/classify"
	"github.com/masmgr/pushnotify/internal/git"
	"github.com/masmgr/pushnotify/internal/notify"
	"github.com/masmgr/pushnotify/internal/output"
)

// CommandContext holds common state for command execution.
// It encapsulates the configuration and repository setup shared by all commands.
type CommandContext struct {
	Config   *config.Config
	RepoPath string
	Logger   *slog.Logger
}

// NewCommandContext creates a context from CLI flags.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Config:   cfg,
		RepoPath: c.String("repo"),
		Logger:   slog.Default(),
	}, nil
}

// OpenOracle opens a new oracle session on the repository with the
// configured backend.
func (cc *CommandContext) OpenOracle(ctx context.Context) (git.Oracle, error) {
	var (
		o   git.Oracle
		err error
	)
	switch cc.Config.Repository.Backend {
	case config.BackendNative:
		o, err = git.NewNativeOracle(cc.RepoPath)
	default:
		o, err = git.NewCLIOracle(ctx, git.CLIOptions{
			RepoPath:   cc.RepoPath,
			GitBinary:  cc.Config.Repository.GitBinary,
			QueryRate:  cc.Config.Repository.QueryRate,
			QueryBurst: cc.Config.Repository.QueryBurst,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return git.Guard(o, cc.Logger), nil
}

// EngineOptions maps the configuration onto engine options.
func (cc *CommandContext) EngineOptions() notify.Options {
	cfg := cc.Config
	ns := classify.DefaultNamespaces()
	ns.MirrorRemote = cfg.References.MirrorRemote
	return notify.Options{
		Namespaces:         ns,
		ExcludeTips:        cfg.References.ExcludeTips,
		Ignore:             cfg.References.Ignore,
		MergePolicy:        cfg.MergePolicy(),
		WithDiffs:          cfg.Diff.Enabled,
		SkipMalformedDiffs: cfg.Diff.SkipMalformed,
		Include:            cfg.Filters.Include,
		Exclude:            cfg.Filters.Exclude,
		Logger:             cc.Logger,
	}
}

// EngineFactory returns a factory that opens a fresh oracle session for
// every engine.
func (cc *CommandContext) EngineFactory() notify.EngineFactory {
	opts := cc.EngineOptions()
	return func(ctx context.Context) (*notify.Engine, error) {
		o, err := cc.OpenOracle(ctx)
		if err != nil {
			return nil, err
		}
		return notify.NewEngine(o, opts), nil
	}
}

// ProcessChanges runs every change through its own engine and writes the
// report. Nothing is written if any change fails.
func (cc *CommandContext) ProcessChanges(c *cli.Context, changes []classify.ReferenceChange) error {
	results, err := notify.ProcessAll(c.Context, cc.EngineFactory(), changes, cc.Config.Jobs)
	if err != nil {
		return err
	}
	report := &output.PushReport{
		RepoPath:    cc.RepoPath,
		GeneratedAt: time.Now(),
		Results:     results,
	}
	opts := OutputOptions(c)
	return output.NewPushReportWriter(opts.Format).Write(report, opts)
}

// OutputOptions creates OutputOptions from CLI flags.
func OutputOptions(c *cli.Context) output.OutputOptions {
	return output.OutputOptions{
		Format:     getOutputFormat(c.String("format")),
		Top:        c.Int("top"),
		OutputPath: c.String("output"),
		Explain:    c.Bool("explain"),
	}
}
