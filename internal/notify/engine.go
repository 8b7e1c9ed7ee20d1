// Package notify turns one reference change into the structured result a
// notification is rendered from.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/masmgr/pushnotify/internal/aggregation"
	"github.com/masmgr/pushnotify/internal/classify"
	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/git"
	"github.com/masmgr/pushnotify/internal/push"
)

// Options configures an Engine.
type Options struct {
	Namespaces  classify.Namespaces
	ExcludeTips []string // Reference patterns left out of the exclusion set
	Ignore      []string // Reference patterns that never produce a notification
	MergePolicy push.MergePolicy

	WithDiffs          bool
	SkipMalformedDiffs bool
	Include            []string // File patterns kept in commit diffs; empty keeps all
	Exclude            []string // File patterns dropped from commit diffs

	Logger *slog.Logger
}

// DefaultOptions returns options for a plain repository with diffs enabled.
func DefaultOptions() Options {
	return Options{
		Namespaces:  classify.DefaultNamespaces(),
		MergePolicy: push.PolicyAnnotate,
		WithDiffs:   true,
	}
}

// PushResult is everything the formatting layer needs for one reference
// change. A Suppressed result carries no summary and no commits.
type PushResult struct {
	RefName       string
	ShortName     string
	Old           git.RevisionID
	New           git.RevisionID
	ChangeKind    classify.ChangeKind
	ReferenceKind classify.ReferenceKind
	UpdateKind    push.Kind
	Suppressed    bool

	Summary      []string
	Commits      []push.CommitRecord
	CommitStats  []aggregation.CommitStats
	Stats        aggregation.PushStats
	SkippedDiffs []*diff.ParseError
}

// Engine processes reference changes against one oracle session. An Engine
// is not safe for concurrent use; run one per change.
type Engine struct {
	oracle git.Oracle
	opts   Options
	parser *diff.Parser
	logger *slog.Logger
}

// NewEngine creates an engine. The oracle is wrapped with git.Guard so every
// failure surfaces as a *git.OracleError.
func NewEngine(o git.Oracle, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Namespaces == (classify.Namespaces{}) {
		opts.Namespaces = classify.DefaultNamespaces()
	}
	return &Engine{
		oracle: git.Guard(o, logger),
		opts:   opts,
		parser: &diff.Parser{SkipMalformed: opts.SkipMalformedDiffs, Logger: logger},
		logger: logger,
	}
}

// Oracle returns the guarded oracle the engine queries.
func (e *Engine) Oracle() git.Oracle {
	return e.oracle
}

// Process classifies change and, for branch updates and creations,
// reconstructs the commits it introduced. On error no result is returned.
func (e *Engine) Process(ctx context.Context, change classify.ReferenceChange) (*PushResult, error) {
	kind, err := classify.KindOf(change)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", change.Name, err)
	}
	res := &PushResult{
		RefName:    change.Name,
		ShortName:  git.ShortRefName(change.Name),
		Old:        change.Old,
		New:        change.New,
		ChangeKind: kind,
	}
	if git.MatchAny(e.opts.Ignore, change.Name) {
		e.logger.Debug("reference ignored", slog.String("ref", change.Name))
		res.Suppressed = true
		return res, nil
	}

	cls, err := classify.Classify(ctx, e.oracle, change, e.opts.Namespaces)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", change.Name, err)
	}
	res.ReferenceKind = cls.Reference
	res.ShortName = cls.ShortName
	if cls.Suppressed() {
		e.logger.Debug("tracking branch update suppressed", slog.String("ref", change.Name))
		res.Suppressed = true
		return res, nil
	}

	if cls.Reference == classify.Branch {
		err = e.processBranch(ctx, change, res)
	} else {
		res.Summary = []string{tagSummary(cls, change)}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", change.Name, err)
	}

	res.CommitStats = aggregation.CalculateAll(res.Commits)
	res.Stats = aggregation.NewFileStatsAggregator().Process(res.Commits)
	e.logger.Info("reference processed",
		slog.String("ref", change.Name),
		slog.String("change", res.ChangeKind.String()),
		slog.String("kind", res.ReferenceKind.String()),
		slog.Int("commits", len(res.Commits)),
		slog.Int64("queries", git.QueryCount(e.oracle)))
	return res, nil
}

func (e *Engine) processBranch(ctx context.Context, change classify.ReferenceChange, res *PushResult) error {
	if res.ChangeKind == classify.Delete {
		res.Summary = []string{fmt.Sprintf("branch %s deleted (was %s)", res.ShortName, change.Old.Short())}
		return nil
	}

	tips, err := push.ExclusionTips(ctx, e.oracle, change.Name, e.opts.ExcludeTips)
	if err != nil {
		return err
	}

	var r *push.Reconstruction
	if res.ChangeKind == classify.Create {
		r, err = push.ReconstructCreate(ctx, e.oracle, change.New, tips)
	} else {
		r, err = push.Reconstruct(ctx, e.oracle, change.Old, change.New, tips)
	}
	if err != nil {
		return err
	}
	res.UpdateKind = r.Kind

	load := e.loader(res)
	list, err := push.LoadList(ctx, r.NewCommits, load)
	if err != nil {
		return err
	}
	if _, err := push.Traverse(ctx, e.oracle, list, push.TraverseOptions{
		Old:    change.Old,
		Policy: e.opts.MergePolicy,
		Load:   load,
		Logger: e.logger,
	}); err != nil {
		return err
	}

	res.Commits = list.Records()
	res.Summary = r.Summary
	if res.ChangeKind == classify.Create {
		res.Summary = append([]string{fmt.Sprintf("branch %s created at %s", res.ShortName, change.New.Short())}, r.Summary...)
	}
	return nil
}

// loader extends the metadata loader with the parsed, filtered diff of each
// commit. Files skipped as malformed are recorded on res.
func (e *Engine) loader(res *PushResult) push.Loader {
	base := push.MetadataLoader(e.oracle)
	return func(ctx context.Context, rev git.RevisionID) (push.CommitRecord, error) {
		rec, err := base(ctx, rev)
		if err != nil || !e.opts.WithDiffs {
			return rec, err
		}
		raw, err := e.oracle.RawDiff(ctx, rev)
		if err != nil {
			return push.CommitRecord{}, err
		}
		parsed, err := e.parser.Parse(raw, rev)
		if err != nil {
			return push.CommitRecord{}, err
		}
		res.SkippedDiffs = append(res.SkippedDiffs, parsed.Skipped...)
		rec.Files = filterFiles(parsed.Files, e.opts.Include, e.opts.Exclude)
		return rec, nil
	}
}

func tagSummary(cls classify.Classification, change classify.ReferenceChange) string {
	noun := "tag"
	if cls.Reference == classify.AnnotatedTag {
		noun = "annotated tag"
	}
	switch cls.Change {
	case classify.Create:
		return fmt.Sprintf("%s %s created at %s", noun, cls.ShortName, change.New.Short())
	case classify.Delete:
		return fmt.Sprintf("%s %s deleted (was %s)", noun, cls.ShortName, change.Old.Short())
	default:
		return fmt.Sprintf("%s %s moved from %s to %s", noun, cls.ShortName, change.Old.Short(), change.New.Short())
	}
}
