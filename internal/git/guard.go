package git

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Guard wraps an oracle so that every failure surfaces as an *OracleError and
// every query is logged at debug level. Wrapping an already guarded oracle
// returns it unchanged.
func Guard(o Oracle, logger *slog.Logger) Oracle {
	if g, ok := o.(*guardedOracle); ok {
		return g
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &guardedOracle{inner: o, logger: logger}
}

// QueryCount returns the number of queries issued through a guarded oracle,
// or -1 if o is not guarded.
func QueryCount(o Oracle) int64 {
	if g, ok := o.(*guardedOracle); ok {
		return g.queries.Load()
	}
	return -1
}

type guardedOracle struct {
	inner   Oracle
	logger  *slog.Logger
	queries atomic.Int64
}

func (g *guardedOracle) wrap(op string, rev RevisionID, err error) error {
	if err == nil {
		return nil
	}
	var oe *OracleError
	if errors.As(err, &oe) {
		return err
	}
	return &OracleError{Op: op, Revision: rev, Err: err}
}

func (g *guardedOracle) trace(op string, rev RevisionID) {
	g.queries.Add(1)
	g.logger.Debug("oracle query", slog.String("op", op), slog.String("rev", rev.Short()))
}

func (g *guardedOracle) ObjectType(ctx context.Context, rev RevisionID) (ObjectType, error) {
	g.trace("object-type", rev)
	t, err := g.inner.ObjectType(ctx, rev)
	return t, g.wrap("object-type", rev, err)
}

func (g *guardedOracle) Parents(ctx context.Context, rev RevisionID) ([]RevisionID, error) {
	g.trace("parents", rev)
	parents, err := g.inner.Parents(ctx, rev)
	return parents, g.wrap("parents", rev, err)
}

func (g *guardedOracle) MergeBase(ctx context.Context, a, b RevisionID) (RevisionID, error) {
	g.trace("merge-base", a)
	base, err := g.inner.MergeBase(ctx, a, b)
	return base, g.wrap("merge-base", a, err)
}

func (g *guardedOracle) AncestryDifference(ctx context.Context, exclude []RevisionID, include RevisionID) ([]RevisionID, error) {
	g.trace("ancestry-difference", include)
	revs, err := g.inner.AncestryDifference(ctx, exclude, include)
	return revs, g.wrap("ancestry-difference", include, err)
}

func (g *guardedOracle) ReferenceTips(ctx context.Context, exclude []string) (map[string]RevisionID, error) {
	g.trace("reference-tips", "")
	tips, err := g.inner.ReferenceTips(ctx, exclude)
	return tips, g.wrap("reference-tips", "", err)
}

func (g *guardedOracle) RawDiff(ctx context.Context, rev RevisionID) (string, error) {
	g.trace("raw-diff", rev)
	text, err := g.inner.RawDiff(ctx, rev)
	return text, g.wrap("raw-diff", rev, err)
}

func (g *guardedOracle) Metadata(ctx context.Context, rev RevisionID, fields ...MetadataField) (Metadata, error) {
	g.trace("metadata", rev)
	md, err := g.inner.Metadata(ctx, rev, fields...)
	return md, g.wrap("metadata", rev, err)
}
