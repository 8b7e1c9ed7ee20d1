package git

import "context"

// Oracle answers the graph and content queries the notification engine needs
// about a repository. Every method may block on I/O; implementations do not
// retry.
type Oracle interface {
	// ObjectType resolves the type of the object rev names.
	ObjectType(ctx context.Context, rev RevisionID) (ObjectType, error)
	// Parents returns the parents of a commit, first parent first.
	Parents(ctx context.Context, rev RevisionID) ([]RevisionID, error)
	// MergeBase returns the best common ancestor of a and b, or ZeroRevision
	// when the histories are unrelated.
	MergeBase(ctx context.Context, a, b RevisionID) (RevisionID, error)
	// AncestryDifference returns the commits reachable from include but from
	// none of exclude, oldest first in topological order.
	AncestryDifference(ctx context.Context, exclude []RevisionID, include RevisionID) ([]RevisionID, error)
	// ReferenceTips maps every branch and tag name to the commit it points at
	// (annotated tags are peeled). Names matching one of the doublestar
	// patterns in exclude are left out.
	ReferenceTips(ctx context.Context, exclude []string) (map[string]RevisionID, error)
	// RawDiff returns the unified diff of a commit against its first parent
	// (against the empty tree for root commits).
	RawDiff(ctx context.Context, rev RevisionID) (string, error)
	// Metadata returns the requested fields of a commit.
	Metadata(ctx context.Context, rev RevisionID, fields ...MetadataField) (Metadata, error)
}

// Compile-time interface conformance checks.
var (
	_ Oracle = (*CLIOracle)(nil)
	_ Oracle = (*NativeOracle)(nil)
	_ Oracle = (*MockOracle)(nil)
	_ Oracle = (*guardedOracle)(nil)
)
