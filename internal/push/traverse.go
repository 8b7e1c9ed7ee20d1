package push

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/masmgr/pushnotify/internal/git"
)

// MergePolicy decides what happens to a commit that a merge of the push pulls
// in but that is already reachable from another reference.
type MergePolicy int

const (
	// PolicyAnnotate inserts such a commit with its provenance.
	PolicyAnnotate MergePolicy = iota
	// PolicyExclude leaves it out and stops walking that side of the merge.
	PolicyExclude
)

// String returns a string representation of the policy.
func (p MergePolicy) String() string {
	switch p {
	case PolicyAnnotate:
		return "annotate"
	case PolicyExclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// ParseMergePolicy converts a configuration value. An empty value selects
// PolicyAnnotate.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "annotate":
		return PolicyAnnotate, nil
	case "exclude":
		return PolicyExclude, nil
	default:
		return 0, fmt.Errorf("unknown merge policy %q (want annotate or exclude)", s)
	}
}

// TraverseOptions configures Traverse.
type TraverseOptions struct {
	Old    git.RevisionID // Old tip of the branch; its history is never inserted
	Policy MergePolicy
	Load   Loader // Builds records for inserted commits; defaults to MetadataLoader
	Logger *slog.Logger
}

// TraverseStats reports what a traversal changed.
type TraverseStats struct {
	Merges    int
	Inserted  int
	Annotated int
}

// traversal is the state of one Traverse call. It is owned by a single push.
type traversal struct {
	oracle  git.Oracle
	list    *CommitList
	opts    TraverseOptions
	pending []git.RevisionID
	done    map[git.RevisionID]struct{}
	stats   TraverseStats
}

// Traverse walks the parents of every merge commit in list and records where
// each commit came from. For a merge M with parents p0..pn, the grand base is
// the first parent of p0. Every p_i, the first parent included, is followed
// along first parents until a base revision is reached: the old tip,
// merge-base(grand base, p_i), and merge-base(grand base, N's first parent)
// for every merge N met on the way. Commits reached through p1..pn gain a
// provenance entry; the p0 walk is the mainline and tags nothing. Unknown
// commits are inserted immediately before their descendant on the walk,
// subject to the policy. Merges met on a walk are queued and traversed after
// the current one. Running Traverse again on its own output changes nothing.
func Traverse(ctx context.Context, o git.Oracle, list *CommitList, opts TraverseOptions) (TraverseStats, error) {
	if opts.Load == nil {
		opts.Load = MetadataLoader(o)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	t := &traversal{
		oracle: o,
		list:   list,
		opts:   opts,
		done:   make(map[git.RevisionID]struct{}),
	}
	merges := list.Merges()
	for i := len(merges) - 1; i >= 0; i-- {
		t.pending = append(t.pending, merges[i])
	}

	for len(t.pending) > 0 {
		if err := ctx.Err(); err != nil {
			return t.stats, err
		}
		m := t.pending[len(t.pending)-1]
		t.pending = t.pending[:len(t.pending)-1]
		if _, ok := t.done[m]; ok {
			continue
		}
		t.done[m] = struct{}{}
		if err := t.merge(ctx, m); err != nil {
			return t.stats, err
		}
	}

	opts.Logger.Debug("merge traversal finished",
		slog.Int("merges", t.stats.Merges),
		slog.Int("inserted", t.stats.Inserted),
		slog.Int("annotated", t.stats.Annotated))
	return t.stats, nil
}

func (t *traversal) merge(ctx context.Context, m git.RevisionID) error {
	rec, ok := t.list.Get(m)
	if !ok || !rec.IsMerge() {
		return nil
	}
	t.stats.Merges++
	status := provenance(rec)
	parents := append([]git.RevisionID(nil), rec.Parents...)
	grand, err := t.grandBase(ctx, parents[0])
	if err != nil {
		return fmt.Errorf("traverse merge %s: %w", m.Short(), err)
	}

	var nested []git.RevisionID
	for i, p := range parents {
		bound, tag := grand, ""
		if i > 0 {
			tag = status
			// A root first parent has no grand base; p0 bounds the side walk.
			if bound.IsZero() {
				bound = parents[0]
			}
		}
		found, err := t.walk(ctx, m, bound, p, tag)
		if err != nil {
			return fmt.Errorf("traverse merge %s: %w", m.Short(), err)
		}
		nested = append(nested, found...)
	}

	// Nested merges are queued so that they are traversed next, oldest on top.
	for i := len(nested) - 1; i >= 0; i-- {
		if _, ok := t.done[nested[i]]; !ok {
			t.pending = append(t.pending, nested[i])
		}
	}
	return nil
}

// grandBase returns merge-base(p0, first parent of p0), which is that first
// parent itself. It is zero when p0 is a root commit.
func (t *traversal) grandBase(ctx context.Context, p0 git.RevisionID) (git.RevisionID, error) {
	parents, err := t.oracle.Parents(ctx, p0)
	if err != nil {
		return "", err
	}
	if len(parents) == 0 {
		return git.ZeroRevision, nil
	}
	return parents[0], nil
}

// walk follows the first-parent chain from start and returns the merges it
// met, oldest first. A non-empty status is recorded on every commit visited.
func (t *traversal) walk(ctx context.Context, m, bound, start git.RevisionID, status string) ([]git.RevisionID, error) {
	bases := make(map[git.RevisionID]struct{}, 4)
	addBase := func(rev git.RevisionID) {
		if !rev.IsZero() {
			bases[rev] = struct{}{}
		}
	}
	boundBy := func(rev git.RevisionID) error {
		if bound.IsZero() || rev.IsZero() {
			return nil
		}
		base, err := t.oracle.MergeBase(ctx, bound, rev)
		if err != nil {
			return err
		}
		addBase(base)
		return nil
	}
	addBase(t.opts.Old)
	if err := boundBy(start); err != nil {
		return nil, err
	}

	var merges []git.RevisionID
	anchor := m
	cur := start
	for !cur.IsZero() {
		if _, ok := bases[cur]; ok {
			break
		}

		rec, known := t.list.Get(cur)
		if known {
			if status != "" && rec.AddMergeStatus(status) {
				t.stats.Annotated++
			}
		} else {
			stop, err := t.stopAtUnknown(ctx, cur)
			if err != nil {
				return nil, err
			}
			if stop {
				break
			}
			loaded, err := t.opts.Load(ctx, cur)
			if err != nil {
				return nil, err
			}
			if status != "" {
				loaded.AddMergeStatus(status)
			}
			if err := t.list.InsertBefore(anchor, loaded); err != nil {
				return nil, err
			}
			t.stats.Inserted++
			rec, _ = t.list.Get(cur)
		}

		next := rec.FirstParent()
		if rec.IsMerge() {
			merges = append(merges, cur)
			if err := boundBy(next); err != nil {
				return nil, err
			}
		}
		anchor = cur
		cur = next
	}

	for i, j := 0, len(merges)-1; i < j; i, j = i+1, j-1 {
		merges[i], merges[j] = merges[j], merges[i]
	}
	return merges, nil
}

// stopAtUnknown decides whether the walk ends at a commit that is not in the
// list. History of the old tip always ends it; anything else was excluded
// because another reference reaches it, which only ends the walk under
// PolicyExclude.
func (t *traversal) stopAtUnknown(ctx context.Context, rev git.RevisionID) (bool, error) {
	if !t.opts.Old.IsZero() {
		base, err := t.oracle.MergeBase(ctx, rev, t.opts.Old)
		if err != nil {
			return false, err
		}
		if base == rev {
			return true, nil
		}
	}
	return t.opts.Policy == PolicyExclude, nil
}
