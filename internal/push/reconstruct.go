package push

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/masmgr/pushnotify/internal/git"
)

// ErrNotAnUpdate is returned by Reconstruct when either side is the zero
// revision.
var ErrNotAnUpdate = errors.New("reconstruct needs both an old and a new revision")

// Kind classifies a branch update.
type Kind int

const (
	FastForward Kind = iota
	Rewind
	RewindRebuild
	Created
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case FastForward:
		return "fast-forward"
	case Rewind:
		return "rewind"
	case RewindRebuild:
		return "rewind-rebuild"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}

const (
	rewindExplanation = "This update discarded existing revisions and left the branch pointing at " +
		"a previous point in the repository history."
	rebuildExplanation = "This update added new revisions after undoing existing revisions. " +
		"That is to say, the old revision is not a strict subset of the new revision."
)

// Reconstruction describes what a branch update did to the history.
type Reconstruction struct {
	Kind        Kind
	FastForward bool
	Base        git.RevisionID   // Merge base of old and new; zero for a fast-forward
	Discarded   []git.RevisionID // Reachable from old but not new, oldest first
	Forward     []git.RevisionID // Reachable from new but not old, oldest first
	NewCommits  []git.RevisionID // Forward minus everything reachable from other tips
	Summary     []string
}

// Reconstruct analyses an update of a branch from oldRev to newRev. exclusionTips
// are the tips of every other branch and tag; commits reachable from them are
// not reported as new.
func Reconstruct(ctx context.Context, o git.Oracle, oldRev, newRev git.RevisionID, exclusionTips []git.RevisionID) (*Reconstruction, error) {
	if oldRev.IsZero() || newRev.IsZero() {
		return nil, ErrNotAnUpdate
	}

	backward, err := o.AncestryDifference(ctx, []git.RevisionID{newRev}, oldRev)
	if err != nil {
		return nil, fmt.Errorf("list discarded revisions: %w", err)
	}
	forward, err := o.AncestryDifference(ctx, []git.RevisionID{oldRev}, newRev)
	if err != nil {
		return nil, fmt.Errorf("list forward revisions: %w", err)
	}

	r := &Reconstruction{
		Kind:        FastForward,
		FastForward: len(backward) == 0,
		Discarded:   backward,
		Forward:     forward,
	}

	if !r.FastForward {
		base, err := o.MergeBase(ctx, oldRev, newRev)
		if err != nil {
			return nil, fmt.Errorf("merge base: %w", err)
		}
		r.Base = base
		if base == newRev {
			r.Kind = Rewind
		} else {
			r.Kind = RewindRebuild
		}
	}

	if r.Kind != Rewind {
		exclude := append([]git.RevisionID{oldRev}, exclusionTips...)
		r.NewCommits, err = o.AncestryDifference(ctx, exclude, newRev)
		if err != nil {
			return nil, fmt.Errorf("list new revisions: %w", err)
		}
	}

	if r.Summary, err = r.describe(ctx, o); err != nil {
		return nil, err
	}
	return r, nil
}

// ReconstructCreate lists the commits a newly created branch introduces.
func ReconstructCreate(ctx context.Context, o git.Oracle, newRev git.RevisionID, exclusionTips []git.RevisionID) (*Reconstruction, error) {
	commits, err := o.AncestryDifference(ctx, exclusionTips, newRev)
	if err != nil {
		return nil, fmt.Errorf("list new revisions: %w", err)
	}
	r := &Reconstruction{
		Kind:       Created,
		Forward:    commits,
		NewCommits: commits,
	}
	if r.Summary, err = r.describe(ctx, o); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reconstruction) describe(ctx context.Context, o git.Oracle) ([]string, error) {
	var lines []string
	for _, rev := range r.Discarded {
		line, err := summaryLine(ctx, o, "discards", rev)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	for _, rev := range r.Forward {
		label := "via"
		if slices.Contains(r.NewCommits, rev) {
			label = "new"
		}
		line, err := summaryLine(ctx, o, label, rev)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	switch r.Kind {
	case Rewind:
		lines = append(lines, "", rewindExplanation)
	case RewindRebuild:
		lines = append(lines, "", rebuildExplanation)
	}
	return lines, nil
}

func summaryLine(ctx context.Context, o git.Oracle, label string, rev git.RevisionID) (string, error) {
	md, err := o.Metadata(ctx, rev, git.FieldSubject)
	if err != nil {
		return "", fmt.Errorf("subject of %s: %w", rev.Short(), err)
	}
	return fmt.Sprintf(" %8s  %s %s", label, rev.Short(), md.Subject()), nil
}

// ExclusionTips returns the commit tips of every branch and tag except
// refName. Tips whose reference matches one of patterns are left out.
func ExclusionTips(ctx context.Context, o git.Oracle, refName string, patterns []string) ([]git.RevisionID, error) {
	tips, err := o.ReferenceTips(ctx, patterns)
	if err != nil {
		return nil, fmt.Errorf("list reference tips: %w", err)
	}
	seen := make(map[git.RevisionID]struct{}, len(tips))
	var revs []git.RevisionID
	for name, rev := range tips {
		if name == refName {
			continue
		}
		if _, ok := seen[rev]; ok {
			continue
		}
		seen[rev] = struct{}{}
		revs = append(revs, rev)
	}
	slices.Sort(revs)
	return revs, nil
}
