package push

import (
	"context"
	"fmt"
	"testing"

	"github.com/masmgr/pushnotify/internal/git"
	"pgregory.net/rapid"
)

// --- Generators ---

type randomPush struct {
	g      *graph
	revs   []git.RevisionID
	old    git.RevisionID
	new    git.RevisionID
	others int
}

// genPush draws a random history, an update of refs/heads/main and some other
// branch tips.
func genPush() *rapid.Generator[randomPush] {
	return rapid.Custom(func(t *rapid.T) randomPush {
		g := newGraph()
		n := rapid.IntRange(2, 12).Draw(t, "commits")
		revs := make([]git.RevisionID, n)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("c%d", i)
			var parents []string
			if i > 0 {
				np := rapid.IntRange(0, 2).Draw(t, name+"_parents")
				for j := 0; j < np; j++ {
					p := fmt.Sprintf("c%d", rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("%s_p%d", name, j)))
					if j == 1 && p == parents[0] {
						continue
					}
					parents = append(parents, p)
				}
			}
			revs[i] = g.commit(name, parents...)
		}

		oldIdx := rapid.IntRange(0, n-1).Draw(t, "old")
		newIdx := rapid.IntRange(0, n-1).Draw(t, "new")
		g.o.SetRef("refs/heads/main", revs[newIdx])
		others := rapid.IntRange(0, 2).Draw(t, "others")
		for i := 0; i < others; i++ {
			g.o.SetRef(fmt.Sprintf("refs/heads/other%d", i), revs[rapid.IntRange(0, n-1).Draw(t, fmt.Sprintf("other%d", i))])
		}
		return randomPush{g: g, revs: revs, old: revs[oldIdx], new: revs[newIdx], others: others}
	})
}

func run(t *rapid.T, p randomPush, policy MergePolicy) (*Reconstruction, *CommitList, TraverseStats) {
	ctx := context.Background()
	tips, err := ExclusionTips(ctx, p.g.o, "refs/heads/main", nil)
	if err != nil {
		t.Fatalf("ExclusionTips() error: %v", err)
	}
	r, err := Reconstruct(ctx, p.g.o, p.old, p.new, tips)
	if err != nil {
		t.Fatalf("Reconstruct() error: %v", err)
	}
	list, err := LoadList(ctx, r.NewCommits, MetadataLoader(p.g.o))
	if err != nil {
		t.Fatalf("LoadList() error: %v", err)
	}
	stats, err := Traverse(ctx, p.g.o, list, TraverseOptions{Old: p.old, Policy: policy})
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}
	return r, list, stats
}

// --- Property Tests ---

func TestRapidReconstruct_FastForwardIffAncestor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genPush().Draw(t, "push")
		r, _, _ := run(t, p, PolicyAnnotate)
		base, err := p.g.o.MergeBase(context.Background(), p.old, p.new)
		if err != nil {
			t.Fatalf("MergeBase() error: %v", err)
		}
		if r.FastForward != (base == p.old) {
			t.Fatalf("FastForward = %v, merge-base is old = %v", r.FastForward, base == p.old)
		}
		if r.Kind == Rewind && len(r.NewCommits) != 0 {
			t.Fatalf("rewind reported %d new commits", len(r.NewCommits))
		}
		if r.FastForward && p.others == 0 {
			want, _ := p.g.o.AncestryDifference(context.Background(), []git.RevisionID{p.old}, p.new)
			if !equalStrings(p.g.nameList(r.NewCommits), p.g.nameList(want)) {
				t.Fatalf("NewCommits = %v, want %v", p.g.nameList(r.NewCommits), p.g.nameList(want))
			}
		}
	})
}

func TestRapidTraverse_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genPush().Draw(t, "push")
		policy := rapid.SampledFrom([]MergePolicy{PolicyAnnotate, PolicyExclude}).Draw(t, "policy")
		_, list, _ := run(t, p, policy)
		before := list.Records()

		stats, err := Traverse(context.Background(), p.g.o, list, TraverseOptions{Old: p.old, Policy: policy})
		if err != nil {
			t.Fatalf("Traverse() error: %v", err)
		}
		if stats.Inserted != 0 || stats.Annotated != 0 {
			t.Fatalf("second traversal changed the list: %+v", stats)
		}
		after := list.Records()
		if len(after) != len(before) {
			t.Fatalf("length %d -> %d", len(before), len(after))
		}
		for i := range before {
			if before[i].Revision != after[i].Revision || !equalStrings(before[i].MergeStatus, after[i].MergeStatus) {
				t.Fatalf("record %d changed", i)
			}
		}
	})
}

func TestRapidTraverse_InsertionBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genPush().Draw(t, "push")
		policy := rapid.SampledFrom([]MergePolicy{PolicyAnnotate, PolicyExclude}).Draw(t, "policy")
		r, list, stats := run(t, p, policy)
		ctx := context.Background()

		if policy == PolicyExclude || p.others == 0 {
			if stats.Inserted != 0 {
				t.Fatalf("inserted %d commits (policy %v, %d other tips)", stats.Inserted, policy, p.others)
			}
		}
		if list.Len() != len(r.NewCommits)+stats.Inserted {
			t.Fatalf("list has %d commits, want %d + %d", list.Len(), len(r.NewCommits), stats.Inserted)
		}

		reachable, err := p.g.o.AncestryDifference(ctx, nil, p.new)
		if err != nil {
			t.Fatalf("AncestryDifference() error: %v", err)
		}
		fromNew := make(map[git.RevisionID]bool, len(reachable))
		for _, rev := range reachable {
			fromNew[rev] = true
		}
		for _, rec := range list.Records() {
			if !fromNew[rec.Revision] {
				t.Fatalf("%s is not reachable from the new tip", rec.Revision.Short())
			}
			base, err := p.g.o.MergeBase(ctx, rec.Revision, p.old)
			if err != nil {
				t.Fatalf("MergeBase() error: %v", err)
			}
			if base == rec.Revision {
				t.Fatalf("%s is history of the old tip", rec.Revision.Short())
			}
		}
	})
}
