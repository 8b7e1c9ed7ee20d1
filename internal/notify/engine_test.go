package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/masmgr/pushnotify/internal/classify"
	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/git"
	"github.com/masmgr/pushnotify/internal/push"
)

func rev(name string) git.RevisionID {
	return git.MockRevision(name)
}

func patchFor(path string, added int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", path, path)
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)
	fmt.Fprintf(&b, "@@ -1 +1,%d @@\n old\n", added+1)
	for i := 0; i < added; i++ {
		fmt.Fprintf(&b, "+line %d\n", i)
	}
	return b.String()
}

// mergeRepo builds main: A <- P0 <- M and topic: A <- X <- Y, M merging Y.
func mergeRepo() *git.MockOracle {
	m := git.NewMockOracle()
	m.AddCommit(rev("A"), "initial")
	m.AddCommit(rev("P0"), "mainline work", rev("A"))
	m.AddCommit(rev("X"), "topic start", rev("A"))
	m.AddCommit(rev("Y"), "topic finish", rev("X"))
	m.AddCommit(rev("M"), "Merge branch 'topic'", rev("P0"), rev("Y"))
	m.SetRef("refs/heads/main", rev("M"))
	m.SetDiff(rev("X"), patchFor("src/x.go", 2))
	m.SetDiff(rev("Y"), patchFor("src/y.go", 3)+patchFor("docs/y.md", 1))
	m.SetDiff(rev("M"), patchFor("src/y.go", 3))
	return m
}

func TestEngine_LinearUpdate(t *testing.T) {
	m := git.NewMockOracle()
	m.AddCommit(rev("A"), "A")
	m.AddCommit(rev("B"), "B", rev("A"))
	m.SetRef("refs/heads/main", rev("B"))
	m.SetDiff(rev("B"), patchFor("main.go", 1))

	res, err := NewEngine(m, DefaultOptions()).Process(context.Background(), classify.ReferenceChange{Old: rev("A"), New: rev("B"), Name: "refs/heads/main"})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.ChangeKind != classify.Update || res.ReferenceKind != classify.Branch {
		t.Errorf("kinds = %v/%v, want update/branch", res.ChangeKind, res.ReferenceKind)
	}
	if res.UpdateKind != push.FastForward {
		t.Errorf("UpdateKind = %v", res.UpdateKind)
	}
	if len(res.Commits) != 1 || res.Commits[0].Revision != rev("B") {
		t.Fatalf("Commits = %+v", res.Commits)
	}
	if len(res.Commits[0].MergeStatus) != 0 {
		t.Errorf("MergeStatus = %v, want empty", res.Commits[0].MergeStatus)
	}
	if len(res.Commits[0].Files) != 1 || res.Commits[0].Files[0].LinesAdded != 1 {
		t.Errorf("Files = %+v", res.Commits[0].Files)
	}
	if res.Stats.Commits != 1 || res.Stats.LinesAdded != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestEngine_MergeProvenance(t *testing.T) {
	m := mergeRepo()
	res, err := NewEngine(m, DefaultOptions()).Process(context.Background(), classify.ReferenceChange{Old: rev("P0"), New: rev("M"), Name: "refs/heads/main"})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	var order []git.RevisionID
	for _, c := range res.Commits {
		order = append(order, c.Revision)
	}
	want := []git.RevisionID{rev("X"), rev("Y"), rev("M")}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	status := fmt.Sprintf("Merged %s: Merge branch 'topic'", rev("M").Short())
	for _, c := range res.Commits[:2] {
		if len(c.MergeStatus) != 1 || c.MergeStatus[0] != status {
			t.Errorf("%s MergeStatus = %v", c.Revision.Short(), c.MergeStatus)
		}
	}
}

func TestEngine_MergePolicyForOtherRefs(t *testing.T) {
	for _, policy := range []push.MergePolicy{push.PolicyAnnotate, push.PolicyExclude} {
		t.Run(policy.String(), func(t *testing.T) {
			m := mergeRepo()
			m.SetRef("refs/heads/topic", rev("Y"))
			opts := DefaultOptions()
			opts.MergePolicy = policy

			res, err := NewEngine(m, opts).Process(context.Background(), classify.ReferenceChange{Old: rev("P0"), New: rev("M"), Name: "refs/heads/main"})
			if err != nil {
				t.Fatalf("Process() error: %v", err)
			}
			want := 1
			if policy == push.PolicyAnnotate {
				want = 3
			}
			if len(res.Commits) != want {
				t.Errorf("got %d commits, want %d", len(res.Commits), want)
			}
		})
	}
}

func TestEngine_FileFilters(t *testing.T) {
	m := mergeRepo()
	opts := DefaultOptions()
	opts.Include = []string{"src/**"}
	opts.Exclude = []string{"**/x.go"}

	res, err := NewEngine(m, opts).Process(context.Background(), classify.ReferenceChange{Old: rev("P0"), New: rev("M"), Name: "refs/heads/main"})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	for _, c := range res.Commits {
		for _, f := range c.Files {
			if !strings.HasPrefix(f.Path(), "src/") || f.Path() == "src/x.go" {
				t.Errorf("%s kept file %s", c.Revision.Short(), f.Path())
			}
		}
	}
	if len(res.Commits) != 3 {
		t.Errorf("filters must not drop commits, got %d", len(res.Commits))
	}
}

func TestEngine_CreateAndDelete(t *testing.T) {
	m := git.NewMockOracle()
	m.AddCommit(rev("A"), "A")
	m.AddCommit(rev("B"), "B", rev("A"))
	m.AddCommit(rev("C"), "C", rev("B"))
	m.SetRef("refs/heads/main", rev("B"))
	m.SetRef("refs/heads/feature", rev("C"))
	e := NewEngine(m, Options{})

	res, err := e.Process(context.Background(), classify.ReferenceChange{Old: git.ZeroRevision, New: rev("C"), Name: "refs/heads/feature"})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.ChangeKind != classify.Create || len(res.Commits) != 1 || res.Commits[0].Revision != rev("C") {
		t.Errorf("create result = %v, %d commits", res.ChangeKind, len(res.Commits))
	}
	if !strings.HasPrefix(res.Summary[0], "branch feature created") {
		t.Errorf("Summary[0] = %q", res.Summary[0])
	}

	m.DeleteRef("refs/heads/feature")
	res, err = e.Process(context.Background(), classify.ReferenceChange{Old: rev("C"), New: git.ZeroRevision, Name: "refs/heads/feature"})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.ChangeKind != classify.Delete || len(res.Commits) != 0 || len(res.Summary) != 1 {
		t.Errorf("delete result = %+v", res)
	}
}

func TestEngine_Tags(t *testing.T) {
	m := git.NewMockOracle()
	m.AddCommit(rev("A"), "A")
	m.AddTag(rev("tag"), rev("A"))
	e := NewEngine(m, Options{})

	tests := []struct {
		change   classify.ReferenceChange
		wantKind classify.ReferenceKind
		wantText string
	}{
		{classify.ReferenceChange{Old: git.ZeroRevision, New: rev("tag"), Name: "refs/tags/v1"}, classify.AnnotatedTag, "annotated tag v1 created"},
		{classify.ReferenceChange{Old: rev("A"), New: git.ZeroRevision, Name: "refs/tags/v0"}, classify.UnannotatedTag, "tag v0 deleted"},
		{classify.ReferenceChange{Old: rev("A"), New: rev("tag"), Name: "refs/tags/v2"}, classify.AnnotatedTag, "annotated tag v2 moved"},
	}
	for _, tt := range tests {
		res, err := e.Process(context.Background(), tt.change)
		if err != nil {
			t.Fatalf("Process(%s) error: %v", tt.change.Name, err)
		}
		if res.ReferenceKind != tt.wantKind || !strings.HasPrefix(res.Summary[0], tt.wantText) {
			t.Errorf("%s: kind %v summary %q", tt.change.Name, res.ReferenceKind, res.Summary)
		}
		if len(res.Commits) != 0 {
			t.Errorf("%s: tag produced commits", tt.change.Name)
		}
	}
}

func TestEngine_Suppressed(t *testing.T) {
	m := git.NewMockOracle()
	m.AddCommit(rev("A"), "A")
	opts := DefaultOptions()
	opts.Ignore = []string{"refs/heads/wip/**"}
	e := NewEngine(m, opts)

	for _, name := range []string{"refs/remotes/upstream/main", "refs/heads/wip/x"} {
		res, err := e.Process(context.Background(), classify.ReferenceChange{Old: git.ZeroRevision, New: rev("A"), Name: name})
		if err != nil {
			t.Fatalf("Process(%s) error: %v", name, err)
		}
		if !res.Suppressed || len(res.Summary) != 0 || len(res.Commits) != 0 {
			t.Errorf("%s: result = %+v, want suppressed", name, res)
		}
	}
}

func TestEngine_Errors(t *testing.T) {
	m := git.NewMockOracle()
	m.AddCommit(rev("A"), "A")
	e := NewEngine(m, DefaultOptions())

	_, err := e.Process(context.Background(), classify.ReferenceChange{Old: git.ZeroRevision, New: git.ZeroRevision, Name: "refs/heads/main"})
	if !errors.Is(err, classify.ErrInvalidRevision) {
		t.Errorf("error = %v, want ErrInvalidRevision", err)
	}

	_, err = e.Process(context.Background(), classify.ReferenceChange{Old: git.ZeroRevision, New: rev("missing"), Name: "refs/heads/main"})
	if !git.IsOracleError(err) || !errors.Is(err, git.ErrRevisionNotFound) {
		t.Errorf("error = %v, want oracle failure", err)
	}
}

func TestEngine_MalformedDiff(t *testing.T) {
	build := func() *git.MockOracle {
		m := git.NewMockOracle()
		m.AddCommit(rev("A"), "A")
		m.AddCommit(rev("B"), "B", rev("A"))
		m.SetRef("refs/heads/main", rev("B"))
		m.SetDiff(rev("B"), "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1 +1 @@\n+a\n+b\n"+patchFor("ok.go", 1))
		return m
	}
	change := classify.ReferenceChange{Old: rev("A"), New: rev("B"), Name: "refs/heads/main"}

	if _, err := NewEngine(build(), DefaultOptions()).Process(context.Background(), change); !errors.Is(err, diff.ErrMalformedHunk) {
		t.Fatalf("strict error = %v, want ErrMalformedHunk", err)
	}

	opts := DefaultOptions()
	opts.SkipMalformedDiffs = true
	res, err := NewEngine(build(), opts).Process(context.Background(), change)
	if err != nil {
		t.Fatalf("lenient Process() error: %v", err)
	}
	if len(res.SkippedDiffs) != 1 || len(res.Commits[0].Files) != 1 || res.Commits[0].Files[0].Path() != "ok.go" {
		t.Errorf("skipped = %v, files = %+v", res.SkippedDiffs, res.Commits[0].Files)
	}
}
