package push

import (
	"context"
	"testing"

	"github.com/masmgr/pushnotify/internal/git"
)

// graph builds a MockOracle history from readable commit names.
type graph struct {
	o     *git.MockOracle
	names map[git.RevisionID]string
}

func newGraph() *graph {
	return &graph{o: git.NewMockOracle(), names: make(map[git.RevisionID]string)}
}

func (g *graph) commit(name string, parents ...string) git.RevisionID {
	rev := git.MockRevision(name)
	revs := make([]git.RevisionID, len(parents))
	for i, p := range parents {
		revs[i] = git.MockRevision(p)
	}
	g.o.AddCommit(rev, name, revs...)
	g.names[rev] = name
	return rev
}

func (g *graph) ref(name, commit string) {
	g.o.SetRef(name, git.MockRevision(commit))
}

func (g *graph) nameList(revs []git.RevisionID) []string {
	out := make([]string, len(revs))
	for i, rev := range revs {
		if name, ok := g.names[rev]; ok {
			out[i] = name
		} else {
			out[i] = rev.Short()
		}
	}
	return out
}

func rev(name string) git.RevisionID {
	return git.MockRevision(name)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// pushList reconstructs oldName..newName for refName and loads the new commits.
func (g *graph) pushList(t *testing.T, refName, oldName, newName string) (*Reconstruction, *CommitList) {
	t.Helper()
	ctx := context.Background()
	tips, err := ExclusionTips(ctx, g.o, refName, nil)
	if err != nil {
		t.Fatalf("ExclusionTips() error: %v", err)
	}
	r, err := Reconstruct(ctx, g.o, rev(oldName), rev(newName), tips)
	if err != nil {
		t.Fatalf("Reconstruct() error: %v", err)
	}
	list, err := LoadList(ctx, r.NewCommits, MetadataLoader(g.o))
	if err != nil {
		t.Fatalf("LoadList() error: %v", err)
	}
	return r, list
}
