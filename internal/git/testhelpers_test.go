package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestRepo creates a temporary git repository.
func createTestRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	tmpDir := t.TempDir()

	repo, err := gogit.PlainInit(tmpDir, false)
	if err != nil {
		t.Fatalf("Failed to initialize git repo: %v", err)
	}
	return tmpDir, repo
}

// addCommit writes files and commits them with explicit parents, so side
// branches and merges can be built without checkouts.
func addCommit(t *testing.T, repo *gogit.Repository, message string, files map[string]string, parents ...plumbing.Hash) plumbing.Hash {
	t.Helper()
	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	for name, content := range files {
		path := filepath.Join(w.Filesystem.Root(), name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
		if _, err := w.Add(name); err != nil {
			t.Fatalf("Failed to add file: %v", err)
		}
	}

	hash, err := w.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  testEpoch.Add(time.Duration(len(message)) * time.Minute),
		},
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	return hash
}

// setRef points a reference at a commit.
func setRef(t *testing.T, repo *gogit.Repository, name string, h plumbing.Hash) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), h)
	if err := repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("Failed to set reference %s: %v", name, err)
	}
}

// createAnnotatedTag creates refs/tags/<name> pointing at a tag object.
func createAnnotatedTag(t *testing.T, repo *gogit.Repository, name string, target plumbing.Hash) plumbing.Hash {
	t.Helper()
	ref, err := repo.CreateTag(name, target, &gogit.CreateTagOptions{
		Tagger:  &object.Signature{Name: "Test Tagger", Email: "tagger@example.com", When: testEpoch},
		Message: "release " + name,
	})
	if err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	return ref.Hash()
}

func rev(h plumbing.Hash) RevisionID {
	return RevisionID(h.String())
}

// mergeRepo builds:
//
//	A---B-------M   refs/heads/main
//	     \     /
//	      X---Y     refs/heads/topic
func mergeRepo(t *testing.T) (string, *gogit.Repository, map[string]plumbing.Hash) {
	t.Helper()
	dir, repo := createTestRepo(t)
	h := make(map[string]plumbing.Hash)
	h["A"] = addCommit(t, repo, "A: initial", map[string]string{"README": "hello\n"})
	h["B"] = addCommit(t, repo, "B: second", map[string]string{"main.go": "package main\n"}, h["A"])
	h["X"] = addCommit(t, repo, "X: topic start", map[string]string{"topic.go": "package topic\n"}, h["B"])
	h["Y"] = addCommit(t, repo, "Y: topic end", map[string]string{"topic.go": "package topic\n\nvar y = 1\n"}, h["X"])
	h["M"] = addCommit(t, repo, "M: merge topic", nil, h["B"], h["Y"])
	setRef(t, repo, "refs/heads/main", h["M"])
	setRef(t, repo, "refs/heads/topic", h["Y"])
	return dir, repo, h
}
