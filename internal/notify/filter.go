package notify

import (
	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/git"
)

// filterFiles keeps the file changes whose old or new path matches include
// (when given) and neither matches exclude.
func filterFiles(files []diff.FileChange, include, exclude []string) []diff.FileChange {
	if len(include) == 0 && len(exclude) == 0 {
		return files
	}
	kept := make([]diff.FileChange, 0, len(files))
	for _, fc := range files {
		paths := []string{fc.OldPath, fc.NewPath}
		if len(include) > 0 && !matchPaths(include, paths) {
			continue
		}
		if matchPaths(exclude, paths) {
			continue
		}
		kept = append(kept, fc)
	}
	return kept
}

func matchPaths(patterns []string, paths []string) bool {
	for _, p := range paths {
		if p != "" && git.MatchAny(patterns, p) {
			return true
		}
	}
	return false
}
