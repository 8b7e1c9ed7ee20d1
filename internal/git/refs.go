package git

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Well-known reference namespaces.
const (
	BranchNamespace = "refs/heads/"
	TagNamespace    = "refs/tags/"
	RemoteNamespace = "refs/remotes/"
)

// MatchAny reports whether name matches one of the doublestar patterns.
// Invalid patterns never match.
func MatchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// ValidatePatterns returns the first invalid pattern error, if any.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return &PatternError{Pattern: pattern}
		}
	}
	return nil
}

// PatternError reports a malformed glob pattern.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid pattern: " + e.Pattern
}

// isTipNamespace reports whether a reference counts as a branch or tag tip.
func isTipNamespace(name string) bool {
	return strings.HasPrefix(name, BranchNamespace) || strings.HasPrefix(name, TagNamespace)
}

// ShortRefName strips the well-known namespace prefix from a reference name.
func ShortRefName(name string) string {
	for _, prefix := range []string{BranchNamespace, TagNamespace, RemoteNamespace} {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return name[len(prefix):]
		}
	}
	return name
}
