package diff

import (
	"errors"
	"fmt"

	"github.com/masmgr/pushnotify/internal/git"
)

var (
	// ErrUnrecognizedDiffHeader is returned for an extended header line the
	// parser does not know.
	ErrUnrecognizedDiffHeader = errors.New("unrecognized diff header")
	// ErrMalformedHunk is returned when hunk headers or bodies violate the
	// unified diff grammar.
	ErrMalformedHunk = errors.New("malformed hunk")
)

// ParseError locates a grammar violation within a revision's diff.
type ParseError struct {
	Revision git.RevisionID
	Path     string
	Line     int // 1-based line number within the raw diff
	Text     string
	Err      error
}

func (e *ParseError) Error() string {
	where := fmt.Sprintf("line %d", e.Line)
	if e.Path != "" {
		where = e.Path + ", " + where
	}
	if e.Revision != "" {
		where = "diff of " + e.Revision.Short() + ", " + where
	}
	return fmt.Sprintf("%s: %v: %q", where, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
