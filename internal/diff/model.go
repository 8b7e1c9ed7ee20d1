// Package diff turns the raw unified diff of one revision into a structured
// per-file, per-line change model.
package diff

import "github.com/go-git/go-git/v5/plumbing/filemode"

// FileStatus is the kind of change a file underwent.
type FileStatus int

const (
	StatusModified FileStatus = iota
	StatusAdded
	StatusDeleted
	StatusRenamed
	StatusCopied
	StatusTypeChanged
)

// String returns a string representation of the status.
func (s FileStatus) String() string {
	switch s {
	case StatusModified:
		return "modified"
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	case StatusCopied:
		return "copied"
	case StatusTypeChanged:
		return "type-changed"
	default:
		return "unknown"
	}
}

// Letter returns the single-letter code git uses for the status.
func (s FileStatus) Letter() string {
	switch s {
	case StatusAdded:
		return "A"
	case StatusDeleted:
		return "D"
	case StatusRenamed:
		return "R"
	case StatusCopied:
		return "C"
	case StatusTypeChanged:
		return "T"
	default:
		return "M"
	}
}

// LineKind is the kind of a line inside a hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineDeleted
)

// String returns a string representation of the line kind.
func (k LineKind) String() string {
	switch k {
	case LineAdded:
		return "added"
	case LineDeleted:
		return "deleted"
	default:
		return "context"
	}
}

// LineChange is one line of a hunk. Line numbers are 1-based; 0 means the
// line does not exist on that side. Added lines carry only NewLine, deleted
// lines only OldLine, context lines both.
type LineChange struct {
	Kind           LineKind
	OldLine        int
	NewLine        int
	Text           string
	NoNewlineAtEOF bool
}

// Hunk is one @@ section of a file diff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Section  string // Text after the closing @@ (usually the enclosing function)
	Changes  []LineChange
}

// FileChange represents the diff of one file within a revision.
type FileChange struct {
	Status       FileStatus
	OldPath      string
	NewPath      string
	Similarity   int // Percent, renamed/copied only
	OldMode      filemode.FileMode
	NewMode      filemode.FileMode
	Binary       bool
	Hunks        []Hunk
	LinesAdded   int
	LinesDeleted int
}

// Path returns the path that identifies the file after the change.
func (f FileChange) Path() string {
	if f.Status == StatusDeleted || f.NewPath == "" {
		return f.OldPath
	}
	return f.NewPath
}

// Churn returns total lines changed (added + deleted).
func (f FileChange) Churn() int {
	return f.LinesAdded + f.LinesDeleted
}

// ModeChanged reports whether the file mode differs between the two sides of
// a file present on both.
func (f FileChange) ModeChanged() bool {
	return f.OldMode != filemode.Empty && f.NewMode != filemode.Empty && f.OldMode != f.NewMode
}
