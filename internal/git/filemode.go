package git

import (
	"fmt"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// ParseFileMode parses an octal file mode string (e.g. "100644", "120000", "000000").
func ParseFileMode(s string) (filemode.FileMode, error) {
	if s == "" {
		return filemode.Empty, nil
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return filemode.Empty, fmt.Errorf("parse file mode %q: %w", s, err)
	}
	return filemode.FileMode(v), nil
}

// ModeClass groups file modes whose change is a content change rather than a
// type change.
type ModeClass int

const (
	ModeClassNone ModeClass = iota
	ModeClassFile
	ModeClassSymlink
	ModeClassSubmodule
	ModeClassDir
)

// ClassifyMode returns the class of a mode. Regular and executable files share
// a class, so a chmod +x is not a type change.
func ClassifyMode(m filemode.FileMode) ModeClass {
	switch m {
	case filemode.Regular, filemode.Deprecated, filemode.Executable:
		return ModeClassFile
	case filemode.Symlink:
		return ModeClassSymlink
	case filemode.Submodule:
		return ModeClassSubmodule
	case filemode.Dir:
		return ModeClassDir
	default:
		return ModeClassNone
	}
}

// IsTypeChange reports whether going from old to new changes the kind of
// object stored at a path.
func IsTypeChange(old, new filemode.FileMode) bool {
	if old == filemode.Empty || new == filemode.Empty {
		return false
	}
	return ClassifyMode(old) != ClassifyMode(new)
}
