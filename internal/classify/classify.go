// Package classify maps a reference update to its change kind and reference
// kind.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/masmgr/pushnotify/internal/git"
)

var (
	// ErrInvalidRevision is returned when both sides of a change are the zero
	// revision.
	ErrInvalidRevision = errors.New("invalid revision: both old and new are zero")
	// ErrUnexpectedReferenceKind matches every *UnexpectedReferenceKindError.
	ErrUnexpectedReferenceKind = errors.New("unexpected reference kind")
)

// UnexpectedReferenceKindError carries the reference and object type that did
// not map to a known reference kind.
type UnexpectedReferenceKindError struct {
	Ref        string
	ObjectType git.ObjectType
}

func (e *UnexpectedReferenceKindError) Error() string {
	return fmt.Sprintf("%v: %s points to a %s", ErrUnexpectedReferenceKind, e.Ref, e.ObjectType)
}

func (e *UnexpectedReferenceKindError) Is(target error) bool {
	return target == ErrUnexpectedReferenceKind
}

// ReferenceChange is one line of post-receive input.
type ReferenceChange struct {
	Old  git.RevisionID
	New  git.RevisionID
	Name string
}

// ChangeKind says whether a reference was created, updated or deleted.
type ChangeKind int

const (
	Create ChangeKind = iota
	Update
	Delete
)

// String returns a string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// ReferenceKind is the kind of reference a change applies to.
type ReferenceKind int

const (
	Branch ReferenceKind = iota
	AnnotatedTag
	UnannotatedTag
	TrackingBranch
)

// String returns a string representation of the reference kind.
func (k ReferenceKind) String() string {
	switch k {
	case Branch:
		return "branch"
	case AnnotatedTag:
		return "annotated-tag"
	case UnannotatedTag:
		return "tag"
	case TrackingBranch:
		return "tracking-branch"
	default:
		return "unknown"
	}
}

// IsTag reports whether k is one of the tag kinds.
func (k ReferenceKind) IsTag() bool {
	return k == AnnotatedTag || k == UnannotatedTag
}

// Namespaces are the reference prefixes the classifier recognizes.
// MirrorRemote names the remote whose tracking branches stand in for local
// branches, as in a mirror clone; leave it empty to treat every remote as
// foreign.
type Namespaces struct {
	Branches     string
	Tags         string
	Remotes      string
	MirrorRemote string
}

// DefaultNamespaces returns git's standard namespaces.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		Branches: git.BranchNamespace,
		Tags:     git.TagNamespace,
		Remotes:  git.RemoteNamespace,
	}
}

// ObjectTyper resolves the object type of a revision. git.Oracle satisfies it.
type ObjectTyper interface {
	ObjectType(ctx context.Context, rev git.RevisionID) (git.ObjectType, error)
}

// Classification is the result of Classify.
type Classification struct {
	Change    ChangeKind
	Reference ReferenceKind
	ShortName string
}

// Suppressed reports whether no notification should be produced.
func (c Classification) Suppressed() bool {
	return c.Reference == TrackingBranch
}

// KindOf derives the change kind from the zero sentinels alone.
func KindOf(change ReferenceChange) (ChangeKind, error) {
	switch {
	case change.Old.IsZero() && change.New.IsZero():
		return 0, ErrInvalidRevision
	case change.Old.IsZero():
		return Create, nil
	case change.New.IsZero():
		return Delete, nil
	default:
		return Update, nil
	}
}

// Classify determines the change and reference kind of change. The object
// type of the surviving revision (new, or old for a deletion) is resolved
// through typer. A TrackingBranch result is not an error; the caller must
// suppress the notification.
func Classify(ctx context.Context, typer ObjectTyper, change ReferenceChange, ns Namespaces) (Classification, error) {
	kind, err := KindOf(change)
	if err != nil {
		return Classification{}, err
	}

	rev := change.New
	if kind == Delete {
		rev = change.Old
	}
	objType, err := typer.ObjectType(ctx, rev)
	if err != nil {
		return Classification{}, err
	}

	refKind, short, ok := ns.referenceKind(change.Name, objType)
	if !ok {
		return Classification{}, &UnexpectedReferenceKindError{Ref: change.Name, ObjectType: objType}
	}
	return Classification{Change: kind, Reference: refKind, ShortName: short}, nil
}

func (ns Namespaces) referenceKind(name string, objType git.ObjectType) (ReferenceKind, string, bool) {
	switch {
	case ns.Tags != "" && strings.HasPrefix(name, ns.Tags):
		short := strings.TrimPrefix(name, ns.Tags)
		switch objType {
		case git.ObjectTag:
			return AnnotatedTag, short, short != ""
		case git.ObjectCommit:
			return UnannotatedTag, short, short != ""
		}
	case ns.Branches != "" && strings.HasPrefix(name, ns.Branches):
		short := strings.TrimPrefix(name, ns.Branches)
		if objType == git.ObjectCommit && short != "" {
			return Branch, short, true
		}
	case ns.Remotes != "" && strings.HasPrefix(name, ns.Remotes):
		short := strings.TrimPrefix(name, ns.Remotes)
		remote, branch, found := strings.Cut(short, "/")
		if objType != git.ObjectCommit || !found || remote == "" || branch == "" {
			break
		}
		if remote == ns.MirrorRemote {
			return Branch, short, true
		}
		return TrackingBranch, short, true
	}
	return 0, "", false
}
