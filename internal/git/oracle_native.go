package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// NativeOracle answers oracle queries in-process through go-git.
type NativeOracle struct {
	repo *gogit.Repository
	path string
}

// NewNativeOracle opens the repository at repoPath (or the one containing it).
func NewNativeOracle(repoPath string) (*NativeOracle, error) {
	repo, err := gogit.PlainOpenWithOptions(repoPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", repoPath, errors.Join(ErrOracleUnavailable, err))
	}
	return &NativeOracle{repo: repo, path: repoPath}, nil
}

// NewNativeOracleFromRepository wraps an already opened repository.
func NewNativeOracleFromRepository(repo *gogit.Repository) *NativeOracle {
	return &NativeOracle{repo: repo}
}

func notFound(err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) || errors.Is(err, plumbing.ErrReferenceNotFound) {
		return errors.Join(ErrRevisionNotFound, err)
	}
	return err
}

func (o *NativeOracle) commit(rev RevisionID) (*object.Commit, error) {
	c, err := o.repo.CommitObject(plumbing.NewHash(string(rev)))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ObjectType looks the object up in the object store.
func (o *NativeOracle) ObjectType(ctx context.Context, rev RevisionID) (ObjectType, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	obj, err := o.repo.Object(plumbing.AnyObject, plumbing.NewHash(string(rev)))
	if err != nil {
		return "", notFound(err)
	}
	t, ok := ParseObjectType(obj.Type().String())
	if !ok {
		return "", fmt.Errorf("unexpected object type %s for %s", obj.Type(), rev.Short())
	}
	return t, nil
}

// Parents reads the parent list of a commit object.
func (o *NativeOracle) Parents(ctx context.Context, rev RevisionID) ([]RevisionID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := o.commit(rev)
	if err != nil {
		return nil, err
	}
	parents := make([]RevisionID, 0, len(c.ParentHashes))
	for _, h := range c.ParentHashes {
		parents = append(parents, RevisionID(h.String()))
	}
	return parents, nil
}

// MergeBase uses go-git's merge-base; the first best base wins when there
// are several.
func (o *NativeOracle) MergeBase(ctx context.Context, a, b RevisionID) (RevisionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ca, err := o.commit(a)
	if err != nil {
		return "", err
	}
	cb, err := o.commit(b)
	if err != nil {
		return "", err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", err
	}
	if len(bases) == 0 {
		return ZeroRevision, nil
	}
	return RevisionID(bases[0].Hash.String()), nil
}

// AncestryDifference marks everything reachable from exclude, then emits the
// rest of include's history in post-order so parents precede children.
func (o *NativeOracle) AncestryDifference(ctx context.Context, exclude []RevisionID, include RevisionID) ([]RevisionID, error) {
	if include.IsZero() {
		return nil, nil
	}
	excluded := make(map[RevisionID]struct{})
	for _, rev := range exclude {
		if rev.IsZero() {
			continue
		}
		if err := o.markReachable(ctx, rev, excluded); err != nil {
			return nil, err
		}
	}
	return topoOrder(ctx, include, excluded, o.Parents)
}

func (o *NativeOracle) markReachable(ctx context.Context, from RevisionID, seen map[RevisionID]struct{}) error {
	stack := []RevisionID{from}
	for len(stack) > 0 {
		rev := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[rev]; ok {
			continue
		}
		seen[rev] = struct{}{}
		parents, err := o.Parents(ctx, rev)
		if err != nil {
			return err
		}
		stack = append(stack, parents...)
	}
	return nil
}

// topoOrder lists the commits reachable from include but not in stop, oldest
// first. The walk is an explicit-stack depth-first post-order so that deep
// histories do not grow the goroutine stack.
func topoOrder(ctx context.Context, include RevisionID, stop map[RevisionID]struct{}, parentsOf func(context.Context, RevisionID) ([]RevisionID, error)) ([]RevisionID, error) {
	type frame struct {
		rev     RevisionID
		parents []RevisionID
		next    int
	}

	var order []RevisionID
	visited := make(map[RevisionID]struct{})
	if _, ok := stop[include]; ok {
		return nil, nil
	}

	parents, err := parentsOf(ctx, include)
	if err != nil {
		return nil, err
	}
	visited[include] = struct{}{}
	stack := []*frame{{rev: include, parents: parents}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.parents) {
			order = append(order, top.rev)
			stack = stack[:len(stack)-1]
			continue
		}
		p := top.parents[top.next]
		top.next++
		if _, ok := stop[p]; ok {
			continue
		}
		if _, ok := visited[p]; ok {
			continue
		}
		visited[p] = struct{}{}
		pp, err := parentsOf(ctx, p)
		if err != nil {
			return nil, err
		}
		stack = append(stack, &frame{rev: p, parents: pp})
	}
	return order, nil
}

// ReferenceTips iterates the reference store, peeling annotated tags.
func (o *NativeOracle) ReferenceTips(ctx context.Context, exclude []string) (map[string]RevisionID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter, err := o.repo.References()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	tips := make(map[string]RevisionID)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name().String()
		if !isTipNamespace(name) || MatchAny(exclude, name) {
			return nil
		}
		target, ok, err := o.peel(ref.Hash())
		if err != nil {
			return err
		}
		if ok {
			tips[name] = RevisionID(target.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tips, nil
}

// peel follows tag objects until it reaches a commit. ok is false when the
// chain ends in something other than a commit.
func (o *NativeOracle) peel(h plumbing.Hash) (plumbing.Hash, bool, error) {
	for {
		obj, err := o.repo.Object(plumbing.AnyObject, h)
		if err != nil {
			return plumbing.ZeroHash, false, notFound(err)
		}
		switch v := obj.(type) {
		case *object.Commit:
			return v.Hash, true, nil
		case *object.Tag:
			h = v.Target
		default:
			return plumbing.ZeroHash, false, nil
		}
	}
}

// RawDiff renders the first-parent patch with go-git's unified encoder.
func (o *NativeOracle) RawDiff(ctx context.Context, rev RevisionID) (string, error) {
	c, err := o.commit(rev)
	if err != nil {
		return "", err
	}
	tree, err := c.Tree()
	if err != nil {
		return "", err
	}
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return "", notFound(err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return "", err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, &object.DiffTreeOptions{DetectRenames: true})
	if err != nil {
		return "", err
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := patch.Encode(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Metadata reads the commit object's signatures and message.
func (o *NativeOracle) Metadata(ctx context.Context, rev RevisionID, fields ...MetadataField) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := o.commit(rev)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = AllMetadataFields
	}
	subject, body := splitMessage(c.Message)
	md := make(Metadata, len(fields))
	for _, f := range fields {
		switch f {
		case FieldAuthorName:
			md[f] = c.Author.Name
		case FieldAuthorEmail:
			md[f] = c.Author.Email
		case FieldAuthorDate:
			md[f] = c.Author.When.Format(time.RFC3339)
		case FieldCommitterName:
			md[f] = c.Committer.Name
		case FieldCommitterEmail:
			md[f] = c.Committer.Email
		case FieldCommitterDate:
			md[f] = c.Committer.When.Format(time.RFC3339)
		case FieldSubject:
			md[f] = subject
		case FieldBody:
			md[f] = body
		default:
			return nil, fmt.Errorf("unsupported metadata field %d", f)
		}
	}
	return md, nil
}
