package git

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// MockOracle is an in-memory oracle over a hand-built commit graph.
// It allows tests to exercise the engine without a real Git repository.
// Commits must be added parents first.
type MockOracle struct {
	commits map[RevisionID]*MockCommit
	seq     map[RevisionID]int
	tags    map[RevisionID]RevisionID
	types   map[RevisionID]ObjectType
	refs    map[string]RevisionID
	diffs   map[RevisionID]string

	// Error, when set, is returned by every query.
	Error error
	// Calls counts queries by method name.
	Calls map[string]int
}

// MockCommit describes one commit of a MockOracle graph.
type MockCommit struct {
	Parents []RevisionID
	Subject string
	Body    string
	Author  AuthorInfo
	Date    time.Time
}

// NewMockOracle creates an empty MockOracle.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		commits: make(map[RevisionID]*MockCommit),
		seq:     make(map[RevisionID]int),
		tags:    make(map[RevisionID]RevisionID),
		types:   make(map[RevisionID]ObjectType),
		refs:    make(map[string]RevisionID),
		diffs:   make(map[RevisionID]string),
		Calls:   make(map[string]int),
	}
}

// MockRevision derives a stable full-length revision from a readable name.
func MockRevision(name string) RevisionID {
	sum := sha1.Sum([]byte(name))
	return RevisionID(hex.EncodeToString(sum[:]))
}

// AddCommit adds a commit whose parents must already exist.
func (m *MockOracle) AddCommit(rev RevisionID, subject string, parents ...RevisionID) {
	for _, p := range parents {
		if _, ok := m.commits[p]; !ok {
			panic(fmt.Sprintf("mock oracle: parent %s of %s not added", p.Short(), rev.Short()))
		}
	}
	m.AddCommitInfo(rev, MockCommit{
		Parents: parents,
		Subject: subject,
		Author:  AuthorInfo{Name: "Test", Email: "test@example.com"},
		Date:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(m.seq)) * time.Hour),
	})
}

// AddCommitInfo adds a commit with full metadata.
func (m *MockOracle) AddCommitInfo(rev RevisionID, c MockCommit) {
	m.commits[rev] = &c
	m.seq[rev] = len(m.seq)
	m.types[rev] = ObjectCommit
}

// AddTag adds an annotated tag object pointing at target.
func (m *MockOracle) AddTag(rev, target RevisionID) {
	m.tags[rev] = target
	m.types[rev] = ObjectTag
}

// SetObjectType registers an object of an arbitrary type.
func (m *MockOracle) SetObjectType(rev RevisionID, t ObjectType) {
	m.types[rev] = t
}

// SetRef points a reference at rev.
func (m *MockOracle) SetRef(name string, rev RevisionID) {
	m.refs[name] = rev
}

// DeleteRef removes a reference.
func (m *MockOracle) DeleteRef(name string) {
	delete(m.refs, name)
}

// SetDiff sets the raw diff returned for rev.
func (m *MockOracle) SetDiff(rev RevisionID, text string) {
	m.diffs[rev] = text
}

func (m *MockOracle) call(name string) error {
	m.Calls[name]++
	return m.Error
}

func (m *MockOracle) lookup(rev RevisionID) (*MockCommit, error) {
	c, ok := m.commits[rev]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, rev.Short())
	}
	return c, nil
}

// ObjectType returns the registered type of rev.
func (m *MockOracle) ObjectType(_ context.Context, rev RevisionID) (ObjectType, error) {
	if err := m.call("ObjectType"); err != nil {
		return "", err
	}
	t, ok := m.types[rev]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRevisionNotFound, rev.Short())
	}
	return t, nil
}

// Parents returns the parents given to AddCommit.
func (m *MockOracle) Parents(_ context.Context, rev RevisionID) ([]RevisionID, error) {
	if err := m.call("Parents"); err != nil {
		return nil, err
	}
	c, err := m.lookup(rev)
	if err != nil {
		return nil, err
	}
	return append([]RevisionID(nil), c.Parents...), nil
}

func (m *MockOracle) reachable(from ...RevisionID) map[RevisionID]struct{} {
	seen := make(map[RevisionID]struct{})
	stack := append([]RevisionID(nil), from...)
	for len(stack) > 0 {
		rev := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c, ok := m.commits[rev]
		if !ok {
			continue
		}
		if _, ok := seen[rev]; ok {
			continue
		}
		seen[rev] = struct{}{}
		stack = append(stack, c.Parents...)
	}
	return seen
}

// MergeBase returns the most recently added best common ancestor.
func (m *MockOracle) MergeBase(_ context.Context, a, b RevisionID) (RevisionID, error) {
	if err := m.call("MergeBase"); err != nil {
		return "", err
	}
	if _, err := m.lookup(a); err != nil {
		return "", err
	}
	if _, err := m.lookup(b); err != nil {
		return "", err
	}
	fromA := m.reachable(a)
	fromB := m.reachable(b)
	var common []RevisionID
	for rev := range fromA {
		if _, ok := fromB[rev]; ok {
			common = append(common, rev)
		}
	}
	if len(common) == 0 {
		return ZeroRevision, nil
	}

	// A best common ancestor is not a proper ancestor of another common one.
	best := ZeroRevision
	bestSeq := -1
	for _, c := range common {
		dominated := false
		for _, d := range common {
			if d == c {
				continue
			}
			if _, ok := m.reachable(d)[c]; ok {
				dominated = true
				break
			}
		}
		if !dominated && m.seq[c] > bestSeq {
			best, bestSeq = c, m.seq[c]
		}
	}
	return best, nil
}

// AncestryDifference returns commits reachable from include and not from any
// of exclude, in the order they were added.
func (m *MockOracle) AncestryDifference(_ context.Context, exclude []RevisionID, include RevisionID) ([]RevisionID, error) {
	if err := m.call("AncestryDifference"); err != nil {
		return nil, err
	}
	if include.IsZero() {
		return nil, nil
	}
	if _, err := m.lookup(include); err != nil {
		return nil, err
	}
	var from []RevisionID
	for _, rev := range exclude {
		if !rev.IsZero() {
			from = append(from, rev)
		}
	}
	excluded := m.reachable(from...)
	var revs []RevisionID
	for rev := range m.reachable(include) {
		if _, ok := excluded[rev]; !ok {
			revs = append(revs, rev)
		}
	}
	sort.Slice(revs, func(i, j int) bool { return m.seq[revs[i]] < m.seq[revs[j]] })
	return revs, nil
}

// ReferenceTips returns branch and tag references, peeling annotated tags.
func (m *MockOracle) ReferenceTips(_ context.Context, exclude []string) (map[string]RevisionID, error) {
	if err := m.call("ReferenceTips"); err != nil {
		return nil, err
	}
	tips := make(map[string]RevisionID)
	for name, rev := range m.refs {
		if !isTipNamespace(name) || MatchAny(exclude, name) {
			continue
		}
		for {
			target, ok := m.tags[rev]
			if !ok {
				break
			}
			rev = target
		}
		if _, ok := m.commits[rev]; ok {
			tips[name] = rev
		}
	}
	return tips, nil
}

// RawDiff returns the text registered with SetDiff.
func (m *MockOracle) RawDiff(_ context.Context, rev RevisionID) (string, error) {
	if err := m.call("RawDiff"); err != nil {
		return "", err
	}
	if _, err := m.lookup(rev); err != nil {
		return "", err
	}
	return m.diffs[rev], nil
}

// Metadata returns the commit's metadata fields.
func (m *MockOracle) Metadata(_ context.Context, rev RevisionID, fields ...MetadataField) (Metadata, error) {
	if err := m.call("Metadata"); err != nil {
		return nil, err
	}
	c, err := m.lookup(rev)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = AllMetadataFields
	}
	md := make(Metadata, len(fields))
	for _, f := range fields {
		switch f {
		case FieldAuthorName, FieldCommitterName:
			md[f] = c.Author.Name
		case FieldAuthorEmail, FieldCommitterEmail:
			md[f] = c.Author.Email
		case FieldAuthorDate, FieldCommitterDate:
			md[f] = c.Date.Format(time.RFC3339)
		case FieldSubject:
			md[f] = c.Subject
		case FieldBody:
			md[f] = c.Body
		}
	}
	return md, nil
}
