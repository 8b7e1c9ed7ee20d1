// Package push reconstructs the commits introduced by a branch update and
// orders the side history pulled in by its merges.
package push

import (
	"fmt"
	"slices"
	"time"

	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/git"
)

// CommitRecord is one commit of a push notification.
type CommitRecord struct {
	Revision    git.RevisionID
	Parents     []git.RevisionID
	Author      string
	AuthorEmail string
	Date        time.Time
	Subject     string
	Message     string
	Files       []diff.FileChange
	MergeStatus []string // Provenance entries in discovery order
}

// IsMerge reports whether the commit has more than one parent.
func (c *CommitRecord) IsMerge() bool {
	return len(c.Parents) >= 2
}

// FirstParent returns the first parent, or the zero revision for a root
// commit.
func (c *CommitRecord) FirstParent() git.RevisionID {
	if len(c.Parents) == 0 {
		return git.ZeroRevision
	}
	return c.Parents[0]
}

// AddMergeStatus appends a provenance entry unless it is already present.
func (c *CommitRecord) AddMergeStatus(status string) bool {
	if slices.Contains(c.MergeStatus, status) {
		return false
	}
	c.MergeStatus = append(c.MergeStatus, status)
	return true
}

// provenance formats the entry recorded for commits pulled in by merge m.
func provenance(m *CommitRecord) string {
	return fmt.Sprintf("Merged %s: %s", m.Revision.Short(), m.Subject)
}

// CommitList is the ordered commit set of one push. Records live in an arena
// addressed by index; order holds the presentation order.
type CommitList struct {
	records []CommitRecord
	index   map[git.RevisionID]int
	order   []int
}

// NewCommitList creates an empty list.
func NewCommitList() *CommitList {
	return &CommitList{index: make(map[git.RevisionID]int)}
}

// Len returns the number of commits in the list.
func (l *CommitList) Len() int {
	return len(l.order)
}

// Contains reports whether rev has a record.
func (l *CommitList) Contains(rev git.RevisionID) bool {
	_, ok := l.index[rev]
	return ok
}

// Get returns the record of rev. The pointer stays valid until the next
// Append or InsertBefore.
func (l *CommitList) Get(rev git.RevisionID) (*CommitRecord, bool) {
	i, ok := l.index[rev]
	if !ok {
		return nil, false
	}
	return &l.records[i], true
}

func (l *CommitList) add(rec CommitRecord) (int, error) {
	if rec.Revision.IsZero() {
		return 0, fmt.Errorf("commit list: zero revision")
	}
	if _, ok := l.index[rec.Revision]; ok {
		return 0, fmt.Errorf("commit list: duplicate revision %s", rec.Revision.Short())
	}
	l.records = append(l.records, rec)
	i := len(l.records) - 1
	l.index[rec.Revision] = i
	return i, nil
}

// Append adds rec at the end of the presentation order.
func (l *CommitList) Append(rec CommitRecord) error {
	i, err := l.add(rec)
	if err != nil {
		return err
	}
	l.order = append(l.order, i)
	return nil
}

// InsertBefore adds rec immediately before anchor in presentation order.
func (l *CommitList) InsertBefore(anchor git.RevisionID, rec CommitRecord) error {
	anchorIdx, ok := l.index[anchor]
	if !ok {
		return fmt.Errorf("commit list: anchor %s not present", anchor.Short())
	}
	pos := slices.Index(l.order, anchorIdx)
	i, err := l.add(rec)
	if err != nil {
		return err
	}
	l.order = slices.Insert(l.order, pos, i)
	return nil
}

// Revisions returns the revisions in presentation order.
func (l *CommitList) Revisions() []git.RevisionID {
	revs := make([]git.RevisionID, len(l.order))
	for i, idx := range l.order {
		revs[i] = l.records[idx].Revision
	}
	return revs
}

// Records returns copies of the records in presentation order.
func (l *CommitList) Records() []CommitRecord {
	out := make([]CommitRecord, len(l.order))
	for i, idx := range l.order {
		out[i] = l.records[idx]
	}
	return out
}

// Merges returns the merge commits in presentation order.
func (l *CommitList) Merges() []git.RevisionID {
	var merges []git.RevisionID
	for _, idx := range l.order {
		if l.records[idx].IsMerge() {
			merges = append(merges, l.records[idx].Revision)
		}
	}
	return merges
}
