package push

import (
	"context"

	"github.com/masmgr/pushnotify/internal/git"
)

// Loader builds the record of one revision.
type Loader func(ctx context.Context, rev git.RevisionID) (CommitRecord, error)

// MetadataLoader returns a Loader that fills parents and metadata from o.
// File changes are left empty.
func MetadataLoader(o git.Oracle) Loader {
	return func(ctx context.Context, rev git.RevisionID) (CommitRecord, error) {
		parents, err := o.Parents(ctx, rev)
		if err != nil {
			return CommitRecord{}, err
		}
		md, err := o.Metadata(ctx, rev, git.FieldAuthorName, git.FieldAuthorEmail, git.FieldAuthorDate, git.FieldSubject, git.FieldBody)
		if err != nil {
			return CommitRecord{}, err
		}
		date, err := md.AuthorDate()
		if err != nil {
			return CommitRecord{}, err
		}
		author := md.Author()
		return CommitRecord{
			Revision:    rev,
			Parents:     parents,
			Author:      author.Name,
			AuthorEmail: author.Email,
			Date:        date,
			Subject:     md.Subject(),
			Message:     md.Body(),
		}, nil
	}
}

// LoadList loads a record for each revision, in order.
func LoadList(ctx context.Context, revs []git.RevisionID, load Loader) (*CommitList, error) {
	list := NewCommitList()
	for _, rev := range revs {
		rec, err := load(ctx, rev)
		if err != nil {
			return nil, err
		}
		if err := list.Append(rec); err != nil {
			return nil, err
		}
	}
	return list, nil
}
