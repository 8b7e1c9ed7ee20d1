package git

import (
	"strings"
	"time"
)

// RevisionID is a full hexadecimal object name as printed by git.
type RevisionID string

// ZeroRevision is the sentinel git hooks pass for a reference that did not exist
// before (or no longer exists after) an update.
const ZeroRevision RevisionID = "0000000000000000000000000000000000000000"

// shortLength matches git's default abbreviation.
const shortLength = 7

// IsZero reports whether r is the zero sentinel. Any all-zero string counts, so
// SHA-256 repositories (64 zeros) are handled too.
func (r RevisionID) IsZero() bool {
	if r == "" {
		return true
	}
	return strings.Trim(string(r), "0") == ""
}

// Short returns the abbreviated form used in summaries.
func (r RevisionID) Short() string {
	if len(r) <= shortLength {
		return string(r)
	}
	return string(r[:shortLength])
}

func (r RevisionID) String() string {
	return string(r)
}

// ObjectType is the type a revision resolves to.
type ObjectType string

const (
	ObjectCommit ObjectType = "commit"
	ObjectTag    ObjectType = "tag"
	ObjectTree   ObjectType = "tree"
	ObjectBlob   ObjectType = "blob"
)

// ParseObjectType converts the output of `git cat-file -t`.
func ParseObjectType(s string) (ObjectType, bool) {
	switch t := ObjectType(strings.TrimSpace(s)); t {
	case ObjectCommit, ObjectTag, ObjectTree, ObjectBlob:
		return t, true
	default:
		return "", false
	}
}

// MetadataField selects one piece of commit metadata.
type MetadataField int

const (
	FieldAuthorName MetadataField = iota
	FieldAuthorEmail
	FieldAuthorDate
	FieldCommitterName
	FieldCommitterEmail
	FieldCommitterDate
	FieldSubject
	FieldBody
)

// AllMetadataFields lists every field in declaration order.
var AllMetadataFields = []MetadataField{
	FieldAuthorName,
	FieldAuthorEmail,
	FieldAuthorDate,
	FieldCommitterName,
	FieldCommitterEmail,
	FieldCommitterDate,
	FieldSubject,
	FieldBody,
}

// String returns a string representation of the field.
func (f MetadataField) String() string {
	switch f {
	case FieldAuthorName:
		return "author-name"
	case FieldAuthorEmail:
		return "author-email"
	case FieldAuthorDate:
		return "author-date"
	case FieldCommitterName:
		return "committer-name"
	case FieldCommitterEmail:
		return "committer-email"
	case FieldCommitterDate:
		return "committer-date"
	case FieldSubject:
		return "subject"
	case FieldBody:
		return "body"
	default:
		return "unknown"
	}
}

// Metadata holds the raw per-field text returned by an oracle.
type Metadata map[MetadataField]string

// AuthorInfo represents commit author information.
type AuthorInfo struct {
	Name  string
	Email string
}

// ContributorKey returns a normalized identifier for grouping contributors.
func (a AuthorInfo) ContributorKey() string {
	return strings.ToLower(a.Email)
}

// Author returns the author fields.
func (m Metadata) Author() AuthorInfo {
	return AuthorInfo{Name: m[FieldAuthorName], Email: m[FieldAuthorEmail]}
}

// AuthorDate parses the author date (strict ISO 8601 as printed by %aI).
// A missing date yields the zero time.
func (m Metadata) AuthorDate() (time.Time, error) {
	raw := strings.TrimSpace(m[FieldAuthorDate])
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// Subject returns the first line of the commit message.
func (m Metadata) Subject() string {
	return m[FieldSubject]
}

// Body returns the commit message without its subject line.
func (m Metadata) Body() string {
	return m[FieldBody]
}

// splitMessage splits a full commit message into subject and body the way
// git's %s and %b placeholders do.
func splitMessage(message string) (subject, body string) {
	message = strings.TrimLeft(message, "\n")
	head, rest, _ := strings.Cut(message, "\n\n")
	subject = strings.Join(strings.Fields(strings.ReplaceAll(head, "\n", " ")), " ")
	return subject, strings.TrimRight(rest, "\n")
}
