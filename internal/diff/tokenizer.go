package diff

import (
	"strings"
)

// headerKind tags one extended header line of a file diff.
type headerKind int

const (
	headerUnknown headerKind = iota
	headerDiffGit
	headerOldMode
	headerNewMode
	headerDeletedFileMode
	headerNewFileMode
	headerRenameFrom
	headerRenameTo
	headerCopyFrom
	headerCopyTo
	headerSimilarity
	headerDissimilarity
	headerIndex
	headerOldFile
	headerNewFile
	headerBinary
	headerHunk
)

// headerLine is a tokenized extended header: its kind and the text after the
// keyword.
type headerLine struct {
	kind  headerKind
	value string
}

var headerPrefixes = []struct {
	prefix string
	kind   headerKind
}{
	{"diff --git ", headerDiffGit},
	{"old mode ", headerOldMode},
	{"new mode ", headerNewMode},
	{"deleted file mode ", headerDeletedFileMode},
	{"new file mode ", headerNewFileMode},
	{"rename from ", headerRenameFrom},
	{"rename to ", headerRenameTo},
	{"copy from ", headerCopyFrom},
	{"copy to ", headerCopyTo},
	{"similarity index ", headerSimilarity},
	{"dissimilarity index ", headerDissimilarity},
	{"index ", headerIndex},
	{"--- ", headerOldFile},
	{"+++ ", headerNewFile},
	{"@@ ", headerHunk},
}

// tokenizeHeader classifies a line seen before or between hunks.
func tokenizeHeader(line string) headerLine {
	for _, p := range headerPrefixes {
		if strings.HasPrefix(line, p.prefix) {
			return headerLine{kind: p.kind, value: line[len(p.prefix):]}
		}
	}
	if strings.HasPrefix(line, "Binary files ") && strings.HasSuffix(line, " differ") {
		return headerLine{kind: headerBinary, value: line}
	}
	return headerLine{kind: headerUnknown, value: line}
}
