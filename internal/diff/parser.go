package diff

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"

	"github.com/masmgr/pushnotify/internal/git"
)

var (
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@ ?(.*)$`)
	indexRe      = regexp.MustCompile(`^[0-9a-f]+\.\.[0-9a-f]+(?: ([0-7]{6}))?$`)
	percentRe    = regexp.MustCompile(`^(\d{1,3})%$`)
)

// Parser converts raw unified diff text into FileChange records.
type Parser struct {
	// SkipMalformed drops a file whose diff violates the grammar instead of
	// failing the whole parse. Skipped files are reported in Result.Skipped.
	SkipMalformed bool
	Logger        *slog.Logger
}

// Result is the outcome of Parser.Parse.
type Result struct {
	Files   []FileChange
	Skipped []*ParseError
}

// Parse parses raw with a strict parser.
func Parse(raw string, rev git.RevisionID) ([]FileChange, error) {
	res, err := (&Parser{}).Parse(raw, rev)
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// Parse splits raw into per-file segments at each `diff --git` line and parses
// every segment. The returned error is always a *ParseError.
func (p *Parser) Parse(raw string, rev git.RevisionID) (*Result, error) {
	lines := strings.Split(raw, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	res := &Result{}
	start := 0
	for start < len(lines) {
		end := start + 1
		for end < len(lines) && !strings.HasPrefix(lines[end], "diff --git ") {
			end++
		}

		var (
			fc   FileChange
			perr *ParseError
		)
		if strings.HasPrefix(lines[start], "diff --git ") {
			fc, perr = parseFile(lines[start:end], start)
		} else {
			perr = parsePreamble(lines[start:end], start)
		}
		if perr != nil {
			perr.Revision = rev
			if !p.SkipMalformed {
				return nil, perr
			}
			p.logger().Warn("skipping malformed file diff",
				slog.String("rev", rev.Short()),
				slog.String("path", perr.Path),
				slog.Int("line", perr.Line),
				slog.String("error", perr.Err.Error()))
			res.Skipped = append(res.Skipped, perr)
		} else if strings.HasPrefix(lines[start], "diff --git ") {
			res.Files = append(res.Files, fc)
		}
		start = end
	}
	return res, nil
}

func (p *Parser) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// parsePreamble accepts blank lines ahead of the first file diff only.
func parsePreamble(lines []string, offset int) *ParseError {
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			return &ParseError{Line: offset + i + 1, Text: line, Err: ErrUnrecognizedDiffHeader}
		}
	}
	return nil
}

type parseState int

const (
	awaitingHeaders parseState = iota
	inHunk
)

// fileParser holds the state of one file segment.
type fileParser struct {
	offset int
	fc     FileChange
	state  parseState

	renamed     bool
	copied      bool
	similarity  bool
	newFile     bool
	deletedFile bool
	oldNull     bool
	newNull     bool

	hunk           *Hunk
	oldNo, newNo   int
	remOld, remNew int
}

func parseFile(lines []string, offset int) (FileChange, *ParseError) {
	fp := &fileParser{offset: offset}
	for i, line := range lines {
		if err := fp.consume(line); err != nil {
			return FileChange{}, fp.errorAt(i, line, err)
		}
	}
	if fp.state == inHunk && (fp.remOld > 0 || fp.remNew > 0) {
		last := len(lines) - 1
		return FileChange{}, fp.errorAt(last, lines[last],
			fmt.Errorf("%w: hunk truncated, %d old and %d new lines missing", ErrMalformedHunk, fp.remOld, fp.remNew))
	}
	fp.closeHunk()
	fp.resolveStatus()
	return fp.fc, nil
}

func (fp *fileParser) errorAt(i int, line string, err error) *ParseError {
	path := fp.fc.NewPath
	if path == "" {
		path = fp.fc.OldPath
	}
	return &ParseError{Path: path, Line: fp.offset + i + 1, Text: line, Err: err}
}

func (fp *fileParser) consume(line string) error {
	if fp.state == inHunk {
		if fp.remOld > 0 || fp.remNew > 0 || strings.HasPrefix(line, `\`) {
			return fp.bodyLine(line)
		}
		if !strings.HasPrefix(line, "@@") {
			return fmt.Errorf("%w: line beyond the counts of the hunk header", ErrMalformedHunk)
		}
		return fp.startHunk(line)
	}
	if strings.HasPrefix(line, "@@") {
		return fp.startHunk(line)
	}
	return fp.header(tokenizeHeader(line))
}

func (fp *fileParser) header(h headerLine) error {
	switch h.kind {
	case headerDiffGit:
		oldPath, newPath, err := parseGitHeaderPaths(h.value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnrecognizedDiffHeader, err)
		}
		fp.fc.OldPath, fp.fc.NewPath = oldPath, newPath
	case headerOldMode:
		return fp.mode(h.value, &fp.fc.OldMode)
	case headerNewMode:
		return fp.mode(h.value, &fp.fc.NewMode)
	case headerDeletedFileMode:
		fp.deletedFile = true
		return fp.mode(h.value, &fp.fc.OldMode)
	case headerNewFileMode:
		fp.newFile = true
		return fp.mode(h.value, &fp.fc.NewMode)
	case headerRenameFrom, headerCopyFrom:
		path, err := unquotePath(h.value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnrecognizedDiffHeader, err)
		}
		fp.fc.OldPath = path
		fp.markRenameOrCopy(h.kind)
	case headerRenameTo, headerCopyTo:
		path, err := unquotePath(h.value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnrecognizedDiffHeader, err)
		}
		fp.fc.NewPath = path
		fp.markRenameOrCopy(h.kind)
	case headerSimilarity:
		n, err := percent(h.value)
		if err != nil {
			return err
		}
		fp.fc.Similarity = n
		fp.similarity = true
	case headerDissimilarity:
		if _, err := percent(h.value); err != nil {
			return err
		}
	case headerIndex:
		m := indexRe.FindStringSubmatch(h.value)
		if m == nil {
			return fmt.Errorf("%w: bad index line", ErrUnrecognizedDiffHeader)
		}
		if m[1] != "" && fp.fc.OldMode == filemode.Empty && fp.fc.NewMode == filemode.Empty {
			mode, err := git.ParseFileMode(m[1])
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnrecognizedDiffHeader, err)
			}
			fp.fc.OldMode, fp.fc.NewMode = mode, mode
		}
	case headerOldFile:
		path, ok, err := parseSidePath(h.value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnrecognizedDiffHeader, err)
		}
		if !ok {
			fp.oldNull = true
		} else if fp.fc.OldPath == "" {
			fp.fc.OldPath = path
		}
	case headerNewFile:
		path, ok, err := parseSidePath(h.value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnrecognizedDiffHeader, err)
		}
		if !ok {
			fp.newNull = true
		} else if fp.fc.NewPath == "" {
			fp.fc.NewPath = path
		}
	case headerBinary:
		fp.fc.Binary = true
	default:
		return ErrUnrecognizedDiffHeader
	}
	return nil
}

func (fp *fileParser) markRenameOrCopy(kind headerKind) {
	if kind == headerCopyFrom || kind == headerCopyTo {
		fp.copied = true
	} else {
		fp.renamed = true
	}
}

func (fp *fileParser) mode(value string, dst *filemode.FileMode) error {
	mode, err := git.ParseFileMode(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnrecognizedDiffHeader, err)
	}
	*dst = mode
	return nil
}

func percent(value string) (int, error) {
	m := percentRe.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, fmt.Errorf("%w: bad percentage %q", ErrUnrecognizedDiffHeader, value)
	}
	n, _ := strconv.Atoi(m[1])
	if n > 100 {
		return 0, fmt.Errorf("%w: percentage %d out of range", ErrUnrecognizedDiffHeader, n)
	}
	return n, nil
}

func (fp *fileParser) startHunk(line string) error {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("%w: bad hunk header", ErrMalformedHunk)
	}
	oldStart, _ := strconv.Atoi(m[1])
	oldLines := count(m[2])
	newStart, _ := strconv.Atoi(m[3])
	newLines := count(m[4])
	if oldLines == 0 && newLines == 0 {
		return fmt.Errorf("%w: empty hunk", ErrMalformedHunk)
	}

	fp.closeHunk()
	fp.hunk = &Hunk{
		OldStart: oldStart,
		OldLines: oldLines,
		NewStart: newStart,
		NewLines: newLines,
		Section:  m[5],
	}
	fp.oldNo, fp.newNo = oldStart, newStart
	fp.remOld, fp.remNew = oldLines, newLines
	fp.state = inHunk
	return nil
}

// count parses an optional hunk range length, which defaults to 1.
func count(s string) int {
	if s == "" {
		return 1
	}
	n, _ := strconv.Atoi(s)
	return n
}

func (fp *fileParser) closeHunk() {
	if fp.hunk != nil {
		fp.fc.Hunks = append(fp.fc.Hunks, *fp.hunk)
		fp.hunk = nil
	}
}

func (fp *fileParser) bodyLine(line string) error {
	h := fp.hunk
	if strings.HasPrefix(line, `\`) {
		if len(h.Changes) == 0 {
			return fmt.Errorf("%w: end-of-file marker before any line", ErrMalformedHunk)
		}
		h.Changes[len(h.Changes)-1].NoNewlineAtEOF = true
		return nil
	}

	kind := LineContext
	text := line
	if line != "" {
		switch line[0] {
		case ' ':
		case '+':
			kind = LineAdded
		case '-':
			kind = LineDeleted
		default:
			return fmt.Errorf("%w: unexpected line prefix %q", ErrMalformedHunk, line[:1])
		}
		text = line[1:]
	}

	change := LineChange{Kind: kind, Text: text}
	switch kind {
	case LineAdded:
		if fp.remNew == 0 {
			return fmt.Errorf("%w: more added lines than declared", ErrMalformedHunk)
		}
		change.NewLine = fp.newNo
		fp.newNo++
		fp.remNew--
		fp.fc.LinesAdded++
	case LineDeleted:
		if fp.remOld == 0 {
			return fmt.Errorf("%w: more deleted lines than declared", ErrMalformedHunk)
		}
		change.OldLine = fp.oldNo
		fp.oldNo++
		fp.remOld--
		fp.fc.LinesDeleted++
	default:
		if fp.remOld == 0 || fp.remNew == 0 {
			return fmt.Errorf("%w: more context lines than declared", ErrMalformedHunk)
		}
		change.OldLine, change.NewLine = fp.oldNo, fp.newNo
		fp.oldNo++
		fp.newNo++
		fp.remOld--
		fp.remNew--
	}
	h.Changes = append(h.Changes, change)
	return nil
}

// resolveStatus applies the status precedence: rename/copy markers, then
// explicit file mode markers, then /dev/null sides, then a change of mode
// class. A rename or copy without a similarity header and without content
// changes is 100% similar.
func (fp *fileParser) resolveStatus() {
	fc := &fp.fc
	switch {
	case fp.renamed:
		fc.Status = StatusRenamed
	case fp.copied:
		fc.Status = StatusCopied
	case fp.newFile || fp.oldNull:
		fc.Status = StatusAdded
	case fp.deletedFile || fp.newNull:
		fc.Status = StatusDeleted
	case git.IsTypeChange(fc.OldMode, fc.NewMode):
		fc.Status = StatusTypeChanged
	default:
		fc.Status = StatusModified
	}

	switch fc.Status {
	case StatusRenamed, StatusCopied:
		if !fp.similarity && len(fc.Hunks) == 0 && !fc.Binary {
			fc.Similarity = 100
		}
	case StatusAdded:
		fc.OldPath = ""
		fc.OldMode = filemode.Empty
	case StatusDeleted:
		fc.NewPath = ""
		fc.NewMode = filemode.Empty
	}
}
