package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/masmgr/pushnotify/internal/aggregation"
	"github.com/masmgr/pushnotify/internal/notify"
	"github.com/masmgr/pushnotify/internal/push"
)

const (
	reportDateTimeLayout = "2006-01-02T15:04:05"
	subjectWidth         = 60
)

func limitTop[T any](items []T, top int) []T {
	if top <= 0 || top >= len(items) {
		return items
	}
	return items[:top]
}

// multiCloser closes its members in order and joins their errors.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openOutputWriter opens the report destination. Stdout is used when
// outputPath is empty; a .gz or .zst extension wraps the file in the
// matching compressor. The returned closer is nil for stdout and must be
// closed to flush compressed output.
func openOutputWriter(outputPath string) (io.Writer, io.Closer, error) {
	if outputPath == "" {
		return os.Stdout, nil, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".gz":
		zw := gzip.NewWriter(file)
		return zw, multiCloser{zw, file}, nil
	case ".zst":
		enc, err := zstd.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return enc, multiCloser{enc, file}, nil
	default:
		return file, file, nil
	}
}

// closeOutput closes c (if any) and reports its error unless err is already set.
func closeOutput(c io.Closer, err error) error {
	if c == nil {
		return err
	}
	if cerr := c.Close(); err == nil {
		return cerr
	}
	return err
}

// truncateMessage shortens msg to maxLen runes, ending it with "...".
func truncateMessage(msg string, maxLen int) string {
	if utf8.RuneCountInString(msg) <= maxLen {
		return msg
	}
	return string([]rune(msg)[:maxLen-3]) + "..."
}

// headline describes a result in one line, e.g. "main: update (fast-forward)".
func headline(res *notify.PushResult) string {
	name := res.ShortName
	if name == "" {
		name = res.RefName
	}
	if res.Suppressed {
		return fmt.Sprintf("%s: %s (suppressed)", name, res.ChangeKind)
	}
	line := fmt.Sprintf("%s: %s %s", name, res.ReferenceKind, res.ChangeKind)
	if updateKind(res) != "" {
		line += " (" + updateKind(res) + ")"
	}
	return line
}

// updateKind names the reconstruction kind for branch creations and updates.
func updateKind(res *notify.PushResult) string {
	if res.Suppressed || res.ReferenceKind.IsTag() || res.New.IsZero() {
		return ""
	}
	return res.UpdateKind.String()
}

func authorLabel(c push.CommitRecord) string {
	if c.AuthorEmail == "" {
		return c.Author
	}
	return fmt.Sprintf("%s <%s>", c.Author, c.AuthorEmail)
}

// commitStats returns the precomputed stats of the i-th commit, computing
// them when the result was built without.
func commitStats(res *notify.PushResult, i int) aggregation.CommitStats {
	if i < len(res.CommitStats) && res.CommitStats[i].Revision == res.Commits[i].Revision {
		return res.CommitStats[i]
	}
	return aggregation.Calculate(res.Commits[i])
}
