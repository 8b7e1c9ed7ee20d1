package output

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/notify"
)

// CSVPushWriter writes push reports as CSV, one row per commit. A reference
// change without commits (a deletion, a tag, a rewind) gets a single row with
// empty commit columns.
type CSVPushWriter struct{}

// Write outputs the push report as CSV.
func (w *CSVPushWriter) Write(report *PushReport, options OutputOptions) (err error) {
	out, closer, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(closer, err) }()
	writer := csv.NewWriter(out)

	headers := []string{"Ref", "Change", "Kind", "Update", "Old", "New",
		"Revision", "Author", "AuthorEmail", "Date", "Files", "LinesAdded", "LinesDeleted", "Subject", "MergeStatus"}
	if options.Explain {
		headers = append(headers, "Paths")
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, res := range report.Results {
		for _, row := range csvRows(res, options) {
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvRows(res *notify.PushResult, options OutputOptions) [][]string {
	kind := ""
	if !res.Suppressed {
		kind = res.ReferenceKind.String()
	}
	prefix := []string{
		res.RefName,
		res.ChangeKind.String(),
		kind,
		updateKind(res),
		res.Old.String(),
		res.New.String(),
	}

	commits := limitTop(res.Commits, options.Top)
	if len(commits) == 0 {
		row := append(prefix, make([]string, 9)...)
		if options.Explain {
			row = append(row, "")
		}
		return [][]string{row}
	}

	rows := make([][]string, 0, len(commits))
	for i, c := range commits {
		stats := commitStats(res, i)
		row := append(append([]string(nil), prefix...),
			c.Revision.String(),
			c.Author,
			c.AuthorEmail,
			c.Date.Format(reportDateTimeLayout),
			strconv.Itoa(stats.FileCount),
			strconv.Itoa(stats.LinesAdded),
			strconv.Itoa(stats.LinesDeleted),
			c.Subject,
			strings.Join(c.MergeStatus, "; "),
		)
		if options.Explain {
			row = append(row, joinPaths(c.Files))
		}
		rows = append(rows, row)
	}
	return rows
}

func joinPaths(files []diff.FileChange) string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path()
	}
	return strings.Join(paths, ";")
}
