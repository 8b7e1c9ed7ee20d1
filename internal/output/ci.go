package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// CIPushWriter writes push reports as NDJSON (one JSON object per line) for CI pipelines.
type CIPushWriter struct{}

// CISummary is the first line of CI output, containing aggregate statistics.
type CISummary struct {
	Type         string `json:"type"`
	TotalRefs    int    `json:"totalRefs"`
	Suppressed   int    `json:"suppressed"`
	TotalCommits int    `json:"totalCommits"`
	LinesAdded   int    `json:"linesAdded"`
	LinesDeleted int    `json:"linesDeleted"`
}

// CIRefEntry represents one reference change in CI output.
type CIRefEntry struct {
	Type       string `json:"type"`
	Ref        string `json:"ref"`
	Old        string `json:"old"`
	New        string `json:"new"`
	Change     string `json:"change"`
	Kind       string `json:"kind,omitempty"`
	Update     string `json:"update,omitempty"`
	Suppressed bool   `json:"suppressed,omitempty"`
	Commits    int    `json:"commits"`
}

// CICommitEntry represents one commit in CI output. Commits follow the
// reference entry they belong to.
type CICommitEntry struct {
	Type         string   `json:"type"`
	Ref          string   `json:"ref"`
	Revision     string   `json:"revision"`
	Author       string   `json:"author"`
	Date         string   `json:"date"`
	Subject      string   `json:"subject"`
	Files        int      `json:"files"`
	LinesAdded   int      `json:"linesAdded"`
	LinesDeleted int      `json:"linesDeleted"`
	MergeStatus  []string `json:"mergeStatus,omitempty"`
}

// Write outputs the push report as NDJSON.
func (w *CIPushWriter) Write(report *PushReport, options OutputOptions) (err error) {
	out, closer, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(closer, err) }()

	commits, added, deleted, suppressed := report.Totals()
	summary := CISummary{
		Type:         "summary",
		TotalRefs:    len(report.Results),
		Suppressed:   suppressed,
		TotalCommits: commits,
		LinesAdded:   added,
		LinesDeleted: deleted,
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	for _, res := range report.Results {
		entry := CIRefEntry{
			Type:       "ref",
			Ref:        res.RefName,
			Old:        res.Old.String(),
			New:        res.New.String(),
			Change:     res.ChangeKind.String(),
			Update:     updateKind(res),
			Suppressed: res.Suppressed,
			Commits:    len(res.Commits),
		}
		if !res.Suppressed {
			entry.Kind = res.ReferenceKind.String()
		}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}

		for i, c := range limitTop(res.Commits, options.Top) {
			stats := commitStats(res, i)
			ce := CICommitEntry{
				Type:         "commit",
				Ref:          res.RefName,
				Revision:     c.Revision.String(),
				Author:       authorLabel(c),
				Date:         c.Date.Format(time.RFC3339),
				Subject:      c.Subject,
				Files:        stats.FileCount,
				LinesAdded:   stats.LinesAdded,
				LinesDeleted: stats.LinesDeleted,
				MergeStatus:  c.MergeStatus,
			}
			if err := writeNDJSONLine(out, ce); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
