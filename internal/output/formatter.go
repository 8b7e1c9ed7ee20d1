package output

import (
	"time"

	"github.com/masmgr/pushnotify/internal/notify"
)

// Compile-time interface conformance checks.
var (
	_ PushReportWriter = (*ConsolePushWriter)(nil)
	_ PushReportWriter = (*JSONPushWriter)(nil)
	_ PushReportWriter = (*CSVPushWriter)(nil)
	_ PushReportWriter = (*MarkdownPushWriter)(nil)
	_ PushReportWriter = (*CIPushWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// ParseOutputFormat validates a format name. The empty string selects the console.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch f := OutputFormat(s); f {
	case "":
		return FormatConsole, true
	case FormatConsole, FormatJSON, FormatCSV, FormatMarkdown, FormatCI:
		return f, true
	default:
		return "", false
	}
}

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	Top        int    // Maximum commits listed per reference; 0 lists all
	OutputPath string // File to write; a .gz or .zst suffix compresses it
	Explain    bool   // Include per-file changes (and hunks, for JSON)
}

// PushReport holds the results of one push: every reference change in the
// order the hook received them.
type PushReport struct {
	RepoPath    string
	GeneratedAt time.Time
	Results     []*notify.PushResult
}

// Totals sums commit and line counts over the non-suppressed results.
func (r *PushReport) Totals() (commits, added, deleted, suppressed int) {
	for _, res := range r.Results {
		if res.Suppressed {
			suppressed++
			continue
		}
		commits += len(res.Commits)
		added += res.Stats.LinesAdded
		deleted += res.Stats.LinesDeleted
	}
	return commits, added, deleted, suppressed
}

// PushReportWriter writes push reports.
type PushReportWriter interface {
	Write(report *PushReport, options OutputOptions) error
}

// NewPushReportWriter creates a report writer for the specified format.
func NewPushReportWriter(format OutputFormat) PushReportWriter {
	switch format {
	case FormatJSON:
		return &JSONPushWriter{}
	case FormatCSV:
		return &CSVPushWriter{}
	case FormatMarkdown:
		return &MarkdownPushWriter{}
	case FormatCI:
		return &CIPushWriter{}
	default:
		return &ConsolePushWriter{}
	}
}
