package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/masmgr/pushnotify/internal/classify"
	"github.com/masmgr/pushnotify/internal/notify"
	"github.com/masmgr/pushnotify/internal/push"
)

// ConsolePushWriter writes push reports for a terminal.
type ConsolePushWriter struct{}

// Write outputs the push report to the console.
func (w *ConsolePushWriter) Write(report *PushReport, options OutputOptions) (err error) {
	out, closer, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(closer, err) }()

	header := color.New(color.FgGreen, color.Bold)
	header.Fprintln(out, "Push Notification")
	fmt.Fprintf(out, "Repository: %s\n", report.RepoPath)
	commits, added, deleted, suppressed := report.Totals()
	fmt.Fprintf(out, "References: %d (%d suppressed), commits: %d, lines: +%d -%d\n",
		len(report.Results), suppressed, commits, added, deleted)

	for _, res := range report.Results {
		fmt.Fprintln(out)
		if err := writeConsoleResult(out, res, options); err != nil {
			return err
		}
	}
	return nil
}

func writeConsoleResult(out io.Writer, res *notify.PushResult, options OutputOptions) error {
	changeColor(res).Fprintln(out, headline(res))
	if res.Suppressed {
		return nil
	}
	for _, line := range res.Summary {
		fmt.Fprintln(out, line)
	}
	if len(res.Commits) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Rev\tAuthor\tDate\tFiles\t+\t-\tSubject")
	commits := limitTop(res.Commits, options.Top)
	for i, c := range commits {
		stats := commitStats(res, i)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			c.Revision.Short(),
			c.Author,
			c.Date.Format(reportDateTimeLayout),
			stats.FileCount,
			stats.LinesAdded,
			stats.LinesDeleted,
			truncateMessage(c.Subject, subjectWidth),
		)
		for _, status := range c.MergeStatus {
			fmt.Fprintf(tw, "\t\t\t\t\t\t  %s\n", color.CyanString(status))
		}
		if options.Explain {
			for _, f := range c.Files {
				fmt.Fprintf(tw, "\t\t\t\t%d\t%d\t  %s %s\n", f.LinesAdded, f.LinesDeleted, f.Status.Letter(), filePathLabel(f.OldPath, f.NewPath))
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if hidden := len(res.Commits) - len(commits); hidden > 0 {
		fmt.Fprintf(out, "... and %d more commit(s)\n", hidden)
	}
	for _, skipped := range res.SkippedDiffs {
		fmt.Fprintln(out, color.YellowString("warning: %v", skipped))
	}
	return nil
}

// filePathLabel renders "old -> new" for moves and the single path otherwise.
func filePathLabel(oldPath, newPath string) string {
	switch {
	case newPath == "":
		return oldPath
	case oldPath == "" || oldPath == newPath:
		return newPath
	default:
		return oldPath + " -> " + newPath
	}
}

func changeColor(res *notify.PushResult) *color.Color {
	if res.Suppressed {
		return color.New(color.Faint)
	}
	switch res.ChangeKind {
	case classify.Create:
		return color.New(color.FgGreen)
	case classify.Delete:
		return color.New(color.FgRed)
	}
	if res.ReferenceKind == classify.Branch && (res.UpdateKind == push.Rewind || res.UpdateKind == push.RewindRebuild) {
		return color.New(color.FgYellow)
	}
	return color.New(color.FgBlue)
}
