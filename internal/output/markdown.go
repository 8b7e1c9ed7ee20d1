package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/masmgr/pushnotify/internal/classify"
	"github.com/masmgr/pushnotify/internal/notify"
)

// MarkdownPushWriter writes push reports as Markdown.
type MarkdownPushWriter struct{}

// Write outputs the push report as Markdown.
func (w *MarkdownPushWriter) Write(report *PushReport, options OutputOptions) (err error) {
	out, closer, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(closer, err) }()

	commits, added, deleted, suppressed := report.Totals()
	fmt.Fprintln(out, "# Push Notification")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "**Repository:** %s\n\n", report.RepoPath)
	fmt.Fprintf(out, "**References:** %d (%d suppressed) | **Commits:** %d | **Lines:** +%d -%d\n",
		len(report.Results), suppressed, commits, added, deleted)

	for _, res := range report.Results {
		fmt.Fprintln(out)
		writeMarkdownResult(out, res, options)
	}
	return nil
}

func writeMarkdownResult(out io.Writer, res *notify.PushResult, options OutputOptions) {
	fmt.Fprintf(out, "## %s %s\n\n", getChangeEmoji(res), escapeMarkdown(headline(res)))
	if res.Suppressed {
		return
	}
	if len(res.Summary) > 0 {
		fmt.Fprintln(out, "```")
		for _, line := range res.Summary {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, "```")
		fmt.Fprintln(out)
	}
	if len(res.Commits) == 0 {
		return
	}

	fmt.Fprintln(out, "| Rev | Author | Date | Files | + | - | Subject |")
	fmt.Fprintln(out, "|-----|--------|------|-------|---|---|---------|")
	commits := limitTop(res.Commits, options.Top)
	for i, c := range commits {
		stats := commitStats(res, i)
		subject := escapeMarkdown(c.Subject)
		for _, status := range c.MergeStatus {
			subject += "<br>_" + escapeMarkdown(status) + "_"
		}
		fmt.Fprintf(out, "| `%s` | %s | %s | %d | %d | %d | %s |\n",
			c.Revision.Short(), escapeMarkdown(c.Author), c.Date.Format(reportDateTimeLayout),
			stats.FileCount, stats.LinesAdded, stats.LinesDeleted, subject)
	}
	if hidden := len(res.Commits) - len(commits); hidden > 0 {
		fmt.Fprintf(out, "\n_... and %d more commit(s)_\n", hidden)
	}

	if options.Explain {
		for _, c := range commits {
			if len(c.Files) == 0 {
				continue
			}
			fmt.Fprintf(out, "\n### `%s` %s\n\n", c.Revision.Short(), escapeMarkdown(c.Subject))
			for _, f := range c.Files {
				fmt.Fprintf(out, "- **%s** `%s` (+%d -%d)\n", f.Status.Letter(), filePathLabel(f.OldPath, f.NewPath), f.LinesAdded, f.LinesDeleted)
			}
		}
	}
}

func getChangeEmoji(res *notify.PushResult) string {
	switch {
	case res.Suppressed:
		return "⚪"
	case res.ChangeKind == classify.Create:
		return "🟢"
	case res.ChangeKind == classify.Delete:
		return "🔴"
	default:
		return "🟡"
	}
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
