package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/git"
	"github.com/masmgr/pushnotify/internal/notify"
)

// JSONPushWriter writes push reports as JSON.
type JSONPushWriter struct{}

// JSONPushReport is the JSON output structure for a push.
type JSONPushReport struct {
	RepoPath     string           `json:"repo"`
	GeneratedAt  string           `json:"generatedAt"`
	TotalRefs    int              `json:"totalRefs"`
	TotalCommits int              `json:"totalCommits"`
	Results      []JSONPushResult `json:"results"`
}

// JSONPushResult is the JSON output structure for one reference change.
type JSONPushResult struct {
	Ref          string       `json:"ref"`
	ShortName    string       `json:"shortName"`
	Old          string       `json:"old"`
	New          string       `json:"new"`
	Change       string       `json:"change"`
	Kind         string       `json:"kind,omitempty"`
	Update       string       `json:"update,omitempty"`
	Suppressed   bool         `json:"suppressed"`
	Summary      []string     `json:"summary,omitempty"`
	Stats        *JSONStats   `json:"stats,omitempty"`
	Commits      []JSONCommit `json:"commits,omitempty"`
	SkippedDiffs []string     `json:"skippedDiffs,omitempty"`
}

// JSONStats is the diffstat of one reference change.
type JSONStats struct {
	Commits      int `json:"commits"`
	Files        int `json:"files"`
	LinesAdded   int `json:"linesAdded"`
	LinesDeleted int `json:"linesDeleted"`
	Contributors int `json:"contributors"`
}

// JSONCommit is the JSON output structure for a single commit.
type JSONCommit struct {
	Revision     string     `json:"revision"`
	Parents      []string   `json:"parents"`
	Author       string     `json:"author"`
	AuthorEmail  string     `json:"authorEmail"`
	Date         string     `json:"date"`
	Subject      string     `json:"subject"`
	Message      string     `json:"message,omitempty"`
	MergeStatus  []string   `json:"mergeStatus,omitempty"`
	LinesAdded   int        `json:"linesAdded"`
	LinesDeleted int        `json:"linesDeleted"`
	Spread       float64    `json:"spread"`
	Files        []JSONFile `json:"files,omitempty"`
}

// JSONFile is the JSON output structure for a single file change.
type JSONFile struct {
	Status       string     `json:"status"`
	Path         string     `json:"path"`
	OldPath      string     `json:"oldPath,omitempty"`
	Similarity   int        `json:"similarity,omitempty"`
	OldMode      string     `json:"oldMode,omitempty"`
	NewMode      string     `json:"newMode,omitempty"`
	Binary       bool       `json:"binary,omitempty"`
	LinesAdded   int        `json:"linesAdded"`
	LinesDeleted int        `json:"linesDeleted"`
	Hunks        []JSONHunk `json:"hunks,omitempty"`
}

// JSONHunk is a hunk with its body lines in unified form.
type JSONHunk struct {
	OldStart int      `json:"oldStart"`
	OldLines int      `json:"oldLines"`
	NewStart int      `json:"newStart"`
	NewLines int      `json:"newLines"`
	Section  string   `json:"section,omitempty"`
	Lines    []string `json:"lines"`
}

// Write outputs the push report as JSON.
func (w *JSONPushWriter) Write(report *PushReport, options OutputOptions) error {
	results := make([]JSONPushResult, len(report.Results))
	for i, res := range report.Results {
		results[i] = newJSONPushResult(res, options)
	}
	commits, _, _, _ := report.Totals()

	jsonReport := JSONPushReport{
		RepoPath:     report.RepoPath,
		GeneratedAt:  report.GeneratedAt.Format(time.RFC3339),
		TotalRefs:    len(report.Results),
		TotalCommits: commits,
		Results:      results,
	}
	return writeJSON(jsonReport, options.OutputPath)
}

func newJSONPushResult(res *notify.PushResult, options OutputOptions) JSONPushResult {
	out := JSONPushResult{
		Ref:        res.RefName,
		ShortName:  res.ShortName,
		Old:        res.Old.String(),
		New:        res.New.String(),
		Change:     res.ChangeKind.String(),
		Update:     updateKind(res),
		Suppressed: res.Suppressed,
	}
	if res.Suppressed {
		return out
	}
	out.Kind = res.ReferenceKind.String()
	out.Summary = res.Summary
	out.Stats = &JSONStats{
		Commits:      res.Stats.Commits,
		Files:        res.Stats.Files,
		LinesAdded:   res.Stats.LinesAdded,
		LinesDeleted: res.Stats.LinesDeleted,
		Contributors: res.Stats.Contributors,
	}

	for i, c := range limitTop(res.Commits, options.Top) {
		stats := commitStats(res, i)
		jc := JSONCommit{
			Revision:     c.Revision.String(),
			Parents:      revisionStrings(c.Parents),
			Author:       c.Author,
			AuthorEmail:  c.AuthorEmail,
			Date:         c.Date.Format(time.RFC3339),
			Subject:      c.Subject,
			MergeStatus:  c.MergeStatus,
			LinesAdded:   stats.LinesAdded,
			LinesDeleted: stats.LinesDeleted,
			Spread:       stats.Spread,
		}
		if options.Explain {
			jc.Message = c.Message
		}
		for _, f := range c.Files {
			jc.Files = append(jc.Files, newJSONFile(f, options.Explain))
		}
		out.Commits = append(out.Commits, jc)
	}
	for _, skipped := range res.SkippedDiffs {
		out.SkippedDiffs = append(out.SkippedDiffs, skipped.Error())
	}
	return out
}

func newJSONFile(f diff.FileChange, withHunks bool) JSONFile {
	jf := JSONFile{
		Status:       f.Status.String(),
		Path:         f.Path(),
		Similarity:   f.Similarity,
		Binary:       f.Binary,
		LinesAdded:   f.LinesAdded,
		LinesDeleted: f.LinesDeleted,
	}
	if f.OldPath != "" && f.OldPath != f.Path() {
		jf.OldPath = f.OldPath
	}
	if f.ModeChanged() {
		jf.OldMode = f.OldMode.String()
		jf.NewMode = f.NewMode.String()
	}
	if !withHunks {
		return jf
	}
	for _, h := range f.Hunks {
		jh := JSONHunk{
			OldStart: h.OldStart,
			OldLines: h.OldLines,
			NewStart: h.NewStart,
			NewLines: h.NewLines,
			Section:  h.Section,
			Lines:    make([]string, 0, len(h.Changes)),
		}
		for _, lc := range h.Changes {
			jh.Lines = append(jh.Lines, unifiedPrefix(lc.Kind)+lc.Text)
		}
		jf.Hunks = append(jf.Hunks, jh)
	}
	return jf
}

func unifiedPrefix(k diff.LineKind) string {
	switch k {
	case diff.LineAdded:
		return "+"
	case diff.LineDeleted:
		return "-"
	default:
		return " "
	}
}

func revisionStrings(revs []git.RevisionID) []string {
	out := make([]string, len(revs))
	for i, r := range revs {
		out[i] = r.String()
	}
	return out
}

func writeJSON(data interface{}, outputPath string) (err error) {
	out, closer, err := openOutputWriter(outputPath)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(closer, err) }()

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
