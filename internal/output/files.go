package output

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/masmgr/pushnotify/internal/diff"
)

// FileChangeReport holds the parsed file changes of a single raw diff.
type FileChangeReport struct {
	Source  string // File name or revision the diff came from
	Files   []diff.FileChange
	Skipped []*diff.ParseError
}

// JSONFileChangeReport is the JSON output structure for a parsed diff.
type JSONFileChangeReport struct {
	Source  string     `json:"source"`
	Files   []JSONFile `json:"files"`
	Skipped []string   `json:"skipped,omitempty"`
}

// WriteFileChanges writes a parsed diff. JSON and CI formats produce JSON
// (with hunks when options.Explain is set), CSV produces one row per file and
// every other format a console table.
func WriteFileChanges(report *FileChangeReport, options OutputOptions) (err error) {
	if options.Format == FormatJSON || options.Format == FormatCI {
		out := JSONFileChangeReport{Source: report.Source, Files: make([]JSONFile, 0, len(report.Files))}
		for _, f := range report.Files {
			out.Files = append(out.Files, newJSONFile(f, options.Explain))
		}
		for _, s := range report.Skipped {
			out.Skipped = append(out.Skipped, s.Error())
		}
		return writeJSON(out, options.OutputPath)
	}

	w, closer, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(closer, err) }()

	if options.Format == FormatCSV {
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"Status", "Path", "OldPath", "Similarity", "Binary", "Hunks", "LinesAdded", "LinesDeleted"}); err != nil {
			return err
		}
		for _, f := range report.Files {
			row := []string{
				f.Status.String(),
				f.Path(),
				f.OldPath,
				strconv.Itoa(f.Similarity),
				strconv.FormatBool(f.Binary),
				strconv.Itoa(len(f.Hunks)),
				strconv.Itoa(f.LinesAdded),
				strconv.Itoa(f.LinesDeleted),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	}

	color.New(color.FgGreen).Fprintf(w, "Diff of %s\n", report.Source)
	fmt.Fprintf(w, "Files: %d\n\n", len(report.Files))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "St\tPath\tHunks\t+\t-\tMode")
	for _, f := range report.Files {
		mode := ""
		if f.ModeChanged() {
			mode = fmt.Sprintf("%s -> %s", f.OldMode, f.NewMode)
		}
		path := filePathLabel(f.OldPath, f.NewPath)
		if f.Binary {
			path += " (binary)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", f.Status.Letter(), path, len(f.Hunks), f.LinesAdded, f.LinesDeleted, mode)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, s := range report.Skipped {
		fmt.Fprintln(w, color.YellowString("warning: %v", s))
	}
	return nil
}
