package output

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCIPushWriter_Write(t *testing.T) {
	tmpFile := t.TempDir() + "/ci_output.ndjson"
	options := OutputOptions{
		Format:     FormatCI,
		OutputPath: tmpFile,
	}

	writer := &CIPushWriter{}
	if err := writer.Write(testReport(), options); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := readTestFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// 1 summary + 3 refs + 2 commits of main
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d: %s", len(lines), string(data))
	}

	var summary CISummary
	if err := json.Unmarshal([]byte(lines[0]), &summary); err != nil {
		t.Fatalf("Failed to parse summary: %v", err)
	}
	if summary.Type != "summary" {
		t.Errorf("expected type 'summary', got %q", summary.Type)
	}
	if summary.TotalRefs != 3 || summary.Suppressed != 1 || summary.TotalCommits != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	wantTypes := []string{"ref", "commit", "commit", "ref", "ref"}
	for i, want := range wantTypes {
		var entry struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(lines[i+1]), &entry); err != nil {
			t.Fatalf("Failed to parse line %d: %v", i+1, err)
		}
		if entry.Type != want {
			t.Errorf("line %d: type = %q, want %q", i+1, entry.Type, want)
		}
	}

	var ref CIRefEntry
	if err := json.Unmarshal([]byte(lines[1]), &ref); err != nil {
		t.Fatalf("Failed to parse ref entry: %v", err)
	}
	if ref.Ref != "refs/heads/main" || ref.Update != "fast-forward" || ref.Kind != "branch" || ref.Commits != 2 {
		t.Errorf("unexpected ref entry: %+v", ref)
	}

	var commit CICommitEntry
	if err := json.Unmarshal([]byte(lines[3]), &commit); err != nil {
		t.Fatalf("Failed to parse commit entry: %v", err)
	}
	if commit.Subject != "Fix tokenizer" || len(commit.MergeStatus) != 1 {
		t.Errorf("unexpected commit entry: %+v", commit)
	}
	if commit.Author != "Alice <alice@example.com>" {
		t.Errorf("author = %q", commit.Author)
	}

	var suppressed CIRefEntry
	if err := json.Unmarshal([]byte(lines[5]), &suppressed); err != nil {
		t.Fatalf("Failed to parse suppressed entry: %v", err)
	}
	if !suppressed.Suppressed || suppressed.Kind != "" {
		t.Errorf("expected suppressed entry without kind, got %+v", suppressed)
	}
}

func TestCIPushWriter_TopOption(t *testing.T) {
	tmpFile := t.TempDir() + "/ci_top.ndjson"
	options := OutputOptions{Format: FormatCI, OutputPath: tmpFile, Top: 1}

	writer := &CIPushWriter{}
	if err := writer.Write(testReport(), options); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := readTestFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines with top=1, got %d", len(lines))
	}

	// The ref entry still reports the full commit count.
	var ref CIRefEntry
	if err := json.Unmarshal([]byte(lines[1]), &ref); err != nil {
		t.Fatalf("Failed to parse ref entry: %v", err)
	}
	if ref.Commits != 2 {
		t.Errorf("ref commits = %d, want 2", ref.Commits)
	}
}
