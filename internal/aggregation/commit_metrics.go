package aggregation

import (
	"path"
	"strings"
	"time"

	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/git"
	"github.com/masmgr/pushnotify/internal/push"
)

// CommitStats holds the diffstat of a single commit.
type CommitStats struct {
	Revision       git.RevisionID
	When           time.Time
	Author         git.AuthorInfo
	Subject        string
	FileCount      int // Number of files
	DirectoryCount int // Number of directories
	SubsystemCount int // Number of top-level directories
	BinaryCount    int
	LinesAdded     int
	LinesDeleted   int
	Spread         float64 // 0 = focused on one file, 1 = spread evenly
	StatusCounts   map[diff.FileStatus]int
}

// TotalChurn returns the total lines changed (added + deleted).
func (c *CommitStats) TotalChurn() int {
	return c.LinesAdded + c.LinesDeleted
}

// Calculate computes the diffstat of a commit record.
func Calculate(rec push.CommitRecord) CommitStats {
	directories := make(map[string]struct{})
	subsystems := make(map[string]struct{})
	stats := CommitStats{
		Revision:     rec.Revision,
		When:         rec.Date,
		Author:       git.AuthorInfo{Name: rec.Author, Email: rec.AuthorEmail},
		Subject:      rec.Subject,
		FileCount:    len(rec.Files),
		StatusCounts: make(map[diff.FileStatus]int),
	}

	for _, change := range rec.Files {
		stats.LinesAdded += change.LinesAdded
		stats.LinesDeleted += change.LinesDeleted
		stats.StatusCounts[change.Status]++
		if change.Binary {
			stats.BinaryCount++
		}

		dir, subsystem := pathComponents(change.Path())
		if dir != "" {
			directories[strings.ToLower(dir)] = struct{}{}
		}
		if subsystem != "" {
			subsystems[strings.ToLower(subsystem)] = struct{}{}
		}
	}

	stats.Spread = ChangeSpread(rec.Files)
	stats.DirectoryCount = len(directories)
	stats.SubsystemCount = len(subsystems)
	if stats.SubsystemCount == 0 && stats.FileCount > 0 {
		stats.SubsystemCount = 1
	}
	return stats
}

// CalculateAll computes the diffstat of every record.
func CalculateAll(records []push.CommitRecord) []CommitStats {
	results := make([]CommitStats, 0, len(records))
	for _, rec := range records {
		results = append(results, Calculate(rec))
	}
	return results
}

// pathComponents splits a slash-separated diff path into its directory and
// subsystem (first directory component). Files at the root have neither.
func pathComponents(p string) (directory, subsystem string) {
	directory = path.Dir(p)
	if directory == "." || directory == "/" {
		return "", ""
	}
	subsystem, _, _ = strings.Cut(directory, "/")
	return directory, subsystem
}
