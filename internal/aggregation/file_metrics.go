package aggregation

import (
	"sort"
	"time"

	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/git"
	"github.com/masmgr/pushnotify/internal/push"
)

// FileStats holds the changes a push made to one path.
type FileStats struct {
	Path           string
	CommitCount    int
	AddedLines     int
	DeletedLines   int
	LastModifiedAt time.Time
	LastStatus     diff.FileStatus
	Contributors   map[string]struct{}
}

// NewFileStats creates a new FileStats instance.
func NewFileStats(path string) *FileStats {
	return &FileStats{
		Path:         path,
		Contributors: make(map[string]struct{}),
	}
}

// ChurnTotal returns total lines changed (added + deleted).
func (f *FileStats) ChurnTotal() int {
	return f.AddedLines + f.DeletedLines
}

// ContributorCount returns number of unique contributors.
func (f *FileStats) ContributorCount() int {
	return len(f.Contributors)
}

// AddCommit adds a commit's contribution to this file's stats.
func (f *FileStats) AddCommit(rec push.CommitRecord, change diff.FileChange) {
	f.CommitCount++
	f.AddedLines += change.LinesAdded
	f.DeletedLines += change.LinesDeleted
	f.LastStatus = change.Status

	if f.LastModifiedAt.IsZero() || rec.Date.After(f.LastModifiedAt) {
		f.LastModifiedAt = rec.Date
	}
	if rec.AuthorEmail != "" {
		f.Contributors[contributorKey(rec)] = struct{}{}
	}
}

// PushStats is the diffstat of a whole push.
type PushStats struct {
	Commits      int
	Files        int
	LinesAdded   int
	LinesDeleted int
	Contributors int
	ByFile       []*FileStats // Sorted by churn, then path
}

// FileStatsAggregator aggregates file changes across the commits of a push.
type FileStatsAggregator struct {
	stats        map[string]*FileStats
	contributors map[string]struct{}
	commits      int
}

// NewFileStatsAggregator creates a new aggregator.
func NewFileStatsAggregator() *FileStatsAggregator {
	return &FileStatsAggregator{
		stats:        make(map[string]*FileStats),
		contributors: make(map[string]struct{}),
	}
}

// Process adds every record, oldest first, and returns the push totals.
func (a *FileStatsAggregator) Process(records []push.CommitRecord) PushStats {
	for _, rec := range records {
		a.processRecord(rec)
	}
	return a.Totals()
}

func (a *FileStatsAggregator) processRecord(rec push.CommitRecord) {
	a.commits++
	if rec.AuthorEmail != "" {
		a.contributors[contributorKey(rec)] = struct{}{}
	}
	for _, change := range rec.Files {
		path := change.Path()

		// Renames carry the history of the old path over to the new one.
		if change.Status == diff.StatusRenamed && change.OldPath != "" && change.OldPath != path {
			if oldStats, exists := a.stats[change.OldPath]; exists {
				if _, newExists := a.stats[path]; !newExists {
					a.stats[path] = NewFileStats(path)
				}
				mergeStats(a.stats[path], oldStats)
				delete(a.stats, change.OldPath)
			}
		}

		if _, exists := a.stats[path]; !exists {
			a.stats[path] = NewFileStats(path)
		}
		a.stats[path].AddCommit(rec, change)
	}
}

// mergeStats merges source stats into target.
func mergeStats(target, source *FileStats) {
	target.CommitCount += source.CommitCount
	target.AddedLines += source.AddedLines
	target.DeletedLines += source.DeletedLines

	if source.LastModifiedAt.After(target.LastModifiedAt) {
		target.LastModifiedAt = source.LastModifiedAt
	}
	for k := range source.Contributors {
		target.Contributors[k] = struct{}{}
	}
}

// Totals returns the aggregated push stats.
func (a *FileStatsAggregator) Totals() PushStats {
	totals := PushStats{
		Commits:      a.commits,
		Files:        len(a.stats),
		Contributors: len(a.contributors),
		ByFile:       make([]*FileStats, 0, len(a.stats)),
	}
	for _, fs := range a.stats {
		totals.LinesAdded += fs.AddedLines
		totals.LinesDeleted += fs.DeletedLines
		totals.ByFile = append(totals.ByFile, fs)
	}
	sort.Slice(totals.ByFile, func(i, j int) bool {
		ci, cj := totals.ByFile[i].ChurnTotal(), totals.ByFile[j].ChurnTotal()
		if ci != cj {
			return ci > cj
		}
		return totals.ByFile[i].Path < totals.ByFile[j].Path
	})
	return totals
}

func contributorKey(rec push.CommitRecord) string {
	return git.AuthorInfo{Name: rec.Author, Email: rec.AuthorEmail}.ContributorKey()
}
