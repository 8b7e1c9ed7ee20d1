package aggregation

import (
	"math"

	"github.com/masmgr/pushnotify/internal/diff"
)

// ChangeSpread returns the normalized Shannon entropy of a commit's churn
// across its files: 0 when the change is focused on one file, 1 when it is
// spread evenly over all of them. Files without churn (binary files, pure
// renames) still count towards the maximum.
func ChangeSpread(files []diff.FileChange) float64 {
	if len(files) < 2 {
		return 0.0
	}

	totalChurn := 0
	for _, f := range files {
		totalChurn += f.Churn()
	}
	if totalChurn == 0 {
		// No line changes, treat as uniform distribution
		return 1.0
	}

	// -Σ(p_i × log2(p_i))
	entropy := 0.0
	for _, f := range files {
		if churn := f.Churn(); churn > 0 {
			p := float64(churn) / float64(totalChurn)
			entropy -= p * math.Log2(p)
		}
	}

	spread := entropy / math.Log2(float64(len(files)))
	return math.Max(0, math.Min(1, spread))
}
