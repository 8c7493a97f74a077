package text

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Similarity computes a score between two strings (0.0 to 1.0) using
// Levenshtein ratio: 1 - (levenshtein_distance / max_length).
// Higher score means more similar. An empty string has 0 similarity
// with a non-empty one.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	levenshteinDist := dmp.DiffLevenshtein(diffs)

	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0.0
	}

	return 1.0 - float64(levenshteinDist)/float64(maxLen)
}
