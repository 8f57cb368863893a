// Package dedup collapses duplicate paper candidates before analysis.
package dedup

import "github.com/jonathan/arxiv-digest/internal/types"

// Result holds the deduplicated candidates plus counts for the run summary.
type Result struct {
	// Unique preserves first-seen order, one entry per arXiv ID
	Unique []types.PaperCandidate
	// Malformed counts dropped candidates with no ID
	Malformed int
	// Duplicates counts candidates collapsed into an earlier entry
	Duplicates int
}

// Dedupe collapses a batch of raw candidates into one entry per arXiv ID.
// The first occurrence of an ID is retained; categories observed on later
// occurrences are merged into the retained record so a paper cross-listed
// under two monitored categories is reported under both but analyzed once.
// Candidates without an ID are filtered out and counted. The input is never
// mutated.
func Dedupe(candidates []types.PaperCandidate) Result {
	result := Result{
		Unique: make([]types.PaperCandidate, 0, len(candidates)),
	}

	index := make(map[string]int, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == "" {
			result.Malformed++
			continue
		}

		at, seen := index[candidate.ID]
		if !seen {
			retained := candidate
			retained.Categories = mergeCategories(nil, observedCategories(candidate))
			index[candidate.ID] = len(result.Unique)
			result.Unique = append(result.Unique, retained)
			continue
		}

		result.Duplicates++
		result.Unique[at].Categories = mergeCategories(result.Unique[at].Categories, observedCategories(candidate))
	}

	return result
}

// observedCategories returns the categories a candidate was seen under,
// falling back to the primary category for feeds that only report one.
func observedCategories(candidate types.PaperCandidate) []string {
	if len(candidate.Categories) > 0 {
		return candidate.Categories
	}
	if candidate.Category != "" {
		return []string{candidate.Category}
	}
	return nil
}

// mergeCategories appends the categories missing from existing, keeping
// first-seen order.
func mergeCategories(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, category := range existing {
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		merged = append(merged, category)
	}
	for _, category := range incoming {
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		merged = append(merged, category)
	}
	return merged
}
