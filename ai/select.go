package ai

import "github.com/poiesic/findorigin/core"

const (
	// DefaultTopN is the number of sources kept by SelectTop when no limit is given.
	DefaultTopN = 3

	// RelevanceThreshold is the score a comparison must exceed to be selected.
	RelevanceThreshold = 30
)

// SelectTop returns at most limit comparisons scoring above
// RelevanceThreshold, highest first. A non-positive limit selects
// DefaultTopN. The input slice is not modified.
func SelectTop(comparisons []*core.ComparisonResult, limit int) []*core.ComparisonResult {
	if limit <= 0 {
		limit = DefaultTopN
	}

	selected := make([]*core.ComparisonResult, 0, min(limit, len(comparisons)))
	for _, c := range comparisons {
		if c == nil || c.RelevanceScore <= RelevanceThreshold {
			continue
		}
		selected = append(selected, c)
	}
	SortByScore(selected)

	if len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}
