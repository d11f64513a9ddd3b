package search

import (
	"slices"

	"github.com/poiesic/findorigin/core"
)

// Deduplicate keeps the first result for every normalized URL, preserving order.
// The input slice is not modified.
func Deduplicate(results []*core.SearchResult) []*core.SearchResult {
	out := make([]*core.SearchResult, 0, len(results))
	seen := make(map[core.ID]struct{}, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		id := r.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

// FilterBySourceType stably moves results whose type is preferred ahead of
// the rest. Nothing is dropped; an empty preference returns a copy of the input.
func FilterBySourceType(results []*core.SearchResult, preferred []core.SourceType) []*core.SearchResult {
	out := make([]*core.SearchResult, 0, len(results))
	if len(preferred) == 0 {
		return append(out, results...)
	}
	var others []*core.SearchResult
	for _, r := range results {
		if slices.Contains(preferred, r.SourceType) {
			out = append(out, r)
		} else {
			others = append(others, r)
		}
	}
	return append(out, others...)
}
