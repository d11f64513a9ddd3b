package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/poiesic/findorigin/core"
)

// Explanations attached to scores that did not come from the reasoning service.
const (
	// ExplanationUnassessed marks every candidate of a batch whose verdict
	// could not be interpreted.
	ExplanationUnassessed = "Не удалось оценить релевантность"

	// ExplanationDefault replaces an explanation missing from a verdict entry.
	ExplanationDefault = "Оценка релевантности"

	// ExplanationUnavailable marks heuristic scores produced when the
	// reasoning service could not be reached.
	ExplanationUnavailable = "AI сравнение недоступно"
)

// ParseVerdict converts the reasoning service's JSON answer into comparison
// results for candidates. The answer must be an object with a "results"
// array; anything else yields ErrMalformedVerdict.
//
// Entries whose 1-based index does not address a candidate are dropped, as
// are repeated indexes after the first. Scores are clamped into [0,100] and
// default to 50 when absent or not numeric. The returned slice is sorted by
// score, highest first, with ties kept in response order.
func ParseVerdict(content string, candidates []*core.SearchResult) ([]*core.ComparisonResult, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	raw, ok := envelope["results"]
	if !ok {
		return nil, fmt.Errorf("%w: missing results", ErrMalformedVerdict)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil, fmt.Errorf("%w: results is not an array", ErrMalformedVerdict)
	}

	seen := make(map[int]struct{}, len(entries))
	comparisons := make([]*core.ComparisonResult, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}

		index, ok := parseIndex(fields["index"])
		if !ok || index < 1 || index > len(candidates) || candidates[index-1] == nil {
			continue
		}
		if _, dup := seen[index]; dup {
			continue
		}
		seen[index] = struct{}{}

		confidence, ok := core.ParseConfidence(parseString(fields["confidence"]))
		if !ok {
			confidence = core.ConfidenceMedium
		}
		explanation := strings.TrimSpace(parseString(fields["explanation"]))
		if explanation == "" {
			explanation = ExplanationDefault
		}

		comparisons = append(comparisons, &core.ComparisonResult{
			Source:         candidates[index-1],
			RelevanceScore: parseScore(fields["relevanceScore"]),
			Confidence:     confidence,
			Explanation:    explanation,
		})
	}

	SortByScore(comparisons)
	return comparisons, nil
}

// FallbackComparisons assigns every candidate the neutral score with medium
// confidence, preserving candidate order.
func FallbackComparisons(candidates []*core.SearchResult, explanation string) []*core.ComparisonResult {
	comparisons := make([]*core.ComparisonResult, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		comparisons = append(comparisons, &core.ComparisonResult{
			Source:         c,
			RelevanceScore: core.DefaultRelevanceScore,
			Confidence:     core.ConfidenceMedium,
			Explanation:    explanation,
		})
	}
	return comparisons
}

// HeuristicComparisons scores the first n candidates without the reasoning
// service. n <= 0 means all candidates.
func HeuristicComparisons(candidates []*core.SearchResult, n int) []*core.ComparisonResult {
	if n > 0 && n < len(candidates) {
		candidates = candidates[:n]
	}
	return FallbackComparisons(candidates, ExplanationUnavailable)
}

// SortByScore orders comparisons by relevance score, highest first.
// Equal scores keep their relative order.
func SortByScore(comparisons []*core.ComparisonResult) {
	sort.SliceStable(comparisons, func(i, j int) bool {
		return comparisons[i].RelevanceScore > comparisons[j].RelevanceScore
	})
}

func parseIndex(raw json.RawMessage) (int, bool) {
	f, ok := parseNumber(raw)
	if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func parseScore(raw json.RawMessage) int {
	f, ok := parseNumber(raw)
	if !ok {
		return core.DefaultRelevanceScore
	}
	return core.ClampScore(f)
}

// parseNumber accepts JSON numbers and strings holding a number.
func parseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
