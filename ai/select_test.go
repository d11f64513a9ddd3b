package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/findorigin/core"
)

func scored(scores ...int) []*core.ComparisonResult {
	out := make([]*core.ComparisonResult, len(scores))
	for i, s := range scores {
		out[i] = &core.ComparisonResult{RelevanceScore: s, Confidence: core.ConfidenceMedium}
	}
	return out
}

func TestSelectTop(t *testing.T) {
	t.Run("drops scores at or below threshold", func(t *testing.T) {
		got := SelectTop(scored(95, 31, 30, 12), 10)

		assert.Len(t, got, 2)
		assert.Equal(t, 95, got[0].RelevanceScore)
		assert.Equal(t, 31, got[1].RelevanceScore)
	})

	t.Run("caps at limit", func(t *testing.T) {
		got := SelectTop(scored(90, 80, 70, 60, 50), 2)

		assert.Len(t, got, 2)
		assert.Equal(t, 90, got[0].RelevanceScore)
		assert.Equal(t, 80, got[1].RelevanceScore)
	})

	t.Run("default limit", func(t *testing.T) {
		assert.Len(t, SelectTop(scored(90, 80, 70, 60, 50), 0), DefaultTopN)
	})

	t.Run("output sorted even when input is not", func(t *testing.T) {
		in := scored(40, 90, 65)
		got := SelectTop(in, 3)

		assert.Equal(t, []int{90, 65, 40}, []int{got[0].RelevanceScore, got[1].RelevanceScore, got[2].RelevanceScore})
		assert.Equal(t, 40, in[0].RelevanceScore, "input must not be reordered")
	})

	t.Run("empty and nil entries", func(t *testing.T) {
		assert.Empty(t, SelectTop(nil, 3))
		assert.Len(t, SelectTop([]*core.ComparisonResult{nil, {RelevanceScore: 60}}, 3), 1)
	})

	t.Run("fallback scores survive selection", func(t *testing.T) {
		got := SelectTop(FallbackComparisons(candidates(t, 5), ExplanationUnavailable), 3)
		assert.Len(t, got, 3)
	})
}
