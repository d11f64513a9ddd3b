package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/findorigin/core"
)

func candidates(t *testing.T, n int) []*core.SearchResult {
	t.Helper()
	urls := []string{
		"https://ria.ru/news/1",
		"https://www.gov.ru/report",
		"https://habr.com/post/2",
		"https://example.com/page",
		"https://arxiv.org/abs/1234",
	}
	require.LessOrEqual(t, n, len(urls))
	out := make([]*core.SearchResult, n)
	for i := range n {
		r, err := core.NewSearchResult("Title", urls[i], "snippet")
		require.NoError(t, err)
		out[i] = r
	}
	return out
}

func TestParseVerdict(t *testing.T) {
	cands := candidates(t, 3)

	content := `{"results":[
		{"index":1,"relevanceScore":40,"confidence":"low","explanation":"Частично"},
		{"index":2,"relevanceScore":90,"confidence":"high","explanation":"Первоисточник"},
		{"index":3,"relevanceScore":40,"confidence":"medium","explanation":"Пересказ"}
	]}`

	got, err := ParseVerdict(content, cands)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Same(t, cands[1], got[0].Source)
	assert.Equal(t, 90, got[0].RelevanceScore)
	assert.Equal(t, core.ConfidenceHigh, got[0].Confidence)
	assert.Equal(t, "Первоисточник", got[0].Explanation)

	// equal scores keep response order
	assert.Same(t, cands[0], got[1].Source)
	assert.Same(t, cands[2], got[2].Source)
}

func TestParseVerdict_Defaults(t *testing.T) {
	cands := candidates(t, 1)

	got, err := ParseVerdict(`{"results":[{"index":1}]}`, cands)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, core.DefaultRelevanceScore, got[0].RelevanceScore)
	assert.Equal(t, core.ConfidenceMedium, got[0].Confidence)
	assert.Equal(t, ExplanationDefault, got[0].Explanation)
}

func TestParseVerdict_AdversarialScores(t *testing.T) {
	tests := []struct {
		name  string
		score string
		want  int
	}{
		{"negative", `-15`, 0},
		{"above range", `250`, 100},
		{"fractional", `72.6`, 73},
		{"numeric string", `"64"`, 64},
		{"word", `"high"`, 50},
		{"null", `null`, 50},
		{"object", `{"v":1}`, 50},
		{"huge", `1e300`, 100},
		{"zero", `0`, 0},
	}

	cands := candidates(t, 1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(`{"results":[{"index":1,"relevanceScore":`+tt.score+`}]}`, cands)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].RelevanceScore)
		})
	}
}

func TestParseVerdict_InvalidIndexes(t *testing.T) {
	cands := candidates(t, 2)

	content := `{"results":[
		{"index":0,"relevanceScore":99},
		{"index":3,"relevanceScore":99},
		{"index":1.5,"relevanceScore":99},
		{"index":"x","relevanceScore":99},
		{"relevanceScore":99},
		"not an object",
		{"index":2,"relevanceScore":70},
		{"index":2,"relevanceScore":10},
		{"index":"1","relevanceScore":60}
	]}`

	got, err := ParseVerdict(content, cands)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Same(t, cands[1], got[0].Source)
	assert.Equal(t, 70, got[0].RelevanceScore)
	assert.Same(t, cands[0], got[1].Source)
	assert.Equal(t, 60, got[1].RelevanceScore)
}

func TestParseVerdict_UnknownConfidence(t *testing.T) {
	cands := candidates(t, 1)

	got, err := ParseVerdict(`{"results":[{"index":1,"confidence":"very sure"}]}`, cands)
	require.NoError(t, err)
	assert.Equal(t, core.ConfidenceMedium, got[0].Confidence)

	got, err = ParseVerdict(`{"results":[{"index":1,"confidence":" HIGH "}]}`, cands)
	require.NoError(t, err)
	assert.Equal(t, core.ConfidenceHigh, got[0].Confidence)
}

func TestParseVerdict_Malformed(t *testing.T) {
	cands := candidates(t, 2)

	for _, content := range []string{
		``,
		`not json`,
		`[1,2,3]`,
		`{}`,
		`{"results":{"index":1}}`,
		`{"results":"none"}`,
		`{"results":null}`,
	} {
		_, err := ParseVerdict(content, cands)
		assert.True(t, errors.Is(err, ErrMalformedVerdict), "content %q", content)
	}
}

func TestParseVerdict_EmptyResults(t *testing.T) {
	got, err := ParseVerdict(`{"results":[]}`, candidates(t, 2))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFallbackComparisons(t *testing.T) {
	cands := candidates(t, 4)

	got := FallbackComparisons(cands, ExplanationUnassessed)
	require.Len(t, got, 4)
	for i, c := range got {
		assert.Same(t, cands[i], c.Source)
		assert.Equal(t, 50, c.RelevanceScore)
		assert.Equal(t, core.ConfidenceMedium, c.Confidence)
		assert.Equal(t, ExplanationUnassessed, c.Explanation)
	}
}

func TestHeuristicComparisons(t *testing.T) {
	cands := candidates(t, 5)

	got := HeuristicComparisons(cands, 3)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Same(t, cands[i], c.Source)
		assert.Equal(t, 50, c.RelevanceScore)
		assert.Equal(t, core.ConfidenceMedium, c.Confidence)
		assert.Equal(t, ExplanationUnavailable, c.Explanation)
	}

	assert.Len(t, HeuristicComparisons(cands[:2], 3), 2)
	assert.Len(t, HeuristicComparisons(cands, 0), 5)
	assert.Empty(t, HeuristicComparisons(nil, 3))
}
