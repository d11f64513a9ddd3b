package core

import (
	"encoding/binary"
	"math"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SearchResult is one candidate source returned by a search provider.
// Values are created through NewSearchResult and treated as read-only afterwards;
// the same pointer may be referenced by several ComparisonResults.
type SearchResult struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Snippet    string     `json:"snippet"`
	SourceType SourceType `json:"sourceType"`
}

// NewSearchResult validates rawURL and builds a SearchResult whose SourceType
// is computed by ClassifySource. Provider-supplied categories are never trusted.
func NewSearchResult(title, rawURL, snippet string) (*SearchResult, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	return &SearchResult{
		Title:      title,
		URL:        rawURL,
		Snippet:    snippet,
		SourceType: ClassifySource(rawURL),
	}, nil
}

// Key returns the normalized URL used for deduplication.
func (r *SearchResult) Key() string {
	return NormalizeURL(r.URL)
}

// ID returns the content ID of the normalized URL.
func (r *SearchResult) ID() ID {
	return IDFromContent(r.Key())
}

// Confidence is the coarse reliability tier attached to a relevance score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps a free-form tier name onto a Confidence.
// The second return value is false when the name is not recognized.
func ParseConfidence(s string) (Confidence, bool) {
	switch Confidence(normalizeToken(s)) {
	case ConfidenceHigh:
		return ConfidenceHigh, true
	case ConfidenceMedium:
		return ConfidenceMedium, true
	case ConfidenceLow:
		return ConfidenceLow, true
	}
	return "", false
}

// ComparisonResult is the relevance verdict for one candidate.
type ComparisonResult struct {
	Source         *SearchResult `json:"source"`
	RelevanceScore int           `json:"relevanceScore"`
	Confidence     Confidence    `json:"confidence"`
	Explanation    string        `json:"explanation"`
}

const (
	MinRelevanceScore     = 0
	MaxRelevanceScore     = 100
	DefaultRelevanceScore = 50
)

// ClampScore rounds score and forces it into [MinRelevanceScore, MaxRelevanceScore].
func ClampScore(score float64) int {
	score = min(MaxRelevanceScore, max(MinRelevanceScore, score))
	return int(math.Round(score))
}

// ExtractedData is the output of text analysis. Dates, Numbers, Names and
// Links are deduplicated sets kept in first-seen order.
type ExtractedData struct {
	KeyClaims     []string `json:"keyClaims"`
	Dates         []string `json:"dates"`
	Numbers       []string `json:"numbers"`
	Names         []string `json:"names"`
	Links         []string `json:"links"`
	SearchQueries []string `json:"searchQueries"`
}

// NewExtractedData returns an ExtractedData with every collection non-nil.
func NewExtractedData() *ExtractedData {
	return &ExtractedData{
		KeyClaims:     []string{},
		Dates:         []string{},
		Numbers:       []string{},
		Names:         []string{},
		Links:         []string{},
		SearchQueries: []string{},
	}
}
