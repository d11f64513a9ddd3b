package mock

import (
	"context"
	"sync"

	"github.com/poiesic/findorigin/ai"
	"github.com/poiesic/findorigin/core"
)

// MockComparator is a test double for ai.Comparator.
// It allows custom behavior injection via function fields.
type MockComparator struct {
	// CompareFunc is called by Compare if set.
	// If nil, uses the default descending scores.
	CompareFunc func(ctx context.Context, originalText string, candidates []*core.SearchResult) ([]*core.ComparisonResult, error)

	mu        sync.Mutex
	callCount int
	texts     []string
}

// NewMockComparator creates a mock comparator with default behavior.
func NewMockComparator() *MockComparator {
	return &MockComparator{}
}

// NewFailingComparator creates a mock comparator whose every call fails
// with a reasoning service error wrapping err.
func NewFailingComparator(err error) *MockComparator {
	return &MockComparator{
		CompareFunc: func(context.Context, string, []*core.SearchResult) ([]*core.ComparisonResult, error) {
			return nil, &ai.ReasoningServiceError{Err: err}
		},
	}
}

// Compare scores candidates.
// Default behavior: the first candidate scores 90, each following one 10
// less, floored at 0. Confidence is high above 70, medium above 30.
func (m *MockComparator) Compare(ctx context.Context, originalText string, candidates []*core.SearchResult) ([]*core.ComparisonResult, error) {
	m.mu.Lock()
	m.callCount++
	m.texts = append(m.texts, originalText)
	fn := m.CompareFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, originalText, candidates)
	}

	comparisons := make([]*core.ComparisonResult, 0, len(candidates))
	for i, c := range candidates {
		score := max(0, 90-10*i)
		confidence := core.ConfidenceLow
		switch {
		case score > 70:
			confidence = core.ConfidenceHigh
		case score > 30:
			confidence = core.ConfidenceMedium
		}
		comparisons = append(comparisons, &core.ComparisonResult{
			Source:         c,
			RelevanceScore: score,
			Confidence:     confidence,
			Explanation:    "mock",
		})
	}
	return comparisons, nil
}

// CallCount returns the number of times Compare was called.
func (m *MockComparator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Texts returns the original texts passed to Compare, in call order.
func (m *MockComparator) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears the call history and custom functions.
func (m *MockComparator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.texts = nil
	m.CompareFunc = nil
}
