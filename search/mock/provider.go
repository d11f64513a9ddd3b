// Package mock provides test doubles for search providers.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
)

// MockProvider is a test double for search.Provider.
// It allows custom behavior injection via function fields.
type MockProvider struct {
	// ProviderName is returned by Name.
	ProviderName string

	// Unconfigured makes Eligible report false.
	Unconfigured bool

	// SearchFunc is called by Search if set.
	// If nil, Search returns Results.
	SearchFunc func(ctx context.Context, query string, maxResults int) ([]*core.SearchResult, error)

	// Results are returned by the default Search behavior.
	Results []*core.SearchResult

	mu      sync.Mutex
	queries []string
}

var _ search.Provider = (*MockProvider)(nil)

// NewMockProvider creates an eligible mock provider returning results.
func NewMockProvider(name string, results ...*core.SearchResult) *MockProvider {
	return &MockProvider{ProviderName: name, Results: results}
}

// NewFailingProvider creates an eligible mock provider that always returns err.
func NewFailingProvider(name string, err error) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		SearchFunc: func(context.Context, string, int) ([]*core.SearchResult, error) {
			return nil, err
		},
	}
}

// Name returns ProviderName.
func (m *MockProvider) Name() string {
	return m.ProviderName
}

// Eligible reports whether the mock is configured.
func (m *MockProvider) Eligible() bool {
	return !m.Unconfigured
}

// Search records the query and returns the configured behavior.
func (m *MockProvider) Search(ctx context.Context, query string, maxResults int) ([]*core.SearchResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, maxResults)
	}
	results := m.Results
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return append([]*core.SearchResult{}, results...), nil
}

// CallCount returns the number of times Search was called.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// Queries returns the queries received so far, in order.
func (m *MockProvider) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Reset clears recorded calls.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = nil
}

// MustResult builds a SearchResult and panics on an invalid URL.
func MustResult(title, rawURL, snippet string) *core.SearchResult {
	r, err := core.NewSearchResult(title, rawURL, snippet)
	if err != nil {
		panic(err)
	}
	return r
}
