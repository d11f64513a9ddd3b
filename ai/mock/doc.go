// Package mock provides test doubles for the ai package interfaces.
//
// # Usage in Tests
//
//	// Default behavior: descending scores from 90
//	comparator := mock.NewMockComparator()
//
//	// Reasoning service down
//	comparator := mock.NewFailingComparator(errors.New("503"))
//
//	// Custom behavior injection
//	comparator.CompareFunc = func(ctx context.Context, text string, c []*core.SearchResult) ([]*core.ComparisonResult, error) {
//	    return ai.FallbackComparisons(c, "stub"), nil
//	}
//
//	count := comparator.CallCount()
package mock
