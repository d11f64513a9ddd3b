// Package analysis derives search intent from free-form text.
//
// The extractors are heuristics, not linguistic analysis: claims are
// sentence-shaped fragments, names are capitalized tokens, and dates and
// numbers come from a fixed set of patterns. None of them fail; malformed
// input yields empty collections.
//
// Typical use:
//
//	cleaned := analysis.CleanText(raw)
//	data := analysis.Analyze(cleaned)
//	for _, q := range data.SearchQueries {
//		// query providers
//	}
package analysis
