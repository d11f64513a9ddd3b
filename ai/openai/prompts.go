package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/findorigin/core"
)

const systemPrompt = "You are an expert fact-checker. Compare the original text with search results and evaluate their relevance. Return JSON format only."

const responseInstructions = `For each source, provide:
- relevanceScore: number from 0 to 100 (how relevant is this source to the original text)
- confidence: "high", "medium", or "low" (how confident you are in this assessment)
- explanation: brief explanation in Russian (why this source is relevant or not)

Return JSON in this format:
{
  "results": [
    {
      "index": 1,
      "relevanceScore": 85,
      "confidence": "high",
      "explanation": "Источник подтверждает основное утверждение..."
    },
    ...
  ]
}`

// buildComparisonPrompt enumerates candidates with 1-based indexes so the
// verdict can refer back to them.
func buildComparisonPrompt(originalText string, candidates []*core.SearchResult) string {
	listing := make([]string, 0, len(candidates))
	for i, c := range candidates {
		listing = append(listing, fmt.Sprintf("\n%d. Title: %s\n   URL: %s\n   Snippet: %s\n   Type: %s",
			i+1, c.Title, c.URL, c.Snippet, c.SourceType))
	}

	var b strings.Builder
	b.WriteString("Compare the original text with the following search results and evaluate their relevance.\n\n")
	b.WriteString("Original text:\n\"")
	b.WriteString(originalText)
	b.WriteString("\"\n\nSearch results:\n")
	b.WriteString(strings.Join(listing, "\n"))
	b.WriteString("\n\n")
	b.WriteString(responseInstructions)
	return b.String()
}
