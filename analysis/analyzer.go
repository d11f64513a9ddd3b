// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analysis

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/findorigin/core"
)

const (
	// MaxKeyClaims is the number of claims kept from a text.
	MaxKeyClaims = 3
	// MaxNames caps the number of capitalized tokens reported.
	MaxNames = 10
	// MaxSearchQueries caps the generated query list.
	MaxSearchQueries = 5

	minClaimLength      = 20
	minNameLength       = 3
	minNumberLength     = 2
	leadQueryLength     = 100
	minLeadQueryLength  = 20
	claimsPerQueryBatch = 2
)

// All patterns use ASCII word boundaries. Month-name forms therefore only
// match where the preceding character is not a letter in the ASCII sense,
// which is the established behavior for these heuristics.
var (
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
	shoutedSentence  = regexp.MustCompile(`^[А-ЯA-Z\s!]+$`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[./]\d{1,2}[./]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b(?:январь|февраль|март|апрель|май|июнь|июль|август|сентябрь|октябрь|ноябрь|декабрь)\s+\d{4}\b`),
	}

	// Percentages carry no trailing boundary so "15%" followed by a space matches.
	numberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+(?:[.,]\d+)?%`),
		regexp.MustCompile(`\b\d{1,3}(?:\s+\d{3})*(?:[.,]\d+)?\b`),
		regexp.MustCompile(`\b\d+(?:[.,]\d+)?\b`),
	}

	whitespace      = regexp.MustCompile(`\s+`)
	namePunctuation = regexp.MustCompile(`[.,!?;:()\[\]{}"]`)
	capitalized     = regexp.MustCompile(`^[А-ЯЁA-Z]`)
	linkPattern     = regexp.MustCompile(`https?://\S+`)

	nameStopWords = []string{"Это", "Также", "Однако", "Поэтому", "Который", "Которые"}
)

// Analyze derives claims, dates, numbers, names, links and search queries
// from text. It never fails; every collection degrades to empty. Invalid
// UTF-8 sequences are dropped before extraction.
func Analyze(text string) *core.ExtractedData {
	text = strings.ToValidUTF8(text, "")
	data := core.NewExtractedData()
	data.KeyClaims = ExtractKeyClaims(text)
	data.Dates = ExtractDates(text)
	data.Numbers = ExtractNumbers(text)
	data.Names = ExtractNames(text)
	data.Links = ExtractLinks(text)
	data.SearchQueries = GenerateSearchQueries(data, text)
	return data
}

// ExtractKeyClaims returns up to MaxKeyClaims declarative sentences in
// document order.
func ExtractKeyClaims(text string) []string {
	claims := []string{}
	for _, sentence := range sentenceBoundary.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if utf8.RuneCountInString(sentence) <= minClaimLength {
			continue
		}
		if strings.Contains(sentence, "?") || shoutedSentence.MatchString(sentence) {
			continue
		}
		claims = append(claims, sentence)
		if len(claims) == MaxKeyClaims {
			break
		}
	}
	return claims
}

// ExtractDates returns the union of all date-shaped matches, deduplicated.
// A bare year is not a date.
func ExtractDates(text string) []string {
	var matches []string
	for _, p := range datePatterns {
		matches = append(matches, p.FindAllString(text, -1)...)
	}
	return unique(matches)
}

// ExtractNumbers returns percentages, grouped numbers and plain numbers.
// Single characters are dropped unless they are percentages.
func ExtractNumbers(text string) []string {
	var matches []string
	for _, p := range numberPatterns {
		for _, m := range p.FindAllString(text, -1) {
			if len(m) >= minNumberLength || strings.Contains(m, "%") {
				matches = append(matches, m)
			}
		}
	}
	return unique(matches)
}

// ExtractNames returns capitalized tokens after the first word that are not
// common capitalized function words.
func ExtractNames(text string) []string {
	words := whitespace.Split(text, -1)
	var names []string
	for i := 1; i < len(words); i++ {
		word := namePunctuation.ReplaceAllString(words[i], "")
		if utf8.RuneCountInString(word) < minNameLength || !capitalized.MatchString(word) {
			continue
		}
		if slices.Contains(nameStopWords, word) {
			continue
		}
		names = append(names, word)
	}
	names = unique(names)
	if len(names) > MaxNames {
		names = names[:MaxNames]
	}
	return names
}

// ExtractLinks returns http(s) tokens verbatim.
func ExtractLinks(text string) []string {
	return unique(linkPattern.FindAllString(text, -1))
}

// GenerateSearchQueries builds up to MaxSearchQueries queries in priority
// order: the lead of the text, the first claims, name+date, name+number.
func GenerateSearchQueries(data *core.ExtractedData, text string) []string {
	var queries []string

	if lead := strings.TrimSpace(truncateRunes(text, leadQueryLength)); utf8.RuneCountInString(lead) > minLeadQueryLength {
		queries = append(queries, lead)
	}

	if data != nil {
		claims := data.KeyClaims
		if len(claims) > claimsPerQueryBatch {
			claims = claims[:claimsPerQueryBatch]
		}
		queries = append(queries, claims...)

		if len(data.Names) > 0 && len(data.Dates) > 0 {
			queries = append(queries, data.Names[0]+" "+data.Dates[0])
		}
		if len(data.Names) > 0 && len(data.Numbers) > 0 {
			queries = append(queries, data.Names[0]+" "+data.Numbers[0])
		}
	}

	queries = unique(queries)
	if len(queries) > MaxSearchQueries {
		queries = queries[:MaxSearchQueries]
	}
	return queries
}

// unique drops empty strings and repeats, keeping first occurrences.
func unique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// truncateRunes cuts s after n runes without rewriting its bytes.
func truncateRunes(s string, n int) string {
	offset := 0
	for range n {
		if offset >= len(s) {
			return s
		}
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return s[:offset]
}
