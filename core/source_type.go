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

package core

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceType is the coarse category of a candidate source, derived from its host.
type SourceType string

const (
	SourceTypeOfficial SourceType = "official"
	SourceTypeNews     SourceType = "news"
	SourceTypeBlog     SourceType = "blog"
	SourceTypeResearch SourceType = "research"
	SourceTypeOther    SourceType = "other"
)

// AllSourceTypes lists every SourceType in classification order.
var AllSourceTypes = []SourceType{
	SourceTypeOfficial,
	SourceTypeNews,
	SourceTypeResearch,
	SourceTypeBlog,
	SourceTypeOther,
}

// ParseSourceType maps a name onto a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	candidate := SourceType(normalizeToken(s))
	for _, st := range AllSourceTypes {
		if st == candidate {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSourceType, s)
}

// ParseSourceTypes parses a list of names, skipping blanks.
func ParseSourceTypes(names []string) ([]SourceType, error) {
	types := make([]SourceType, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		st, err := ParseSourceType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, st)
	}
	return types, nil
}

var (
	officialSuffixes = []string{".gov", ".gov.ru", ".edu", ".edu.ru"}
	officialMarkers  = []string{"official", "gov"}

	newsDomains = []string{
		"bbc.com", "cnn.com", "reuters.com", "ap.org",
		"rbc.ru", "ria.ru", "tass.ru", "interfax.ru",
		"lenta.ru", "gazeta.ru", "kommersant.ru", "vedomosti.ru",
		"rt.com", "sputniknews.com",
	}

	researchMarkers = []string{"pubmed", "arxiv", "researchgate", "scholar"}
	blogMarkers     = []string{"medium.com", "habr.com", "blog", "wordpress"}
)

// ClassifySource derives a SourceType from the lowercased host of rawURL.
// Rules are checked in order and the first match wins. URLs that cannot be
// parsed classify as SourceTypeOther.
func ClassifySource(rawURL string) SourceType {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return SourceTypeOther
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return SourceTypeOther
	}

	switch {
	case hasAnySuffix(host, officialSuffixes) || containsAny(host, officialMarkers):
		return SourceTypeOfficial
	case containsAny(host, newsDomains):
		return SourceTypeNews
	case containsAny(host, researchMarkers) || strings.HasSuffix(host, ".edu") || strings.Contains(host, "university"):
		return SourceTypeResearch
	case containsAny(host, blogMarkers):
		return SourceTypeBlog
	}
	return SourceTypeOther
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
