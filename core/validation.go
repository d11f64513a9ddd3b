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

// ValidateURL checks that rawURL is an absolute http(s) URL with a host.
func ValidateURL(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return fmt.Errorf("%w: %w", ErrInvalidURL, ErrEmptyURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	return nil
}

// NormalizeURL returns the canonical form of rawURL used for identity:
// scheme and host lowercased, fragment removed and trailing path slash trimmed.
// Unparseable input is returned trimmed but otherwise unchanged.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return trimmed
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	return u.String()
}

// ValidateComparisonResult checks the invariants of a ComparisonResult:
//   - Source must be set
//   - RelevanceScore must be within [0,100]
//   - Confidence must be a known tier
func ValidateComparisonResult(result *ComparisonResult) error {
	if result == nil {
		return fmt.Errorf("%w: result is nil", ErrInvalidComparison)
	}
	if result.Source == nil {
		return fmt.Errorf("%w: missing source", ErrInvalidComparison)
	}
	if result.RelevanceScore < MinRelevanceScore || result.RelevanceScore > MaxRelevanceScore {
		return fmt.Errorf("%w: %w: %d", ErrInvalidComparison, ErrScoreOutOfRange, result.RelevanceScore)
	}
	if _, ok := ParseConfidence(string(result.Confidence)); !ok {
		return fmt.Errorf("%w: unknown confidence %q", ErrInvalidComparison, result.Confidence)
	}
	return nil
}
