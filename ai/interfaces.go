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

package ai

import (
	"context"

	"github.com/poiesic/findorigin/core"
)

// Comparator scores candidate sources against the text they may originate from.
type Comparator interface {
	// Compare asks the reasoning service to score every candidate and returns
	// the verdicts sorted by relevance, highest first. An empty candidate list
	// yields an empty result without contacting the service.
	//
	// A response that cannot be interpreted is absorbed: every candidate is
	// returned with the neutral fallback score. A failed call (network error,
	// non-success status, missing credentials) returns a *ReasoningServiceError.
	Compare(ctx context.Context, originalText string, candidates []*core.SearchResult) ([]*core.ComparisonResult, error)
}

// Provider is a factory for the reasoning-service clients.
type Provider interface {
	// Comparator returns the relevance comparator.
	// The returned Comparator is safe for concurrent use.
	Comparator() Comparator

	// Configured reports whether the provider holds credentials.
	Configured() bool

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
