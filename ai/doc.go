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

// Package ai scores search candidates against the text a user is trying to
// trace back to its origin.
//
// The package defines the Comparator abstraction and the pieces that do not
// depend on a particular reasoning service: verdict parsing, fallback
// scoring and top-N selection.
//
// # Implementation Packages
//
//   - ai/openai: Comparator backed by an OpenAI-compatible chat API
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewComparator) return
// interface types. Mock constructors return concrete types so tests can
// inject behavior and inspect call counts.
//
// # Degradation
//
// Two distinct fallbacks keep a run useful when the reasoning service
// misbehaves:
//
//   - A response that cannot be interpreted is absorbed by the Comparator,
//     which returns every candidate with score 50 (FallbackComparisons).
//   - A call that fails outright surfaces as *ReasoningServiceError. The
//     caller substitutes HeuristicComparisons for the first N candidates.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	scored, err := provider.Comparator().Compare(ctx, text, candidates)
//	if err != nil {
//	    scored = ai.HeuristicComparisons(candidates, ai.DefaultTopN)
//	}
//	top := ai.SelectTop(scored, ai.DefaultTopN)
package ai
