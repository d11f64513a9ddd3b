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

// Package search aggregates web-search providers behind a fallback chain.
//
// The Aggregator tries eligible providers strictly in order, never
// concurrently. The first provider that answers wins, even with zero hits;
// timeouts and provider errors advance the chain, and an exhausted chain
// yields an empty result rather than an error.
//
// SearchMultipleQueries runs several queries through the chain, keeps the
// first result seen for every normalized URL, and stably moves preferred
// source types to the front before truncating.
package search
