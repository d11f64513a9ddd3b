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

package storage

import "context"

// UpdateLedger remembers which inbound updates have already been accepted,
// so that a redelivered update does not start a second run.
// Implementations must be safe for concurrent use.
type UpdateLedger interface {
	// Claim records key and reports whether this call was the first to do so
	// within the retention window. Concurrent claims of the same key succeed
	// for exactly one caller.
	Claim(ctx context.Context, key string) (bool, error)

	// Release forgets key so that a later Claim succeeds again. Used when an
	// accepted update could not be processed.
	Release(ctx context.Context, key string) error

	// Close releases resources held by the ledger.
	Close() error
}
