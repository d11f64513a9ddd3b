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

// Package storage defines the persistence contracts of the service.
//
// The only state the service keeps between requests is the update ledger:
// Telegram redelivers webhook updates that were not acknowledged in time,
// and the ledger lets the webhook handler recognize them. Entries expire
// after a retention window, so the ledger never grows without bound.
//
// The badger sub-package implements the ledger on BadgerDB, in memory by
// default or on disk when a path is configured.
package storage
