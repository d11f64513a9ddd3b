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

package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/findorigin/storage"
)

// DefaultLedgerTTL is how long a claimed update is remembered.
const DefaultLedgerTTL = 24 * time.Hour

// Ledger implements storage.UpdateLedger on BadgerDB. Entries carry a
// badger TTL and disappear on their own.
type Ledger struct {
	backend    *Backend
	ownBackend bool
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

var _ storage.UpdateLedger = (*Ledger)(nil)

// NewLedger creates a ledger on an open backend. The backend stays owned by
// the caller.
func NewLedger(backend *Backend, ttl time.Duration) (*Ledger, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	if ttl <= 0 {
		return nil, storage.ErrInvalidTTL
	}
	return &Ledger{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		logger:  slog.Default().With("component", "ledger"),
	}, nil
}

// OpenLedger opens a backend at path, in memory when path is empty, and
// creates a ledger that closes the backend on Close.
func OpenLedger(path string, ttl time.Duration) (*Ledger, error) {
	backend, err := OpenBackend(path, path == "")
	if err != nil {
		return nil, err
	}
	ledger, err := NewLedger(backend, ttl)
	if err != nil {
		backend.Close()
		return nil, err
	}
	ledger.ownBackend = true
	return ledger, nil
}

// Claim records key. It returns false when key was already claimed and has
// not expired. A transaction conflict means another caller claimed the key
// concurrently and is reported the same way.
func (l *Ledger) Claim(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, storage.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	k := makeUpdateClaimKey(key)
	var claimedAt time.Time
	claimed := false
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		at, found, err := readClaim(tx, k)
		if err != nil {
			return err
		}
		if found {
			claimedAt = at
			return nil
		}
		claimed = true
		return tx.SetEntry(badger.NewEntry(k, encodeClaimTime(l.now())).WithTTL(l.ttl))
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		l.logger.Debug("concurrent claim lost", "key", key)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !claimed {
		l.logger.Debug("update already claimed", "key", key, "claimedAt", claimedAt)
	}
	return claimed, nil
}

// readClaim returns the time stored under k, if any.
func readClaim(tx *badger.Txn, k []byte) (time.Time, bool, error) {
	item, err := tx.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	var at time.Time
	err = item.Value(func(val []byte) error {
		at = decodeClaimTime(val)
		return nil
	})
	return at, true, err
}

// Release forgets key.
func (l *Ledger) Release(ctx context.Context, key string) error {
	if key == "" {
		return storage.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Delete(makeUpdateClaimKey(key))
	}, true)
}

// Close closes the backend if the ledger opened it.
func (l *Ledger) Close() error {
	if !l.ownBackend || l.backend.IsClosed() {
		return nil
	}
	return l.backend.Close()
}
