package badger

import "time"

// NewMemoryLedger creates an in-memory ledger for testing.
// Caller must close the ledger when done.
func NewMemoryLedger(ttl time.Duration) (*Ledger, error) {
	return OpenLedger("", ttl)
}
