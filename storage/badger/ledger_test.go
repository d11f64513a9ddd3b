package badger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/findorigin/storage"
)

func newTestLedger(t *testing.T, ttl time.Duration) *Ledger {
	t.Helper()
	ledger, err := NewMemoryLedger(ttl)
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func storedClaim(t *testing.T, l *Ledger, key string) (time.Time, bool) {
	t.Helper()
	var at time.Time
	var found bool
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		at, found, err = readClaim(tx, makeUpdateClaimKey(key))
		return err
	}, false)
	require.NoError(t, err)
	return at, found
}

func TestLedger_ClaimOnce(t *testing.T) {
	ledger := newTestLedger(t, time.Hour)
	ctx := context.Background()

	ok, err := ledger.Claim(ctx, "update:1001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Claim(ctx, "update:1001")
	require.NoError(t, err)
	assert.False(t, ok, "redelivered update must not be claimed twice")

	ok, err = ledger.Claim(ctx, "update:1002")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_StoresClaimTime(t *testing.T) {
	ledger := newTestLedger(t, time.Hour)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return fixed }
	ctx := context.Background()

	_, found := storedClaim(t, ledger, "a")
	assert.False(t, found)

	_, err := ledger.Claim(ctx, "a")
	require.NoError(t, err)

	at, found := storedClaim(t, ledger, "a")
	assert.True(t, found)
	assert.True(t, fixed.Equal(at))

	ledger.now = func() time.Time { return fixed.Add(time.Minute) }
	ok, err := ledger.Claim(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	at, _ = storedClaim(t, ledger, "a")
	assert.True(t, fixed.Equal(at), "a duplicate claim must not overwrite the original time")
}

func TestLedger_Release(t *testing.T) {
	ledger := newTestLedger(t, time.Hour)
	ctx := context.Background()

	_, err := ledger.Claim(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, ledger.Release(ctx, "a"))

	ok, err := ledger.Claim(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_Expiry(t *testing.T) {
	ledger := newTestLedger(t, time.Second)
	ctx := context.Background()

	_, err := ledger.Claim(ctx, "short-lived")
	require.NoError(t, err)

	// badger TTLs have second granularity
	time.Sleep(2100 * time.Millisecond)

	_, found := storedClaim(t, ledger, "short-lived")
	assert.False(t, found)

	ok, err := ledger.Claim(ctx, "short-lived")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_ConcurrentClaims(t *testing.T) {
	ledger := newTestLedger(t, time.Hour)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.Claim(context.Background(), "contested")
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestLedger_InvalidInput(t *testing.T) {
	ledger := newTestLedger(t, time.Hour)
	ctx := context.Background()

	_, err := ledger.Claim(ctx, "")
	assert.ErrorIs(t, err, storage.ErrEmptyKey)
	assert.ErrorIs(t, ledger.Release(ctx, ""), storage.ErrEmptyKey)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ledger.Claim(cancelled, "a")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewMemoryLedger(0)
	assert.ErrorIs(t, err, storage.ErrInvalidTTL)
}

func TestLedger_CloseOwnsBackend(t *testing.T) {
	ledger, err := NewMemoryLedger(time.Hour)
	require.NoError(t, err)

	require.NoError(t, ledger.Close())
	assert.True(t, ledger.backend.IsClosed())
	assert.NoError(t, ledger.Close())

	_, err = ledger.Claim(context.Background(), "a")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestLedger_SharedBackendStaysOpen(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ledger, err := NewLedger(backend, time.Hour)
	require.NoError(t, err)
	require.NoError(t, ledger.Close())
	assert.False(t, backend.IsClosed())
}

func TestMakeUpdateClaimKey(t *testing.T) {
	a := makeUpdateClaimKey("update:1")
	b := makeUpdateClaimKey("update:1")
	c := makeUpdateClaimKey("update:2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len(updateClaimPrefix)+1+16)
}
