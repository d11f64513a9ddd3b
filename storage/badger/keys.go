package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/findorigin/core"
)

// Key prefixes for different data types
const (
	updateClaimPrefix = "updclm"
)

// makeUpdateClaimKey generates a fixed-size key for a ledger entry.
// Format: prefix:contentID
func makeUpdateClaimKey(key string) []byte {
	return []byte(fmt.Sprintf("%s:%016x", updateClaimPrefix, uint64(core.IDFromContent(key))))
}

// encodeClaimTime stores the claim time as BigEndian unix microseconds.
func encodeClaimTime(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixMicro()))
	return buf
}

// decodeClaimTime reverses encodeClaimTime. Malformed values decode to the zero time.
func decodeClaimTime(b []byte) time.Time {
	if len(b) != 8 {
		return time.Time{}
	}
	return time.UnixMicro(int64(binary.BigEndian.Uint64(b)))
}
