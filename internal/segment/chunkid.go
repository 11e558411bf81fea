// Package segment implements the chunk model and segment summary: the
// immutable append-only unit of rows, and the per-segment index of
// chunks with their probabilistic key digests and MVCC version.
package segment

import (
	"bytes"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// chunkIDEncoding is base32hex (RFC 4648) lowercase without padding.
// The alphabet 0-9a-v preserves lexicographic sort order, so a ChunkID's
// string form sorts the same way its bytes do.
var chunkIDEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// ChunkID is a time-ordered 128-bit identifier. It is a UUIDv7: newer
// chunks have strictly greater IDs under total ordering, and IDs are
// unique within a segment because UUIDv7 carries both a millisecond
// timestamp and random bits.
type ChunkID [16]byte

// NewChunkID mints a ChunkID from a new UUIDv7. Minting does not reserve
// or commit anything — an ID from a chunk that loses its flush's CAS race
// is simply discarded and never reused.
func NewChunkID() ChunkID {
	return ChunkID(uuid.Must(uuid.NewV7()))
}

// ParseChunkID parses a 26-character base32hex string into a ChunkID.
func ParseChunkID(value string) (ChunkID, error) {
	if len(value) != 26 {
		return ChunkID{}, fmt.Errorf("invalid chunk id length: %d (want 26)", len(value))
	}
	decoded, err := chunkIDEncoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		return ChunkID{}, fmt.Errorf("invalid chunk id: %w", err)
	}
	var id ChunkID
	copy(id[:], decoded)
	return id, nil
}

// String returns the 26-character lowercase base32hex representation.
func (id ChunkID) String() string {
	return strings.ToLower(chunkIDEncoding.EncodeToString(id[:]))
}

// Time returns the creation time encoded in the UUIDv7 ChunkID.
func (id ChunkID) Time() time.Time {
	ms := int64(id[0])<<40 | int64(id[1])<<32 | int64(id[2])<<24 |
		int64(id[3])<<16 | int64(id[4])<<8 | int64(id[5])
	return time.UnixMilli(ms)
}

// Compare gives the total order chunks need for override resolution:
// newer chunks compare strictly greater, since UUIDv7's time-then-random
// layout means raw byte comparison already matches creation order.
func (id ChunkID) Compare(other ChunkID) int {
	return bytes.Compare(id[:], other[:])
}

// Less reports whether id was created strictly before other.
func (id ChunkID) Less(other ChunkID) bool {
	return id.Compare(other) < 0
}

// IsZero reports whether id is the zero value, used to represent "no
// chunk" (e.g. an empty summary has no maximum chunk ID).
func (id ChunkID) IsZero() bool {
	return id == ChunkID{}
}
