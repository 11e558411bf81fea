package segment

import (
	"fmt"
	"sort"
)

// Chunk is a set of numRows rows appended in one flush. It is immutable
// after construction: nothing in this package ever mutates a Chunk's
// fields once NewChunk returns.
type Chunk struct {
	ChunkID ChunkID

	// Keys holds one already-KeyType-encoded key per row, in row order.
	Keys [][]byte

	// Columns and ColumnVectors are parallel: Columns[i] names the column
	// whose opaque byte-vector payload is ColumnVectors[i]. The vector
	// codec itself is an external collaborator; this layer treats each
	// vector as an opaque blob of exactly NumRows encoded values.
	Columns       []string
	ColumnVectors [][]byte

	NumRows int

	// Overrides maps a strictly earlier chunk ID in the same segment to
	// the sorted, ascending row positions in that chunk which this chunk
	// supersedes.
	Overrides map[ChunkID][]int
}

// ChunkMeta is the decoded form of a chunk's metadata buffer: everything
// needed to compute override masks without touching column vectors.
type ChunkMeta struct {
	ChunkID   ChunkID
	NumRows   int
	Overrides map[ChunkID][]int
}

// NewChunk constructs a Chunk, enforcing its structural contract:
//   - len(columns) == len(columnVectors)
//   - exactly numRows keys
//   - every override entry names a chunk ID strictly earlier than id
//
// Position lists are sorted ascending on the way in so every later reader
// of Overrides can rely on that order without re-checking it.
func NewChunk(id ChunkID, keys [][]byte, columns []string, columnVectors [][]byte, numRows int, overrides map[ChunkID][]int) (*Chunk, error) {
	if len(columns) != len(columnVectors) {
		return nil, fmt.Errorf("chunk %s: %d columns but %d column vectors", id, len(columns), len(columnVectors))
	}
	if len(keys) != numRows {
		return nil, fmt.Errorf("chunk %s: %d keys but numRows=%d", id, len(keys), numRows)
	}

	normalized := make(map[ChunkID][]int, len(overrides))
	for prior, positions := range overrides {
		if !prior.Less(id) {
			return nil, fmt.Errorf("chunk %s: override references %s, which is not strictly earlier", id, prior)
		}
		if len(positions) == 0 {
			continue // omit entries with empty position lists.
		}
		sorted := append([]int(nil), positions...)
		sort.Ints(sorted)
		normalized[prior] = sorted
	}

	return &Chunk{
		ChunkID:       id,
		Keys:          keys,
		Columns:       columns,
		ColumnVectors: columnVectors,
		NumRows:       numRows,
		Overrides:     normalized,
	}, nil
}

// Meta extracts the metadata-only view of the chunk.
func (c *Chunk) Meta() ChunkMeta {
	return ChunkMeta{ChunkID: c.ChunkID, NumRows: c.NumRows, Overrides: c.Overrides}
}
