// Package store defines the persistent-store collaborator: the
// key-addressable backing store the engine core treats as an external
// dependency. Two concrete backends ship in sub-packages — memory (a
// reference implementation) and sqlite (a persisted one) — so the core
// can actually be exercised and tested.
package store

import (
	"context"

	"segstore/internal/segment"
)

// Version is an opaque CAS token for a (partition, segment)'s summary.
// The empty Version means "no summary has ever been committed" and is
// only ever returned by LoadSummary, never accepted as a "current"
// version by a caller that has successfully flushed before.
type Version string

// Store is the persistent-store collaborator the engine core is built
// against; it never assumes a particular backend.
type Store interface {
	// LoadSummary fetches the current (version, summary) for a segment.
	// A segment with no committed chunks returns ("", segment.Empty(), nil).
	LoadSummary(ctx context.Context, partition, seg string) (Version, *segment.SegmentSummary, error)

	// WriteChunk persists a chunk's metadata, keys, and column vectors.
	// The chunk is not visible to readers until a subsequent CASSummary
	// references it.
	WriteChunk(ctx context.Context, partition, seg string, c *segment.Chunk) error

	// CASSummary atomically replaces (expected, *) with (next, s) iff the
	// stored version currently equals expected. Returns false, nil on a
	// normal lost race — never an error.
	CASSummary(ctx context.Context, partition, seg string, expected, next Version, s *segment.SegmentSummary) (bool, error)

	LoadChunkKeys(ctx context.Context, partition, seg string, id segment.ChunkID) ([][]byte, error)
	LoadChunkColumns(ctx context.Context, partition, seg string, id segment.ChunkID, columns []string) ([][]byte, error)
	LoadChunkMeta(ctx context.Context, partition, seg string, id segment.ChunkID) (segment.ChunkMeta, error)

	// Initialize prepares the backing store for use (schema creation,
	// connection warmup). Idempotent.
	Initialize(ctx context.Context) error

	// ClearAll removes every partition/segment/chunk this store holds.
	ClearAll(ctx context.Context) error

	// DeleteProjection removes a single (partition, segment)'s summary
	// and chunks.
	DeleteProjection(ctx context.Context, partition, seg string) error

	// ScanSplits enumerates the store's contents for batch/analytics
	// consumers as one Split per (partition, segment), ordered by
	// partition and then segment. Only PartitionFilter is applied; the
	// token bounds, Projection, ColumnSubset and KeyRangeFilter are not
	// used, and StartToken/EndToken are left zero.
	ScanSplits(ctx context.Context, opts SplitOptions) ([]Split, error)
}

// SplitOptions parametrizes ScanSplits.
type SplitOptions struct {
	MinTokensPerSplit int
	MaxTokensPerSplit int
	Projection        string
	ColumnSubset      []string
	PartitionFilter   *string
	KeyRangeFilter    *KeyRange
}

// KeyRange bounds a split by already-encoded key bytes.
type KeyRange struct {
	Start []byte
	End   []byte
}

// Split identifies one coarse-grained unit of a scan.
type Split struct {
	Partition  string
	Segment    string
	StartToken int64
	EndToken   int64
}
