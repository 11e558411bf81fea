// Package read implements the segment read path: streaming a segment's
// rows while skipping positions that a later chunk has overridden.
package read

import (
	"context"
	"fmt"
	"iter"

	"segstore/internal/segment"
	"segstore/internal/store"
)

// Row is one live (non-overridden) row surfaced by Stream. ColumnVectors
// holds the full opaque per-column byte blobs for Row's chunk — every
// Row drawn from the same chunk shares the same ColumnVectors slice, one
// per requested column — and Position indexes into them; this layer
// never decodes a vector to extract a single value, since the vector
// codec is an external collaborator this layer treats as opaque.
type Row struct {
	ChunkID       segment.ChunkID
	Position      int
	Key           []byte
	Columns       []string
	ColumnVectors [][]byte
}

// Stream returns a push-based iterator over a segment's live rows, in
// write order by chunk and ascending position order within a chunk,
// projected to columns. Iteration stops at the first error; the error is
// yielded as the iterator's second value and no further rows follow it.
//
// Masks are computed from chunk metadata alone: column vectors for a
// chunk are only fetched once that chunk's mask is known and it turns
// out to have at least one live row to yield.
func Stream(ctx context.Context, st store.Store, partition, seg string, columns []string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		_, summary, err := st.LoadSummary(ctx, partition, seg)
		if err != nil {
			yield(Row{}, fmt.Errorf("read: load summary: %w", err))
			return
		}
		if summary.NumChunks() == 0 {
			return
		}

		metas := make([]segment.ChunkMeta, summary.NumChunks())
		for i, entry := range summary.Entries {
			meta, err := st.LoadChunkMeta(ctx, partition, seg, entry.ChunkID)
			if err != nil {
				yield(Row{}, fmt.Errorf("read: load chunk meta %s: %w", entry.ChunkID, err))
				return
			}
			metas[i] = meta
		}

		masks := computeMasks(metas)

		for i, meta := range metas {
			live := livePositions(meta.NumRows, masks[i])
			if len(live) == 0 {
				continue
			}

			keys, err := st.LoadChunkKeys(ctx, partition, seg, meta.ChunkID)
			if err != nil {
				yield(Row{}, fmt.Errorf("read: load chunk keys %s: %w", meta.ChunkID, err))
				return
			}
			vectors, err := st.LoadChunkColumns(ctx, partition, seg, meta.ChunkID, columns)
			if err != nil {
				yield(Row{}, fmt.Errorf("read: load chunk columns %s: %w", meta.ChunkID, err))
				return
			}

			for _, pos := range live {
				row := Row{
					ChunkID:       meta.ChunkID,
					Position:      pos,
					Key:           keys[pos],
					Columns:       columns,
					ColumnVectors: vectors,
				}
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// computeMasks returns, for each chunk index i, the set of positions in
// chunk i that some strictly later chunk j>i overrides.
func computeMasks(metas []segment.ChunkMeta) []map[int]struct{} {
	masks := make([]map[int]struct{}, len(metas))
	for i := range masks {
		masks[i] = make(map[int]struct{})
	}
	index := make(map[segment.ChunkID]int, len(metas))
	for i, m := range metas {
		index[m.ChunkID] = i
	}
	for j, later := range metas {
		for prior, positions := range later.Overrides {
			i, ok := index[prior]
			if !ok || i >= j {
				continue
			}
			for _, p := range positions {
				masks[i][p] = struct{}{}
			}
		}
	}
	return masks
}

// livePositions returns the ascending positions in [0, numRows) absent
// from masked.
func livePositions(numRows int, masked map[int]struct{}) []int {
	live := make([]int, 0, numRows-len(masked))
	for p := 0; p < numRows; p++ {
		if _, hit := masked[p]; hit {
			continue
		}
		live = append(live, p)
	}
	return live
}
