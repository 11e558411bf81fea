// Package flush implements the Flush Protocol: the single
// read-modify-write cycle that appends a batch of rows to a segment,
// computing which rows in earlier chunks it overrides and committing
// atomically via compare-and-swap on the segment's summary.
package flush

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"segstore/internal/keytype"
	"segstore/internal/logging"
	"segstore/internal/segment"
	"segstore/internal/store"
)

// Batch is a prepared, already-encoded set of rows destined for one
// (partition, segment). Keys are already KeyType-encoded; ColumnVectors
// parallels Columns, one opaque byte vector per column. The vector
// codec is an external collaborator: this package cannot slice an
// opaque column vector at the row level, so intra-batch "last write
// wins" deduplication of actual row content is the batch preparer's
// responsibility (see ingest.BuildBatch). Flush itself only deduplicates
// the key list when computing prior-chunk overrides and the new summary
// digest — it never touches row content.
type Batch struct {
	IncomingKeys          [][]byte
	Columns               []string
	IncomingColumnVectors [][]byte
	NumRows               int
}

// Protocol runs the Flush Protocol against a Store using KeyType only to
// validate that incoming keys were encoded consistently; key comparison
// itself is always exact byte equality on the encoded bytes, never on
// decoded values.
type Protocol struct {
	Store   store.Store
	KeyType keytype.KeyType
	Logger  *slog.Logger
}

// Flush runs one attempt of the protocol. A false result with a nil
// error means a normal lost CAS race; the caller is expected to retry
// from Flush again, which re-reads the current summary.
func (p *Protocol) Flush(ctx context.Context, partition, seg string, batch Batch) (bool, error) {
	logger := logging.Default(p.Logger).With("component", "flush-protocol", "partition", partition, "segment", seg)

	if len(batch.IncomingKeys) != batch.NumRows {
		return false, fmt.Errorf("flush: %d keys but numRows=%d", len(batch.IncomingKeys), batch.NumRows)
	}
	if p.KeyType != nil {
		for i, k := range batch.IncomingKeys {
			if _, err := p.KeyType.DecodeKey(k); err != nil {
				return false, fmt.Errorf("flush: key at row %d is not valid for this KeyType: %w", i, err)
			}
		}
	}

	// Step 1: load.
	version, summary, err := p.Store.LoadSummary(ctx, partition, seg)
	if err != nil {
		return false, fmt.Errorf("flush: load summary: %w", err)
	}

	distinctKeys := dedupeLastWriteWins(batch.IncomingKeys)

	// Step 2: prefilter.
	candidates := summary.PossibleOverrides(distinctKeys)

	// Step 3: fetch keys, possibly in parallel across candidates.
	fetched := make([]segment.CandidateChunk, len(candidates))
	if len(candidates) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for i, cid := range candidates {
			i, cid := i, cid
			g.Go(func() error {
				keys, err := p.Store.LoadChunkKeys(gctx, partition, seg, cid)
				if err != nil {
					return fmt.Errorf("flush: load chunk keys for %s: %w", cid, err)
				}
				fetched[i] = segment.CandidateChunk{ChunkID: cid, Keys: keys}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return false, err
		}
	}

	// Step 4: exact compute.
	overrides := segment.ActualOverrides(distinctKeys, fetched)
	overrideMap := make(map[segment.ChunkID][]int, len(overrides))
	for _, o := range overrides {
		overrideMap[o.ChunkID] = o.Positions
	}

	// Step 5: assemble.
	newChunkID := segment.NewChunkID()
	if maxExisting := summary.MaxChunkID(); !maxExisting.IsZero() && !maxExisting.Less(newChunkID) {
		return false, fmt.Errorf("flush: minted chunk id %s does not sort after existing max %s", newChunkID, maxExisting)
	}
	chunk, err := segment.NewChunk(newChunkID, batch.IncomingKeys, batch.Columns, batch.IncomingColumnVectors, batch.NumRows, overrideMap)
	if err != nil {
		return false, fmt.Errorf("flush: assemble chunk: %w", err)
	}

	if err := p.Store.WriteChunk(ctx, partition, seg, chunk); err != nil {
		return false, fmt.Errorf("flush: write chunk: %w", err)
	}

	// Step 6: extend summary.
	newSummary := summary.WithKeys(newChunkID, distinctKeys)

	// Step 7: commit.
	nextVersion := store.Version(newChunkID.String())
	ok, err := p.Store.CASSummary(ctx, partition, seg, version, nextVersion, newSummary)
	if err != nil {
		return false, fmt.Errorf("flush: cas summary: %w", err)
	}
	if !ok {
		logger.Debug("cas lost race, caller must retry", "attempted_version", version)
		return false, nil
	}
	return true, nil
}

// dedupeLastWriteWins returns the distinct keys in keys, in first-seen
// order, for computing prior-chunk overrides and the new summary digest.
// Row content dedup (which occurrence of a repeated key survives) is the
// batch preparer's job; by the time a batch reaches Flush, IncomingKeys
// already reflects the one surviving row per key.
func dedupeLastWriteWins(keys [][]byte) [][]byte {
	seen := make(map[string]struct{}, len(keys))
	var distinct [][]byte
	for _, k := range keys {
		s := string(k)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		distinct = append(distinct, k)
	}
	return distinct
}
