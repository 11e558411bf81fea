package segment

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"segstore/internal/digest"
)

// ChunkSummary is a compact per-chunk record: a probabilistic key digest
// plus the chunk's row count.
type ChunkSummary struct {
	Digest  digest.KeySetDigest
	NumRows int
}

// SummaryEntry pairs a chunk ID with its summary, in write order.
type SummaryEntry struct {
	ChunkID ChunkID
	Summary ChunkSummary
}

// SegmentSummary is the ordered sequence of (ChunkID, ChunkSummary) for
// all committed chunks of a segment. It carries no version itself — the
// MVCC version is an opaque token owned by the persistent store and
// travels alongside a SegmentSummary, never inside it.
type SegmentSummary struct {
	Entries []SummaryEntry
}

// Empty returns the summary for a segment with no committed chunks.
func Empty() *SegmentSummary {
	return &SegmentSummary{}
}

// NumChunks returns the number of committed chunks.
func (s *SegmentSummary) NumChunks() int {
	return len(s.Entries)
}

// PossibleOverrides returns, for each existing chunk, whether its digest
// claims membership for at least one of incomingKeys. A positive count
// always triggers an exact check downstream, regardless of how small that
// count is — a single possible hit is as conclusive as a hundred.
func (s *SegmentSummary) PossibleOverrides(incomingKeys [][]byte) []ChunkID {
	var candidates []ChunkID
	for _, entry := range s.Entries {
		count := 0
		for _, key := range incomingKeys {
			if entry.Summary.Digest.Contains(key) {
				count++
			}
		}
		if count > 0 {
			candidates = append(candidates, entry.ChunkID)
		}
	}
	return candidates
}

// CandidateChunk is one already-committed chunk's keys, fetched because
// its digest claimed a possible hit.
type CandidateChunk struct {
	ChunkID ChunkID
	Keys    [][]byte
}

// Override is one (priorChunkId, positions) record produced by
// ActualOverrides or consumed when assembling a new chunk.
type Override struct {
	ChunkID   ChunkID
	Positions []int
}

// ActualOverrides computes, for each candidate chunk's key list, the
// exact positions (in that chunk's key order) whose key equals any
// incoming key. Entries with no matching positions are omitted.
func ActualOverrides(incomingKeys [][]byte, candidates []CandidateChunk) []Override {
	incoming := make(map[string]struct{}, len(incomingKeys))
	for _, k := range incomingKeys {
		incoming[string(k)] = struct{}{}
	}

	var overrides []Override
	for _, cand := range candidates {
		var positions []int
		for pos, key := range cand.Keys {
			if _, hit := incoming[string(key)]; hit {
				positions = append(positions, pos)
			}
		}
		if len(positions) > 0 {
			overrides = append(overrides, Override{ChunkID: cand.ChunkID, Positions: positions})
		}
	}
	return overrides
}

// WithKeys returns a new summary that appends (chunkID, digest-over-keys)
// to the end. The receiver is not mutated — every flush that reads a
// summary holds an immutable snapshot it can safely race against other
// flushers without corrupting shared state.
func (s *SegmentSummary) WithKeys(chunkID ChunkID, keys [][]byte) *SegmentSummary {
	entries := make([]SummaryEntry, len(s.Entries), len(s.Entries)+1)
	copy(entries, s.Entries)
	entries = append(entries, SummaryEntry{
		ChunkID: chunkID,
		Summary: ChunkSummary{
			Digest:  digest.NewBloomDigest(keys, len(keys)),
			NumRows: len(keys),
		},
	})
	return &SegmentSummary{Entries: entries}
}

// Size returns an upper-bound byte size for storage provisioning: the sum
// of each entry's serialized digest plus its fixed-size header.
func (s *SegmentSummary) Size() (int, error) {
	total := 4
	for _, entry := range s.Entries {
		digestBytes, err := entry.Summary.Digest.Bytes()
		if err != nil {
			return 0, err
		}
		total += 16 + 4 + len(digestBytes) + 4
	}
	return total, nil
}

// MaxChunkID returns the greatest chunk ID in the summary, used by the
// flush protocol to mint a chunk ID that sorts after every existing one.
// The zero ChunkID is returned for an empty summary.
func (s *SegmentSummary) MaxChunkID() ChunkID {
	var max ChunkID
	for _, entry := range s.Entries {
		if max.Less(entry.ChunkID) {
			max = entry.ChunkID
		}
	}
	return max
}

// EncodeSummary serializes a SegmentSummary: int32 count, then
// count x {bytes[16] chunkId, int32 digestLen, bytes[digestLen] digest,
// int32 numRows}. An empty summary encodes as count=0.
func EncodeSummary(s *SegmentSummary) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(s.Entries)))

	for _, entry := range s.Entries {
		digestBytes, err := entry.Summary.Digest.Bytes()
		if err != nil {
			return nil, fmt.Errorf("chunk %s: encode digest: %w", entry.ChunkID, err)
		}
		buf = append(buf, entry.ChunkID[:]...)
		var lenBytes [4]byte
		binary.BigEndian.PutUint32(lenBytes[:], uint32(len(digestBytes)))
		buf = append(buf, lenBytes[:]...)
		buf = append(buf, digestBytes...)
		var rowsBytes [4]byte
		binary.BigEndian.PutUint32(rowsBytes[:], uint32(entry.Summary.NumRows)) //nolint:gosec // G115: numRows bounded by batch size
		buf = append(buf, rowsBytes[:]...)
	}
	return buf, nil
}

// DecodeSummary restores a SegmentSummary previously written by
// EncodeSummary.
func DecodeSummary(data []byte) (*SegmentSummary, error) {
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("truncated summary count: %w", err)
	}

	entries := make([]SummaryEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var id ChunkID
		if _, err := r.Read(id[:]); err != nil {
			return nil, fmt.Errorf("truncated chunk id at index %d: %w", i, err)
		}

		var digestLen uint32
		if err := binary.Read(r, binary.BigEndian, &digestLen); err != nil {
			return nil, fmt.Errorf("truncated digest length at index %d: %w", i, err)
		}
		digestBytes := make([]byte, digestLen)
		if _, err := r.Read(digestBytes); err != nil {
			return nil, fmt.Errorf("truncated digest bytes at index %d: %w", i, err)
		}
		bloomDigest, err := digest.DecodeBloomDigest(digestBytes)
		if err != nil {
			return nil, fmt.Errorf("decode digest at index %d: %w", i, err)
		}

		var numRows uint32
		if err := binary.Read(r, binary.BigEndian, &numRows); err != nil {
			return nil, fmt.Errorf("truncated numRows at index %d: %w", i, err)
		}

		entries = append(entries, SummaryEntry{
			ChunkID: id,
			Summary: ChunkSummary{Digest: bloomDigest, NumRows: int(numRows)},
		})
	}

	return &SegmentSummary{Entries: entries}, nil
}
