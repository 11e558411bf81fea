package segment

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// EncodeMeta serializes a chunk's metadata buffer:
// int32 overridesCount, then overridesCount entries of
// {bytes[16] priorChunkId, int32 posCount, int32[posCount] positions},
// followed by int32 numRows. All integers are big-endian.
//
// Override entries are written in ascending prior-chunk-ID order so the
// encoding is deterministic regardless of map iteration order.
func EncodeMeta(meta ChunkMeta) []byte {
	priors := make([]ChunkID, 0, len(meta.Overrides))
	for prior := range meta.Overrides {
		priors = append(priors, prior)
	}
	sort.Slice(priors, func(i, j int) bool { return priors[i].Less(priors[j]) })

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(priors)))

	for _, prior := range priors {
		positions := meta.Overrides[prior]
		buf = append(buf, prior[:]...)
		var countBytes [4]byte
		binary.BigEndian.PutUint32(countBytes[:], uint32(len(positions)))
		buf = append(buf, countBytes[:]...)
		for _, p := range positions {
			var posBytes [4]byte
			binary.BigEndian.PutUint32(posBytes[:], uint32(p)) //nolint:gosec // G115: row positions are bounded by chunk size, always far below 1<<31
			buf = append(buf, posBytes[:]...)
		}
	}

	var numRowsBytes [4]byte
	binary.BigEndian.PutUint32(numRowsBytes[:], uint32(meta.NumRows)) //nolint:gosec // G115: numRows bounded by batch size
	buf = append(buf, numRowsBytes[:]...)

	return buf
}

// DecodeMeta restores a ChunkMeta from its metadata buffer. id is the
// chunk's own ID (not part of the metadata buffer itself — it is the
// store key the buffer was loaded under).
func DecodeMeta(id ChunkID, data []byte) (ChunkMeta, error) {
	r := &reader{data: data}

	overridesCount, err := r.uint32()
	if err != nil {
		return ChunkMeta{}, fmt.Errorf("chunk %s: truncated overrides count: %w", id, err)
	}

	overrides := make(map[ChunkID][]int, overridesCount)
	for i := uint32(0); i < overridesCount; i++ {
		priorBytes, err := r.bytes(16)
		if err != nil {
			return ChunkMeta{}, fmt.Errorf("chunk %s: truncated prior chunk id: %w", id, err)
		}
		var prior ChunkID
		copy(prior[:], priorBytes)

		posCount, err := r.uint32()
		if err != nil {
			return ChunkMeta{}, fmt.Errorf("chunk %s: truncated position count: %w", id, err)
		}
		positions := make([]int, 0, posCount)
		for j := uint32(0); j < posCount; j++ {
			p, err := r.uint32()
			if err != nil {
				return ChunkMeta{}, fmt.Errorf("chunk %s: truncated position: %w", id, err)
			}
			positions = append(positions, int(p))
		}
		overrides[prior] = positions
	}

	numRows, err := r.uint32()
	if err != nil {
		return ChunkMeta{}, fmt.Errorf("chunk %s: truncated numRows: %w", id, err)
	}

	return ChunkMeta{ChunkID: id, NumRows: int(numRows), Overrides: overrides}, nil
}

// EncodeKeys serializes a chunk's key buffer: int32 keyCount, then
// keyCount records of {int32 byteLen, bytes[byteLen] keyPayload}. Keys are
// already KeyType-encoded by the caller; this layer treats them as opaque.
func EncodeKeys(keys [][]byte) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		var lenBytes [4]byte
		binary.BigEndian.PutUint32(lenBytes[:], uint32(len(k)))
		buf = append(buf, lenBytes[:]...)
		buf = append(buf, k...)
	}
	return buf
}

// DecodeKeys restores the key list from a key buffer.
func DecodeKeys(data []byte) ([][]byte, error) {
	r := &reader{data: data}
	count, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("truncated key count: %w", err)
	}
	keys := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		n, err := r.uint32()
		if err != nil {
			return nil, fmt.Errorf("truncated key length at index %d: %w", i, err)
		}
		payload, err := r.bytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("truncated key payload at index %d: %w", i, err)
		}
		keys = append(keys, payload)
	}
	return keys, nil
}

// reader is a small cursor over a byte slice, mirroring schema's decoder.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if len(r.data)-r.pos < n {
		return nil, fmt.Errorf("unexpected end of data")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
