// Package digest wraps a probabilistic set-membership structure as the
// engine's KeySetDigest: false positives are allowed, false negatives
// never are. The segment summary uses one digest per chunk to prefilter
// candidate override chunks before paying for an exact key fetch.
package digest

import (
	"bytes"

	"github.com/bits-and-blooms/bloom/v3"
)

// KeySetDigest is a probabilistic membership structure over a chunk's
// keys. Implementations must never produce a false negative: Contains
// must return true for every key actually added.
type KeySetDigest interface {
	Contains(key []byte) bool
	Bytes() ([]byte, error)
}

// falsePositiveRate bounds the bloom filter's false-positive probability.
// This is a prefilter only — a positive hit still pays for an exact key
// fetch and comparison in the flush protocol, so a higher rate only costs
// extra I/O, never correctness.
const falsePositiveRate = 0.01

// BloomDigest is the engine's KeySetDigest, backed by
// github.com/bits-and-blooms/bloom/v3 — the same library segment-oriented
// storage engines in this retrieval pack (e.g. milvus's per-segment
// primary-key filter) use for exactly this role.
type BloomDigest struct {
	filter *bloom.BloomFilter
}

// NewBloomDigest builds a digest sized for numRows keys and adds keys to
// it. numRows should be the exact or estimated row count of the chunk
// the digest covers.
func NewBloomDigest(keys [][]byte, numRows int) *BloomDigest {
	n := numRows
	if n < 1 {
		n = 1
	}
	filter := bloom.NewWithEstimates(uint(n), falsePositiveRate) //nolint:gosec // G115: numRows is a chunk row count, always small relative to uint range
	for _, k := range keys {
		filter.Add(k)
	}
	return &BloomDigest{filter: filter}
}

// DecodeBloomDigest restores a digest previously serialized with Bytes.
func DecodeBloomDigest(data []byte) (*BloomDigest, error) {
	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return &BloomDigest{filter: filter}, nil
}

// Contains reports possible membership; a true result always requires an
// exact check, since a bloom filter never produces false negatives but can
// produce false positives. Callers always confirm a hit against the real
// key set rather than skipping the exact check for small chunks.
func (d *BloomDigest) Contains(key []byte) bool {
	return d.filter.Test(key)
}

// Bytes serializes the digest for storage in a ChunkSummary record.
func (d *BloomDigest) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.filter.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ KeySetDigest = (*BloomDigest)(nil)
