// Package memory provides an in-memory store.Store implementation. It is
// the reference backend: correct and simple, not durable. Grounded on the
// teacher's chunk/memory manager and meta-store pair — a mutex-guarded
// map is exactly the right shape for a single-process reference store.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"segstore/internal/engineerr"
	"segstore/internal/logging"
	"segstore/internal/segment"
	"segstore/internal/store"
)

type projKey struct {
	partition string
	segment   string
}

type projState struct {
	version store.Version
	summary *segment.SegmentSummary
	chunks  map[segment.ChunkID]*segment.Chunk
}

// Store is an in-memory store.Store. Safe for concurrent use; CAS
// serializes on a single mutex, which is sufficient for a reference
// backend that is never the bottleneck in practice.
type Store struct {
	mu          sync.Mutex
	projections map[projKey]*projState
	logger      *slog.Logger
}

// Config configures a Store.
type Config struct {
	Logger *slog.Logger
}

// New creates an empty in-memory Store.
func New(cfg Config) *Store {
	return &Store{
		projections: make(map[projKey]*projState),
		logger:      logging.Default(cfg.Logger).With("component", "store", "type", "memory"),
	}
}

func (s *Store) LoadSummary(_ context.Context, partition, seg string) (store.Version, *segment.SegmentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projections[projKey{partition, seg}]
	if !ok {
		return "", segment.Empty(), nil
	}
	return p.version, p.summary, nil
}

func (s *Store) WriteChunk(_ context.Context, partition, seg string, c *segment.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projectionLocked(partition, seg)
	p.chunks[c.ChunkID] = c
	return nil
}

func (s *Store) CASSummary(_ context.Context, partition, seg string, expected, next store.Version, sum *segment.SegmentSummary) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projectionLocked(partition, seg)
	if p.version != expected {
		s.logger.Debug("cas conflict", "partition", partition, "segment", seg, "expected", expected, "current", p.version)
		return false, nil
	}
	p.version = next
	p.summary = sum
	return true, nil
}

func (s *Store) LoadChunkKeys(_ context.Context, partition, seg string, id segment.ChunkID) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.projectionLocked(partition, seg).chunks[id]
	if !ok {
		return nil, engineerr.ErrChunkNotFound
	}
	return c.Keys, nil
}

func (s *Store) LoadChunkColumns(_ context.Context, partition, seg string, id segment.ChunkID, columns []string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.projectionLocked(partition, seg).chunks[id]
	if !ok {
		return nil, engineerr.ErrChunkNotFound
	}
	byName := make(map[string][]byte, len(c.Columns))
	for i, name := range c.Columns {
		byName[name] = c.ColumnVectors[i]
	}
	out := make([][]byte, len(columns))
	for i, name := range columns {
		vec, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("chunk %s: column %q not present", id, name)
		}
		out[i] = vec
	}
	return out, nil
}

func (s *Store) LoadChunkMeta(_ context.Context, partition, seg string, id segment.ChunkID) (segment.ChunkMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.projectionLocked(partition, seg).chunks[id]
	if !ok {
		return segment.ChunkMeta{}, engineerr.ErrChunkNotFound
	}
	return c.Meta(), nil
}

func (s *Store) Initialize(_ context.Context) error {
	return nil
}

func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projections = make(map[projKey]*projState)
	return nil
}

func (s *Store) DeleteProjection(_ context.Context, partition, seg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projections, projKey{partition, seg})
	return nil
}

func (s *Store) ScanSplits(_ context.Context, opts store.SplitOptions) ([]store.Split, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []projKey
	for k := range s.projections {
		if opts.PartitionFilter != nil && k.partition != *opts.PartitionFilter {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].partition != keys[j].partition {
			return keys[i].partition < keys[j].partition
		}
		return keys[i].segment < keys[j].segment
	})

	splits := make([]store.Split, 0, len(keys))
	for _, k := range keys {
		splits = append(splits, store.Split{Partition: k.partition, Segment: k.segment})
	}
	return splits, nil
}

// projectionLocked returns the projState for (partition, seg), creating
// an empty one on first touch. Callers must hold s.mu.
func (s *Store) projectionLocked(partition, seg string) *projState {
	key := projKey{partition, seg}
	p, ok := s.projections[key]
	if !ok {
		p = &projState{summary: segment.Empty(), chunks: make(map[segment.ChunkID]*segment.Chunk)}
		s.projections[key] = p
	}
	return p
}

var _ store.Store = (*Store)(nil)
