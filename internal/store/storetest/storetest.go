// Package storetest provides a shared conformance suite exercised against
// every store.Store backend, mirroring the teacher's config/storetest
// pattern of one behavioral contract checked identically across backends.
package storetest

import (
	"context"
	"errors"
	"testing"

	"segstore/internal/engineerr"
	"segstore/internal/segment"
	"segstore/internal/store"
)

// Factory constructs a fresh, empty backend for one subtest.
type Factory func(t *testing.T) store.Store

// TestStore runs the full conformance suite against newStore(t).
func TestStore(t *testing.T, newStore Factory) {
	t.Run("EmptySegmentLoadsZeroVersion", func(t *testing.T) { testEmptySegment(t, newStore) })
	t.Run("WriteChunkThenCAS", func(t *testing.T) { testWriteChunkThenCAS(t, newStore) })
	t.Run("CASRejectsStaleExpected", func(t *testing.T) { testCASRejectsStale(t, newStore) })
	t.Run("LoadChunkMissingIsErrChunkNotFound", func(t *testing.T) { testLoadChunkMissing(t, newStore) })
	t.Run("ClearAllRemovesEverything", func(t *testing.T) { testClearAll(t, newStore) })
	t.Run("DeleteProjectionIsScoped", func(t *testing.T) { testDeleteProjection(t, newStore) })
}

func testEmptySegment(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	version, summary, err := s.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if version != "" {
		t.Errorf("expected empty version for uncommitted segment, got %q", version)
	}
	if summary.NumChunks() != 0 {
		t.Errorf("expected empty summary, got %d chunks", summary.NumChunks())
	}
}

func testWriteChunkThenCAS(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	id := segment.NewChunkID()
	keys := [][]byte{[]byte("a"), []byte("b")}
	chunk, err := segment.NewChunk(id, keys, []string{"value"}, [][]byte{[]byte("vv")}, 2, nil)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	if err := s.WriteChunk(ctx, "p1", "s1", chunk); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}

	newSummary := segment.Empty().WithKeys(id, keys)
	ok, err := s.CASSummary(ctx, "p1", "s1", "", "v1", newSummary)
	if err != nil {
		t.Fatalf("CASSummary: %v", err)
	}
	if !ok {
		t.Fatal("expected CAS to succeed against empty version")
	}

	version, summary, err := s.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if version != "v1" {
		t.Errorf("version = %q, want v1", version)
	}
	if summary.NumChunks() != 1 {
		t.Fatalf("expected 1 chunk, got %d", summary.NumChunks())
	}
	for _, k := range keys {
		if !summary.Entries[0].Summary.Digest.Contains(k) {
			t.Errorf("digest does not claim membership for %q", k)
		}
	}

	gotKeys, err := s.LoadChunkKeys(ctx, "p1", "s1", id)
	if err != nil {
		t.Fatalf("LoadChunkKeys: %v", err)
	}
	if len(gotKeys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(gotKeys))
	}

	gotMeta, err := s.LoadChunkMeta(ctx, "p1", "s1", id)
	if err != nil {
		t.Fatalf("LoadChunkMeta: %v", err)
	}
	if gotMeta.NumRows != 2 {
		t.Errorf("meta.NumRows = %d, want 2", gotMeta.NumRows)
	}

	cols, err := s.LoadChunkColumns(ctx, "p1", "s1", id, []string{"value"})
	if err != nil {
		t.Fatalf("LoadChunkColumns: %v", err)
	}
	if string(cols[0]) != "vv" {
		t.Errorf("column vector = %q, want vv", cols[0])
	}
}

func testCASRejectsStale(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	keys := [][]byte{[]byte("a")}
	sum1 := segment.Empty().WithKeys(segment.NewChunkID(), keys)
	ok, err := s.CASSummary(ctx, "p1", "s1", "", "v1", sum1)
	if err != nil || !ok {
		t.Fatalf("first CAS: ok=%v err=%v", ok, err)
	}

	// Racing writer still thinks the version is empty.
	sum2 := segment.Empty().WithKeys(segment.NewChunkID(), [][]byte{[]byte("b")})
	ok, err = s.CASSummary(ctx, "p1", "s1", "", "v2", sum2)
	if err != nil {
		t.Fatalf("second CAS: %v", err)
	}
	if ok {
		t.Fatal("expected second CAS to lose the race")
	}

	version, summary, err := s.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if version != "v1" {
		t.Errorf("version = %q, want v1 (unchanged by lost race)", version)
	}
	if summary.NumChunks() != 1 {
		t.Errorf("expected the losing write to have no effect, got %d chunks", summary.NumChunks())
	}
}

func testLoadChunkMissing(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.LoadChunkKeys(ctx, "p1", "s1", segment.NewChunkID())
	if err == nil {
		t.Fatal("expected error for missing chunk")
	}
	if !errors.Is(err, engineerr.ErrChunkNotFound) {
		t.Errorf("expected engineerr.ErrChunkNotFound, got %v", err)
	}
}

func testClearAll(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	sum := segment.Empty().WithKeys(segment.NewChunkID(), [][]byte{[]byte("a")})
	if _, err := s.CASSummary(ctx, "p1", "s1", "", "v1", sum); err != nil {
		t.Fatalf("CASSummary: %v", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	version, summary, err := s.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if version != "" || summary.NumChunks() != 0 {
		t.Errorf("expected cleared state, got version=%q chunks=%d", version, summary.NumChunks())
	}
}

func testDeleteProjection(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	sum := segment.Empty().WithKeys(segment.NewChunkID(), [][]byte{[]byte("a")})
	if _, err := s.CASSummary(ctx, "p1", "s1", "", "v1", sum); err != nil {
		t.Fatalf("CASSummary p1/s1: %v", err)
	}
	if _, err := s.CASSummary(ctx, "p1", "s2", "", "v1", sum); err != nil {
		t.Fatalf("CASSummary p1/s2: %v", err)
	}

	if err := s.DeleteProjection(ctx, "p1", "s1"); err != nil {
		t.Fatalf("DeleteProjection: %v", err)
	}

	version, summary, err := s.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary p1/s1: %v", err)
	}
	if version != "" || summary.NumChunks() != 0 {
		t.Errorf("expected p1/s1 to be gone, got version=%q chunks=%d", version, summary.NumChunks())
	}

	_, summary, err = s.LoadSummary(ctx, "p1", "s2")
	if err != nil {
		t.Fatalf("LoadSummary p1/s2: %v", err)
	}
	if summary.NumChunks() != 1 {
		t.Errorf("expected p1/s2 to be untouched, got %d chunks", summary.NumChunks())
	}
}
