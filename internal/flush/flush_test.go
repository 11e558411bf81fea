package flush

import (
	"context"
	"testing"

	"segstore/internal/keytype"
	"segstore/internal/segment"
	"segstore/internal/store"
	"segstore/internal/store/memory"
)

func encKeys(t *testing.T, kt keytype.KeyType, values ...string) [][]byte {
	t.Helper()
	out := make([][]byte, len(values))
	for i, v := range values {
		enc, err := kt.EncodeKey(v)
		if err != nil {
			t.Fatalf("EncodeKey(%q): %v", v, err)
		}
		out[i] = enc
	}
	return out
}

// TestOverwrite ingests R1..R4, then re-ingests R1,R2 with different
// payloads. The summary ends with 2 chunks, and the second chunk's
// overrides reference positions 0,1 of the first chunk.
func TestOverwrite(t *testing.T) {
	ctx := context.Background()
	kt := keytype.String{}
	st := memory.New(memory.Config{})
	p := &Protocol{Store: st, KeyType: kt}

	keys1 := encKeys(t, kt, "R1", "R2", "R3", "R4")
	batch1 := Batch{
		IncomingKeys:          keys1,
		Columns:               []string{"value"},
		IncomingColumnVectors: [][]byte{[]byte("v1v2v3v4")},
		NumRows:               4,
	}
	ok, err := p.Flush(ctx, "p1", "s1", batch1)
	if err != nil || !ok {
		t.Fatalf("first flush: ok=%v err=%v", ok, err)
	}

	keys2 := encKeys(t, kt, "R1", "R2")
	batch2 := Batch{
		IncomingKeys:          keys2,
		Columns:               []string{"value"},
		IncomingColumnVectors: [][]byte{[]byte("v1-newv2-new")},
		NumRows:               2,
	}
	ok, err = p.Flush(ctx, "p1", "s1", batch2)
	if err != nil || !ok {
		t.Fatalf("second flush: ok=%v err=%v", ok, err)
	}

	_, summary, err := st.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if summary.NumChunks() != 2 {
		t.Fatalf("expected 2 chunks, got %d", summary.NumChunks())
	}

	firstChunkID := summary.Entries[0].ChunkID
	secondChunkID := summary.Entries[1].ChunkID

	meta, err := st.LoadChunkMeta(ctx, "p1", "s1", secondChunkID)
	if err != nil {
		t.Fatalf("LoadChunkMeta: %v", err)
	}
	positions, ok := meta.Overrides[firstChunkID]
	if !ok {
		t.Fatalf("expected chunk-2 to override chunk-1, overrides=%v", meta.Overrides)
	}
	if len(positions) != 2 || positions[0] != 0 || positions[1] != 1 {
		t.Errorf("expected overridden positions [0,1], got %v", positions)
	}
}

// TestConcurrentFlushCAS has two flushers load the same version, both
// build chunks, exactly one CAS succeeds; after retry the loser succeeds
// with a strictly greater chunk ID.
func TestConcurrentFlushCAS(t *testing.T) {
	ctx := context.Background()
	kt := keytype.String{}
	st := memory.New(memory.Config{})

	version, summary, err := st.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}

	p2 := &Protocol{Store: st, KeyType: kt}

	batchA := Batch{
		IncomingKeys:          encKeys(t, kt, "A"),
		Columns:               []string{"value"},
		IncomingColumnVectors: [][]byte{[]byte("a")},
		NumRows:               1,
	}
	batchB := Batch{
		IncomingKeys:          encKeys(t, kt, "B"),
		Columns:               []string{"value"},
		IncomingColumnVectors: [][]byte{[]byte("b")},
		NumRows:               1,
	}

	// Simulate both flushers having loaded the same (version, summary)
	// by driving the CAS step manually after independently assembling
	// chunks against that shared snapshot.
	newChunkA := segment.NewChunkID()
	chunkA, err := segment.NewChunk(newChunkA, batchA.IncomingKeys, batchA.Columns, batchA.IncomingColumnVectors, 1, nil)
	if err != nil {
		t.Fatalf("NewChunk A: %v", err)
	}
	newChunkB := segment.NewChunkID()
	chunkB, err := segment.NewChunk(newChunkB, batchB.IncomingKeys, batchB.Columns, batchB.IncomingColumnVectors, 1, nil)
	if err != nil {
		t.Fatalf("NewChunk B: %v", err)
	}

	if err := st.WriteChunk(ctx, "p1", "s1", chunkA); err != nil {
		t.Fatalf("WriteChunk A: %v", err)
	}
	if err := st.WriteChunk(ctx, "p1", "s1", chunkB); err != nil {
		t.Fatalf("WriteChunk B: %v", err)
	}

	summaryA := summary.WithKeys(newChunkA, batchA.IncomingKeys)
	summaryB := summary.WithKeys(newChunkB, batchB.IncomingKeys)

	okA, err := st.CASSummary(ctx, "p1", "s1", version, store.Version(newChunkA.String()), summaryA)
	if err != nil {
		t.Fatalf("CAS A: %v", err)
	}
	okB, err := st.CASSummary(ctx, "p1", "s1", version, store.Version(newChunkB.String()), summaryB)
	if err != nil {
		t.Fatalf("CAS B: %v", err)
	}

	if okA == okB {
		t.Fatalf("expected exactly one CAS to succeed, got okA=%v okB=%v", okA, okB)
	}

	var winnerChunkID segment.ChunkID
	var loserBatch Batch
	if okA {
		winnerChunkID = newChunkA
		loserBatch = batchB
	} else {
		winnerChunkID = newChunkB
		loserBatch = batchA
	}

	// Retry: the loser re-runs Flush from scratch against current state.
	ok, err := p2.Flush(ctx, "p1", "s1", loserBatch)
	if err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if !ok {
		t.Fatal("expected retry to succeed")
	}

	_, finalSummary, err := st.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if finalSummary.NumChunks() != 2 {
		t.Fatalf("expected 2 chunks referenced by the summary (winner + retried loser), got %d", finalSummary.NumChunks())
	}

	retriedChunkID := finalSummary.Entries[len(finalSummary.Entries)-1].ChunkID
	if !winnerChunkID.Less(retriedChunkID) {
		t.Errorf("expected retried chunk id %s to be strictly greater than winner %s", retriedChunkID, winnerChunkID)
	}
}

// TestFlushSkipsCandidatesWhenNoOverlap covers the "no candidates" tie
// break: a batch whose keys share no digest hits with existing chunks
// commits with no overrides.
func TestFlushSkipsCandidatesWhenNoOverlap(t *testing.T) {
	ctx := context.Background()
	kt := keytype.String{}
	st := memory.New(memory.Config{})
	p := &Protocol{Store: st, KeyType: kt}

	batch1 := Batch{
		IncomingKeys:          encKeys(t, kt, "R1"),
		Columns:               []string{"value"},
		IncomingColumnVectors: [][]byte{[]byte("v1")},
		NumRows:               1,
	}
	if ok, err := p.Flush(ctx, "p1", "s1", batch1); err != nil || !ok {
		t.Fatalf("first flush: ok=%v err=%v", ok, err)
	}

	batch2 := Batch{
		IncomingKeys:          encKeys(t, kt, "R2"),
		Columns:               []string{"value"},
		IncomingColumnVectors: [][]byte{[]byte("v2")},
		NumRows:               1,
	}
	if ok, err := p.Flush(ctx, "p1", "s1", batch2); err != nil || !ok {
		t.Fatalf("second flush: ok=%v err=%v", ok, err)
	}

	_, summary, err := st.LoadSummary(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	secondChunkID := summary.Entries[1].ChunkID
	meta, err := st.LoadChunkMeta(ctx, "p1", "s1", secondChunkID)
	if err != nil {
		t.Fatalf("LoadChunkMeta: %v", err)
	}
	if len(meta.Overrides) != 0 {
		t.Errorf("expected no overrides, got %v", meta.Overrides)
	}
}
