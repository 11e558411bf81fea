package segment

import "testing"

func TestSummaryEmpty(t *testing.T) {
	s := Empty()
	if s.NumChunks() != 0 {
		t.Errorf("expected 0 chunks, got %d", s.NumChunks())
	}
	if !s.MaxChunkID().IsZero() {
		t.Error("expected zero MaxChunkID for an empty summary")
	}
}

func TestWithKeysDoesNotMutateReceiver(t *testing.T) {
	s := Empty()
	id := NewChunkID()
	next := s.WithKeys(id, [][]byte{[]byte("k1")})

	if s.NumChunks() != 0 {
		t.Errorf("expected receiver to remain empty, got %d chunks", s.NumChunks())
	}
	if next.NumChunks() != 1 {
		t.Fatalf("expected new summary to have 1 chunk, got %d", next.NumChunks())
	}
	if next.Entries[0].ChunkID != id {
		t.Errorf("new entry chunk id = %s, want %s", next.Entries[0].ChunkID, id)
	}
}

func TestWithKeysChaining(t *testing.T) {
	s := Empty()
	id1 := NewChunkID()
	id2 := NewChunkID()
	s1 := s.WithKeys(id1, [][]byte{[]byte("a")})
	s2 := s1.WithKeys(id2, [][]byte{[]byte("b")})

	if s1.NumChunks() != 1 {
		t.Errorf("s1 should be unaffected by s2's derivation, got %d chunks", s1.NumChunks())
	}
	if s2.NumChunks() != 2 {
		t.Errorf("s2 should have 2 chunks, got %d", s2.NumChunks())
	}
}

func TestMaxChunkIDTracksLatest(t *testing.T) {
	s := Empty()
	id1 := NewChunkID()
	s = s.WithKeys(id1, [][]byte{[]byte("a")})
	id2 := NewChunkID()
	s = s.WithKeys(id2, [][]byte{[]byte("b")})

	if s.MaxChunkID() != id2 {
		t.Errorf("MaxChunkID = %s, want %s", s.MaxChunkID(), id2)
	}
}

func TestPossibleOverridesNoFalseNegatives(t *testing.T) {
	s := Empty()
	id := NewChunkID()
	keys := [][]byte{[]byte("R1"), []byte("R2"), []byte("R3")}
	s = s.WithKeys(id, keys)

	candidates := s.PossibleOverrides([][]byte{[]byte("R1")})
	if len(candidates) != 1 || candidates[0] != id {
		t.Errorf("expected chunk %s to be a candidate, got %v", id, candidates)
	}
}

func TestPossibleOverridesNoOverlap(t *testing.T) {
	s := Empty()
	id := NewChunkID()
	s = s.WithKeys(id, [][]byte{[]byte("R1")})

	candidates := s.PossibleOverrides([][]byte{[]byte("totally-different-key-value")})
	if len(candidates) != 0 {
		t.Errorf("expected no candidates for a disjoint key, got %v", candidates)
	}
}

func TestActualOverridesExactPositions(t *testing.T) {
	chunkID := NewChunkID()
	candidates := []CandidateChunk{
		{ChunkID: chunkID, Keys: [][]byte{[]byte("R1"), []byte("R2"), []byte("R3")}},
	}
	overrides := ActualOverrides([][]byte{[]byte("R1"), []byte("R3")}, candidates)
	if len(overrides) != 1 {
		t.Fatalf("expected 1 override entry, got %d", len(overrides))
	}
	if overrides[0].ChunkID != chunkID {
		t.Errorf("override chunk id = %s, want %s", overrides[0].ChunkID, chunkID)
	}
	want := []int{0, 2}
	if len(overrides[0].Positions) != len(want) {
		t.Fatalf("positions = %v, want %v", overrides[0].Positions, want)
	}
	for i := range want {
		if overrides[0].Positions[i] != want[i] {
			t.Errorf("positions[%d] = %d, want %d", i, overrides[0].Positions[i], want[i])
		}
	}
}

func TestActualOverridesOmitsNoMatch(t *testing.T) {
	candidates := []CandidateChunk{
		{ChunkID: NewChunkID(), Keys: [][]byte{[]byte("R1")}},
	}
	overrides := ActualOverrides([][]byte{[]byte("unrelated")}, candidates)
	if len(overrides) != 0 {
		t.Errorf("expected no override entries, got %v", overrides)
	}
}

func TestSizeGrowsWithEntries(t *testing.T) {
	s := Empty()
	emptySize, err := s.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	s = s.WithKeys(NewChunkID(), [][]byte{[]byte("a"), []byte("b")})
	withEntrySize, err := s.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if withEntrySize <= emptySize {
		t.Errorf("expected size to grow after adding an entry: %d vs %d", withEntrySize, emptySize)
	}
}

func TestEncodeDecodeSummaryRoundTrip(t *testing.T) {
	s := Empty()
	id1 := NewChunkID()
	id2 := NewChunkID()
	s = s.WithKeys(id1, [][]byte{[]byte("R1"), []byte("R2")})
	s = s.WithKeys(id2, [][]byte{[]byte("R3")})

	data, err := EncodeSummary(s)
	if err != nil {
		t.Fatalf("EncodeSummary: %v", err)
	}
	decoded, err := DecodeSummary(data)
	if err != nil {
		t.Fatalf("DecodeSummary: %v", err)
	}
	if decoded.NumChunks() != 2 {
		t.Fatalf("expected 2 chunks, got %d", decoded.NumChunks())
	}
	if decoded.Entries[0].ChunkID != id1 || decoded.Entries[1].ChunkID != id2 {
		t.Error("decoded entries out of order or wrong ids")
	}
	if decoded.Entries[0].Summary.NumRows != 2 {
		t.Errorf("entry 0 NumRows = %d, want 2", decoded.Entries[0].Summary.NumRows)
	}
	if !decoded.Entries[0].Summary.Digest.Contains([]byte("R1")) {
		t.Error("restored digest for entry 0 should contain R1")
	}
}

func TestEncodeDecodeSummaryEmpty(t *testing.T) {
	data, err := EncodeSummary(Empty())
	if err != nil {
		t.Fatalf("EncodeSummary: %v", err)
	}
	decoded, err := DecodeSummary(data)
	if err != nil {
		t.Fatalf("DecodeSummary: %v", err)
	}
	if decoded.NumChunks() != 0 {
		t.Errorf("expected 0 chunks, got %d", decoded.NumChunks())
	}
}

func TestDecodeSummaryTruncated(t *testing.T) {
	s := Empty().WithKeys(NewChunkID(), [][]byte{[]byte("a")})
	data, err := EncodeSummary(s)
	if err != nil {
		t.Fatalf("EncodeSummary: %v", err)
	}
	if _, err := DecodeSummary(data[:len(data)-2]); err == nil {
		t.Fatal("expected error decoding truncated summary")
	}
}
