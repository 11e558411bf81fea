package segment

import "testing"

func TestNewChunkColumnVectorLengthMismatch(t *testing.T) {
	id := NewChunkID()
	_, err := NewChunk(id, [][]byte{[]byte("k1")}, []string{"a", "b"}, [][]byte{[]byte("v1")}, 1, nil)
	if err == nil {
		t.Fatal("expected error when columns and columnVectors lengths differ")
	}
}

func TestNewChunkKeyCountMismatch(t *testing.T) {
	id := NewChunkID()
	_, err := NewChunk(id, [][]byte{[]byte("k1")}, []string{"a"}, [][]byte{[]byte("v1")}, 2, nil)
	if err == nil {
		t.Fatal("expected error when key count does not match numRows")
	}
}

func TestNewChunkRejectsNonEarlierOverride(t *testing.T) {
	first := NewChunkID()
	second := NewChunkID()
	// first referencing itself must fail (not strictly earlier), and so
	// must first referencing the later second.
	_, err := NewChunk(first, [][]byte{[]byte("k1")}, nil, nil, 1, map[ChunkID][]int{
		first: {0},
	})
	if err == nil {
		t.Fatal("expected error when override references a chunk not strictly earlier than itself")
	}

	_, err = NewChunk(first, [][]byte{[]byte("k1")}, nil, nil, 1, map[ChunkID][]int{
		second: {0},
	})
	if err == nil {
		t.Fatal("expected error when override references a later chunk")
	}
}

func TestNewChunkOmitsEmptyPositionLists(t *testing.T) {
	prior := NewChunkID()
	id := NewChunkID()
	c, err := NewChunk(id, [][]byte{[]byte("k1")}, nil, nil, 1, map[ChunkID][]int{
		prior: {},
	})
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	if _, ok := c.Overrides[prior]; ok {
		t.Error("expected empty position list to be omitted from Overrides")
	}
}

func TestNewChunkSortsPositions(t *testing.T) {
	prior := NewChunkID()
	id := NewChunkID()
	c, err := NewChunk(id, [][]byte{[]byte("k1"), []byte("k2")}, nil, nil, 2, map[ChunkID][]int{
		prior: {5, 1, 3},
	})
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	positions := c.Overrides[prior]
	want := []int{1, 3, 5}
	if len(positions) != len(want) {
		t.Fatalf("got %v, want %v", positions, want)
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Errorf("positions[%d] = %d, want %d", i, positions[i], want[i])
		}
	}
}

func TestChunkMeta(t *testing.T) {
	prior := NewChunkID()
	id := NewChunkID()
	c, err := NewChunk(id, [][]byte{[]byte("k1")}, []string{"v"}, [][]byte{[]byte("x")}, 1, map[ChunkID][]int{
		prior: {0},
	})
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	meta := c.Meta()
	if meta.ChunkID != id {
		t.Errorf("meta.ChunkID = %s, want %s", meta.ChunkID, id)
	}
	if meta.NumRows != 1 {
		t.Errorf("meta.NumRows = %d, want 1", meta.NumRows)
	}
	if len(meta.Overrides[prior]) != 1 || meta.Overrides[prior][0] != 0 {
		t.Errorf("unexpected meta overrides: %v", meta.Overrides)
	}
}
