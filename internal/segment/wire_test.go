package segment

import "testing"

func TestEncodeDecodeMetaRoundTrip(t *testing.T) {
	prior := NewChunkID()
	id := NewChunkID()
	meta := ChunkMeta{
		ChunkID: id,
		NumRows: 4,
		Overrides: map[ChunkID][]int{
			prior: {0, 2},
		},
	}
	data := EncodeMeta(meta)
	decoded, err := DecodeMeta(id, data)
	if err != nil {
		t.Fatalf("DecodeMeta: %v", err)
	}
	if decoded.NumRows != meta.NumRows {
		t.Errorf("NumRows = %d, want %d", decoded.NumRows, meta.NumRows)
	}
	positions, ok := decoded.Overrides[prior]
	if !ok {
		t.Fatalf("expected override for %s", prior)
	}
	if len(positions) != 2 || positions[0] != 0 || positions[1] != 2 {
		t.Errorf("positions = %v, want [0 2]", positions)
	}
}

func TestEncodeMetaEmptyOverrides(t *testing.T) {
	id := NewChunkID()
	meta := ChunkMeta{ChunkID: id, NumRows: 3, Overrides: nil}
	data := EncodeMeta(meta)
	decoded, err := DecodeMeta(id, data)
	if err != nil {
		t.Fatalf("DecodeMeta: %v", err)
	}
	if len(decoded.Overrides) != 0 {
		t.Errorf("expected no overrides, got %v", decoded.Overrides)
	}
	if decoded.NumRows != 3 {
		t.Errorf("NumRows = %d, want 3", decoded.NumRows)
	}
}

func TestEncodeMetaDeterministic(t *testing.T) {
	p1 := NewChunkID()
	p2 := NewChunkID()
	id := NewChunkID()
	meta := ChunkMeta{
		ChunkID: id,
		NumRows: 2,
		Overrides: map[ChunkID][]int{
			p1: {0},
			p2: {1},
		},
	}
	a := EncodeMeta(meta)
	b := EncodeMeta(meta)
	if string(a) != string(b) {
		t.Error("expected EncodeMeta to be deterministic regardless of map iteration order")
	}
}

func TestDecodeMetaTruncated(t *testing.T) {
	id := NewChunkID()
	meta := ChunkMeta{ChunkID: id, NumRows: 1, Overrides: map[ChunkID][]int{NewChunkID(): {0}}}
	data := EncodeMeta(meta)
	if _, err := DecodeMeta(id, data[:len(data)-2]); err == nil {
		t.Fatal("expected error decoding truncated meta")
	}
}

func TestEncodeDecodeKeysRoundTrip(t *testing.T) {
	keys := [][]byte{[]byte("alpha"), []byte("b"), []byte("")}
	data := EncodeKeys(keys)
	decoded, err := DecodeKeys(data)
	if err != nil {
		t.Fatalf("DecodeKeys: %v", err)
	}
	if len(decoded) != len(keys) {
		t.Fatalf("got %d keys, want %d", len(decoded), len(keys))
	}
	for i := range keys {
		if string(decoded[i]) != string(keys[i]) {
			t.Errorf("key %d = %q, want %q", i, decoded[i], keys[i])
		}
	}
}

func TestEncodeDecodeKeysEmpty(t *testing.T) {
	data := EncodeKeys(nil)
	decoded, err := DecodeKeys(data)
	if err != nil {
		t.Fatalf("DecodeKeys: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("expected 0 keys, got %d", len(decoded))
	}
}

func TestDecodeKeysTruncated(t *testing.T) {
	data := EncodeKeys([][]byte{[]byte("k1")})
	if _, err := DecodeKeys(data[:len(data)-1]); err == nil {
		t.Fatal("expected error decoding truncated keys")
	}
}
