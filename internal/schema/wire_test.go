package schema

import (
	"errors"
	"testing"

	"segstore/internal/engineerr"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	columns := []Column{
		NewColumn("first", "foo", 1, String),
		NewColumn("count", "foo", 2, Long),
	}
	data, err := Serialize(columns)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	decoded, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(decoded) != len(columns) {
		t.Fatalf("got %d columns, want %d", len(decoded), len(columns))
	}
	for i, c := range columns {
		if decoded[i].Name != c.Name || decoded[i].Dataset != c.Dataset || decoded[i].Version != c.Version || decoded[i].ColumnType != c.ColumnType {
			t.Errorf("column %d mismatch: got %+v, want %+v", i, decoded[i], c)
		}
		if decoded[i].Serializer != DefaultSerializer {
			t.Errorf("column %d: expected reconstructed serializer %q, got %q", i, DefaultSerializer, decoded[i].Serializer)
		}
		if decoded[i].IsSystem != IsSystemName(c.Name) {
			t.Errorf("column %d: IsSystem mismatch", i)
		}
	}
}

// TestDeserializeUnknownTag checks that a corrupt column type tag fails
// with MetadataException rather than silently defaulting.
func TestDeserializeUnknownTag(t *testing.T) {
	columns := []Column{NewColumn("first", "foo", 1, String)}
	data, err := Serialize(columns)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	// Corrupt the tag byte: find the single-byte length-prefixed "S" tag
	// and overwrite it with an unrecognized tag of the same length.
	corrupted := append([]byte(nil), data...)
	replaced := false
	for i := range corrupted {
		if corrupted[i] == 'S' {
			corrupted[i] = 'Z'
			replaced = true
			break
		}
	}
	if !replaced {
		t.Fatal("test setup: expected to find the 'S' tag byte")
	}

	_, err = Deserialize(corrupted)
	if err == nil {
		t.Fatal("expected error for unknown column type tag")
	}
	var metaErr *engineerr.MetadataException
	if !errors.As(err, &metaErr) {
		t.Errorf("expected MetadataException, got %T: %v", err, err)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	columns := []Column{NewColumn("first", "foo", 1, String)}
	data, err := Serialize(columns)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	_, err = Deserialize(data[:len(data)-2])
	if err == nil {
		t.Fatal("expected error decoding truncated data")
	}
}

func TestSerializeEmpty(t *testing.T) {
	data, err := Serialize(nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	decoded, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("expected 0 columns, got %d", len(decoded))
	}
}
