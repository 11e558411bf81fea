package keytype

import "testing"

func TestStringRoundTrip(t *testing.T) {
	kt := String{}
	enc, err := kt.EncodeKey("hello")
	if err != nil {
		t.Fatalf("EncodeKey: %v", err)
	}
	dec, err := kt.DecodeKey(enc)
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if dec != "hello" {
		t.Errorf("got %v, want hello", dec)
	}
}

func TestStringEncodeWrongType(t *testing.T) {
	kt := String{}
	if _, err := kt.EncodeKey(42); err == nil {
		t.Fatal("expected error encoding non-string")
	}
}

func TestStringCompareOrdersLexically(t *testing.T) {
	kt := String{}
	a, _ := kt.EncodeKey("a")
	b, _ := kt.EncodeKey("b")
	if kt.Compare(a, b) >= 0 {
		t.Errorf("expected a < b")
	}
	if kt.Compare(a, a) != 0 {
		t.Errorf("expected a == a")
	}
}

func TestCompositeRoundTrip(t *testing.T) {
	kt := Composite{}
	fields := []string{"nfc", "2026", "week1"}
	enc, err := kt.EncodeKey(fields)
	if err != nil {
		t.Fatalf("EncodeKey: %v", err)
	}
	decAny, err := kt.DecodeKey(enc)
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	dec, ok := decAny.([]string)
	if !ok {
		t.Fatalf("expected []string, got %T", decAny)
	}
	if len(dec) != len(fields) {
		t.Fatalf("got %d fields, want %d", len(dec), len(fields))
	}
	for i := range fields {
		if dec[i] != fields[i] {
			t.Errorf("field %d = %q, want %q", i, dec[i], fields[i])
		}
	}
}

func TestCompositeEncodeWrongType(t *testing.T) {
	kt := Composite{}
	if _, err := kt.EncodeKey("not-a-slice"); err == nil {
		t.Fatal("expected error encoding non-[]string")
	}
}

func TestCompositeDecodeTruncated(t *testing.T) {
	kt := Composite{}
	if _, err := kt.DecodeKey([]byte{0, 0}); err == nil {
		t.Fatal("expected error decoding truncated data")
	}
}
