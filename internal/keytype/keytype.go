// Package keytype defines the pluggable row-key codec used by the chunk
// key buffer and by segment digests. The engine core never interprets
// key bytes itself: it compares and hashes the encoded bytes directly,
// and a KeyType only encodes, decodes and orders them.
package keytype

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// KeyType encodes and decodes row keys to and from the byte form stored
// in a chunk's key buffer, and compares two already-encoded keys.
type KeyType interface {
	// EncodeKey converts a logical key value into its byte-buffer form.
	EncodeKey(value any) ([]byte, error)

	// DecodeKey converts an encoded key back into its logical value.
	DecodeKey(data []byte) (any, error)

	// Compare returns <0, 0, or >0 for two already-encoded keys, with the
	// same semantics as bytes.Compare. The engine core does not call it;
	// override detection never depends on order, only on exact byte
	// equality.
	Compare(a, b []byte) int
}

// String is a KeyType over plain UTF-8 strings: the encoded form is the
// raw string bytes.
type String struct{}

func (String) EncodeKey(value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("string key type: expected string, got %T", value)
	}
	return []byte(s), nil
}

func (String) DecodeKey(data []byte) (any, error) {
	return string(data), nil
}

func (String) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Composite is a KeyType over an ordered tuple of string fields — the
// multi-column row key FiloDB-lineage systems support that a single-key
// walkthrough omits. Fields are encoded as
// count:int32 | (len:int32 | bytes)*count, big-endian, so that byte
// comparison orders first by field count then field-by-field — sufficient
// for exact-equality override detection, which is all this core needs.
type Composite struct{}

func (Composite) EncodeKey(value any) ([]byte, error) {
	fields, ok := value.([]string)
	if !ok {
		return nil, fmt.Errorf("composite key type: expected []string, got %T", value)
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(fields)))
	for _, f := range fields {
		var lenBytes [4]byte
		binary.BigEndian.PutUint32(lenBytes[:], uint32(len(f)))
		buf = append(buf, lenBytes[:]...)
		buf = append(buf, f...)
	}
	return buf, nil
}

func (Composite) DecodeKey(data []byte) (any, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("composite key type: truncated field count")
	}
	count := binary.BigEndian.Uint32(data[:4])
	pos := 4
	fields := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data)-pos < 4 {
			return nil, fmt.Errorf("composite key type: truncated field length")
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if len(data)-pos < n {
			return nil, fmt.Errorf("composite key type: truncated field data")
		}
		fields = append(fields, string(data[pos:pos+n]))
		pos += n
	}
	return fields, nil
}

func (Composite) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
