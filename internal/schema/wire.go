package schema

import (
	"encoding/binary"
	"fmt"

	"segstore/internal/engineerr"
)

// Serialize encodes a list of column records to this store's schema wire
// format: int32 count, then count records of
// utf(name) | utf(dataset) | utf(columnTypeTag) | int32(version).
// All integers are big-endian; strings are int32-length-prefixed UTF-8.
// Serializer, IsDeleted, and IsSystem are not written: readers reconstruct
// the system flag from the name prefix and default the rest.
func Serialize(columns []Column) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(columns)))

	for _, c := range columns {
		tag, ok := c.ColumnType.Tag()
		if !ok {
			return nil, fmt.Errorf("column %q: unrecognized column type %d", c.Name, c.ColumnType)
		}
		buf = appendUTF(buf, c.Name)
		buf = appendUTF(buf, c.Dataset)
		buf = appendUTF(buf, tag)
		var versionBytes [4]byte
		binary.BigEndian.PutUint32(versionBytes[:], uint32(c.Version))
		buf = append(buf, versionBytes[:]...)
	}
	return buf, nil
}

// Deserialize decodes the schema wire format back into column records.
// An unknown columnTypeTag fails closed with a MetadataException: a
// reader must never silently substitute a default type.
func Deserialize(data []byte) ([]Column, error) {
	r := &reader{data: data}
	count, err := r.uint32()
	if err != nil {
		return nil, &engineerr.MetadataException{Reason: "truncated schema header", Err: err}
	}

	columns := make([]Column, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.utf()
		if err != nil {
			return nil, &engineerr.MetadataException{Reason: "truncated column name", Err: err}
		}
		dataset, err := r.utf()
		if err != nil {
			return nil, &engineerr.MetadataException{Reason: "truncated column dataset", Err: err}
		}
		tag, err := r.utf()
		if err != nil {
			return nil, &engineerr.MetadataException{Reason: "truncated column type tag", Err: err}
		}
		version, err := r.uint32()
		if err != nil {
			return nil, &engineerr.MetadataException{Reason: "truncated column version", Err: err}
		}

		ct, ok := ColumnTypeFromTag(tag)
		if !ok {
			return nil, &engineerr.MetadataException{Reason: fmt.Sprintf("unknown column type tag %q", tag)}
		}

		columns = append(columns, Column{
			Name:       name,
			Dataset:    dataset,
			Version:    int(version),
			ColumnType: ct,
			Serializer: DefaultSerializer,
			IsSystem:   IsSystemName(name),
		})
	}
	return columns, nil
}

func appendUTF(buf []byte, s string) []byte {
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(s)))
	buf = append(buf, lenBytes[:]...)
	return append(buf, s...)
}

// reader is a small cursor over a byte slice used by this package's wire
// decoder; it tolerates only exact-length reads and reports truncation
// via errUnexpectedEOF so callers can wrap it with component-specific
// context.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) uint32() (uint32, error) {
	if len(r.data)-r.pos < 4 {
		return 0, errUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) utf() (string, error) {
	n, err := r.uint32()
	if err != nil {
		return "", err
	}
	if uint32(len(r.data)-r.pos) < n {
		return "", errUnexpectedEOF
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

var errUnexpectedEOF = fmt.Errorf("unexpected end of data")
