package ingest

import (
	"encoding/binary"
	"fmt"
)

// EncodeColumn and DecodeColumn are this package's column-vector codec:
// int32 count, then count length-prefixed UTF-8 strings, mirroring the
// reader-cursor style used by segment's and schema's own wire codecs.
func EncodeColumn(values []string) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(values)))
	for _, v := range values {
		var lenBytes [4]byte
		binary.BigEndian.PutUint32(lenBytes[:], uint32(len(v)))
		buf = append(buf, lenBytes[:]...)
		buf = append(buf, v...)
	}
	return buf
}

func DecodeColumn(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("truncated column vector count")
	}
	count := binary.BigEndian.Uint32(data[:4])
	pos := 4
	values := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data)-pos < 4 {
			return nil, fmt.Errorf("truncated column vector length at index %d", i)
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if len(data)-pos < n {
			return nil, fmt.Errorf("truncated column vector payload at index %d", i)
		}
		values = append(values, string(data[pos:pos+n]))
		pos += n
	}
	return values, nil
}
