// Package ingest decodes an external batch wire format into a
// flush.Batch, the shape every ingestion adapter (kafka, http) shares.
package ingest

import (
	"fmt"
	"sort"

	"segstore/internal/flush"
	"segstore/internal/keytype"
)

// Row is one logical row from an external batch: a key plus a set of
// named column values, all carried as plain strings. Adapters decode
// their wire format (JSON over Kafka or HTTP) into Row before handing
// off to BuildBatch.
type Row struct {
	Key     string            `json:"key"`
	Columns map[string]string `json:"columns"`
}

// Envelope is the external batch format: every row in an Envelope
// targets the same partition and segment, matching flush.Protocol.Flush's
// signature.
type Envelope struct {
	Partition string `json:"partition"`
	Segment   string `json:"segment"`
	Rows      []Row  `json:"rows"`
}

// BuildBatch assembles a flush.Batch from rows, encoding keys with kt and
// column values with this package's own string-vector codec (the vector
// codec is an external collaborator the engine core never inspects —
// this is the ingest layer's own choice of codec, not the engine's).
// Columns are named in sorted order for deterministic output. A key
// repeated within rows is written once, keeping the last occurrence:
// flush.Protocol only drops duplicate keys from the override/digest
// computation, so BuildBatch — the one place that can still see full
// row content — is where last-write-wins dedup has to happen.
func BuildBatch(rows []Row, kt keytype.KeyType) (flush.Batch, error) {
	rows = dedupeRowsLastWriteWins(rows)
	if len(rows) == 0 {
		return flush.Batch{}, nil
	}

	columnSet := make(map[string]struct{})
	for _, r := range rows {
		for name := range r.Columns {
			columnSet[name] = struct{}{}
		}
	}
	columns := make([]string, 0, len(columnSet))
	for name := range columnSet {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	keys := make([][]byte, len(rows))
	for i, r := range rows {
		enc, err := kt.EncodeKey(r.Key)
		if err != nil {
			return flush.Batch{}, fmt.Errorf("row %d: encode key: %w", i, err)
		}
		keys[i] = enc
	}

	vectors := make([][]byte, len(columns))
	for ci, name := range columns {
		values := make([]string, len(rows))
		for ri, r := range rows {
			values[ri] = r.Columns[name]
		}
		vectors[ci] = EncodeColumn(values)
	}

	return flush.Batch{
		IncomingKeys:          keys,
		Columns:               columns,
		IncomingColumnVectors: vectors,
		NumRows:               len(rows),
	}, nil
}

// dedupeRowsLastWriteWins drops every occurrence of a key except the
// last, preserving the relative order of the rows that remain.
func dedupeRowsLastWriteWins(rows []Row) []Row {
	lastIndex := make(map[string]int, len(rows))
	for i, r := range rows {
		lastIndex[r.Key] = i
	}
	distinct := make([]Row, 0, len(lastIndex))
	for i, r := range rows {
		if lastIndex[r.Key] == i {
			distinct = append(distinct, r)
		}
	}
	return distinct
}
