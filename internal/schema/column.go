// Package schema implements the schema evolution engine: folding a
// versioned stream of column definitions into an effective schema, and
// validating a proposed column change against it.
package schema

import "strings"

// ColumnType is the tagged type of a column's values.
type ColumnType int

const (
	Int ColumnType = iota
	Long
	Double
	String
	Bitmap
)

// columnTypeTags is the wire tag for each ColumnType. The tag is written
// to the wire as a length-prefixed UTF-8 string like the other fields.
var columnTypeTags = map[ColumnType]string{
	Int:    "I",
	Long:   "L",
	Double: "D",
	String: "S",
	Bitmap: "B",
}

var columnTypeByTag = func() map[string]ColumnType {
	m := make(map[string]ColumnType, len(columnTypeTags))
	for t, tag := range columnTypeTags {
		m[tag] = t
	}
	return m
}()

func (t ColumnType) Tag() (string, bool) {
	tag, ok := columnTypeTags[t]
	return tag, ok
}

// ColumnTypeFromTag resolves a wire tag to a ColumnType. ok is false for
// any tag not in columnTypeTags — callers must treat that as a corrupt or
// unknown type and fail with a MetadataException, never guess a default.
func ColumnTypeFromTag(tag string) (ColumnType, bool) {
	t, ok := columnTypeByTag[tag]
	return t, ok
}

// DefaultSerializer is used when a Column does not specify one.
const DefaultSerializer = "Filo"

// Column is a named, typed column belonging to a (dataset, version) pair.
type Column struct {
	Name       string
	Dataset    string
	Version    int
	ColumnType ColumnType
	Serializer string
	IsDeleted  bool
	IsSystem   bool
}

// NewColumn builds a Column, deriving IsSystem from the name prefix and
// setting Serializer to DefaultSerializer — the invariant
// "isSystem ⇔ name starts with ':'" always holds for columns built this way.
func NewColumn(name, dataset string, version int, ct ColumnType) Column {
	serializer := DefaultSerializer
	return Column{
		Name:       name,
		Dataset:    dataset,
		Version:    version,
		ColumnType: ct,
		Serializer: serializer,
		IsSystem:   IsSystemName(name),
	}
}

// IsSystemName reports whether name is reserved for a system column
// (":deleted", ":inherited", and any other name beginning with ':').
func IsSystemName(name string) bool {
	return strings.HasPrefix(name, ":")
}

// PropertyEqual reports whether two columns are property-equal: their
// ColumnType, Serializer, and IsDeleted fields all match. Name,
// Dataset, and Version are deliberately excluded — a redeclaration at a
// new version with identical properties is what makes it "redundant".
func (c Column) PropertyEqual(other Column) bool {
	return c.ColumnType == other.ColumnType &&
		c.Serializer == other.Serializer &&
		c.IsDeleted == other.IsDeleted
}

// System column names reserved for engine-managed metadata; consumed by
// the read path, not further elaborated here.
const (
	ColumnDeleted   = ":deleted"
	ColumnInherited = ":inherited"
)
