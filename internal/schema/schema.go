package schema

import (
	"log/slog"
	"sort"

	"segstore/internal/logging"
)

// Schema is the effective column set for a dataset at some version
// horizon: a mapping name -> Column.
type Schema struct {
	Dataset string
	Columns map[string]Column
}

// New returns an empty effective schema for dataset.
func New(dataset string) *Schema {
	return &Schema{Dataset: dataset, Columns: make(map[string]Column)}
}

// Column returns the effective column by name, if present.
func (s *Schema) Column(name string) (Column, bool) {
	c, ok := s.Columns[name]
	return c, ok
}

// Sorted returns the effective columns ordered by name, for deterministic
// iteration (CLI output, tests).
func (s *Schema) Sorted() []Column {
	out := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clone returns a deep copy; the fold rule never mutates its input.
func (s *Schema) Clone() *Schema {
	cp := New(s.Dataset)
	for k, v := range s.Columns {
		cp.Columns[k] = v
	}
	return cp
}

// Fold applies the schema fold rule to columns, which must already be in
// non-decreasing version order (callers such as GetSchema are responsible
// for the version bound and ordering; Fold itself only requires order).
// The result is a pure function of the input slice: no hidden state, no
// dependence on how the caller batched the inserts, so folding the same
// columns twice always yields the same effective schema.
func Fold(dataset string, columns []Column, logger *slog.Logger) *Schema {
	logger = logging.Default(logger).With("component", "schema-engine")
	s := New(dataset)
	for _, c := range columns {
		foldOne(s, c, logger)
	}
	return s
}

func foldOne(s *Schema, c Column, logger *slog.Logger) {
	existing, ok := s.Columns[c.Name]
	switch {
	case c.IsDeleted:
		delete(s.Columns, c.Name)
	case ok && c.PropertyEqual(existing):
		logger.Info("redundant column redeclaration ignored", "column", c.Name, "version", c.Version)
	case ok:
		s.Columns[c.Name] = c
	default:
		s.Columns[c.Name] = c
	}
}

// Violation is one failed rule from Validate, identified by a short
// machine-checkable tag plus a human-readable message.
type Violation struct {
	Rule    string
	Message string
}

// Validate checks a proposed new or changed column against the current
// effective schema, returning every violated rule. An empty result means
// the change is valid.
func Validate(s *Schema, c Column) []Violation {
	var violations []Violation

	if c.IsSystem != IsSystemName(c.Name) {
		violations = append(violations, Violation{
			Rule:    "system-flag-matches-prefix",
			Message: "isSystem must match whether the name starts with ':'",
		})
	}

	existing, exists := s.Columns[c.Name]
	if exists {
		if c.Version <= existing.Version {
			violations = append(violations, Violation{
				Rule:    "version-must-increase",
				Message: "column version must be strictly greater than the current effective version",
			})
		}
		if c.PropertyEqual(existing) {
			violations = append(violations, Violation{
				Rule:    "must-differ",
				Message: "column must differ from the current definition in at least one property",
			})
		}
	} else if c.IsDeleted {
		violations = append(violations, Violation{
			Rule:    "cannot-tombstone-nonexistent",
			Message: "cannot mark a nonexistent column as deleted",
		})
	}

	return violations
}
