// Package metadata defines the schema/metadata store collaborator:
// dataset lifecycle and column administration, plus the effective-schema
// computation that folds stored columns through the Schema Engine.
package metadata

import (
	"context"

	"segstore/internal/schema"
)

// Dataset identifies a named collection of versioned columns.
type Dataset struct {
	Name string
}

// Store persists dataset and column metadata. Every method's result is
// one of success (nil error), AlreadyExists, NotFound, or a typed error
// (ValidationError, MetadataException) — never a bare CAS-style bool,
// since metadata mutations are not raced the way segment flushes are.
type Store interface {
	// NewDataset creates an empty dataset. Returns engineerr.ErrAlreadyExists
	// if the name is already taken.
	NewDataset(ctx context.Context, name string) error

	// GetDataset returns the named dataset, or engineerr.ErrNotFound.
	GetDataset(ctx context.Context, name string) (*Dataset, error)

	// DeleteDataset removes a dataset and every column version recorded
	// under it. Returns engineerr.ErrNotFound if the dataset is absent.
	DeleteDataset(ctx context.Context, name string) error

	// InsertColumn validates the proposed column against the dataset's
	// existing columns (schema.Validate) and, if valid, records it.
	// Returns *engineerr.ValidationError on a validation failure.
	InsertColumn(ctx context.Context, c schema.Column) error

	// GetSchema returns the effective schema for dataset, folding every
	// stored column whose Version is <= version through schema.Fold.
	// Returns engineerr.ErrNotFound if the dataset does not exist.
	GetSchema(ctx context.Context, dataset string, version int) (*schema.Schema, error)
}
