// Package engineerr defines the error-kind taxonomy shared by every layer
// of the segment store: schema validation, metadata lookups, and the
// persistent store. CAS conflicts are deliberately not part of this
// taxonomy — the flush protocol reports them as a plain bool, never an
// error, since a lost race is an expected outcome rather than a failure.
package engineerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested dataset or segment is absent.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on duplicate dataset creation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNullPartitionValue is returned when a row's partition column is
	// null and no defaultPartitionKey is configured.
	ErrNullPartitionValue = errors.New("null partition value")

	// ErrChunkNotFound is a fatal data-integrity error: an override
	// referenced a prior chunk that the store no longer has.
	ErrChunkNotFound = errors.New("referenced prior chunk not found")
)

// ValidationError reports every rule in schema.Validate that a proposed
// column change violated. An empty Violations slice never occurs — callers
// construct this only when there is at least one.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Violations)
}

// MetadataException reports corrupt or unrecognized data read from the
// metadata tier, e.g. an unknown column type tag.
type MetadataException struct {
	Reason string
	Err    error
}

func (e *MetadataException) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("metadata exception: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("metadata exception: %s", e.Reason)
}

func (e *MetadataException) Unwrap() error { return e.Err }

// StoreError wraps an underlying persistent-store failure so it can be
// distinguished from the engine's own error kinds while still unwrapping
// to the original cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
