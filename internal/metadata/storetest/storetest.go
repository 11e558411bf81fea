// Package storetest provides a shared conformance suite for
// metadata.Store backends, mirroring the teacher's config/storetest
// pattern.
package storetest

import (
	"context"
	"errors"
	"testing"

	"segstore/internal/engineerr"
	"segstore/internal/metadata"
	"segstore/internal/schema"
)

// Factory constructs a fresh, empty backend for one subtest.
type Factory func(t *testing.T) metadata.Store

// TestStore runs the full conformance suite against newStore.
func TestStore(t *testing.T, newStore Factory) {
	t.Run("NewDatasetThenGet", func(t *testing.T) { testNewDatasetThenGet(t, newStore) })
	t.Run("NewDatasetDuplicateFails", func(t *testing.T) { testDuplicateDataset(t, newStore) })
	t.Run("GetMissingDatasetFails", func(t *testing.T) { testGetMissing(t, newStore) })
	t.Run("DeleteMissingDatasetFails", func(t *testing.T) { testDeleteMissing(t, newStore) })
	t.Run("InsertColumnRequiresDataset", func(t *testing.T) { testInsertColumnRequiresDataset(t, newStore) })
	t.Run("InsertColumnValidation", func(t *testing.T) { testInsertColumnValidation(t, newStore) })
	t.Run("GetSchemaFoldsByVersion", func(t *testing.T) { testGetSchemaFoldsByVersion(t, newStore) })
	t.Run("DeleteDatasetRemovesColumns", func(t *testing.T) { testDeleteDatasetRemovesColumns(t, newStore) })
}

func testNewDatasetThenGet(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.NewDataset(ctx, "events"); err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	d, err := s.GetDataset(ctx, "events")
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if d.Name != "events" {
		t.Errorf("Name = %q, want events", d.Name)
	}
}

func testDuplicateDataset(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.NewDataset(ctx, "events"); err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	err := s.NewDataset(ctx, "events")
	if !errors.Is(err, engineerr.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func testGetMissing(t *testing.T, newStore Factory) {
	s := newStore(t)
	_, err := s.GetDataset(context.Background(), "nope")
	if !errors.Is(err, engineerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testDeleteMissing(t *testing.T, newStore Factory) {
	s := newStore(t)
	err := s.DeleteDataset(context.Background(), "nope")
	if !errors.Is(err, engineerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testInsertColumnRequiresDataset(t *testing.T, newStore Factory) {
	s := newStore(t)
	col := schema.NewColumn("value", "events", 1, schema.Int)
	err := s.InsertColumn(context.Background(), col)
	if !errors.Is(err, engineerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testInsertColumnValidation(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.NewDataset(ctx, "events"); err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	col := schema.NewColumn("value", "events", 1, schema.Int)
	if err := s.InsertColumn(ctx, col); err != nil {
		t.Fatalf("InsertColumn v1: %v", err)
	}

	// Same version again must fail version-must-increase.
	var verr *engineerr.ValidationError
	err := s.InsertColumn(ctx, col)
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func testGetSchemaFoldsByVersion(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.NewDataset(ctx, "events"); err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	if err := s.InsertColumn(ctx, schema.NewColumn("value", "events", 1, schema.Int)); err != nil {
		t.Fatalf("InsertColumn v1: %v", err)
	}
	if err := s.InsertColumn(ctx, schema.NewColumn("value", "events", 2, schema.Long)); err != nil {
		t.Fatalf("InsertColumn v2: %v", err)
	}

	effective, err := s.GetSchema(ctx, "events", 1)
	if err != nil {
		t.Fatalf("GetSchema v1: %v", err)
	}
	col, ok := effective.Column("value")
	if !ok || col.ColumnType != schema.Int {
		t.Errorf("GetSchema(1): expected Int, got %+v ok=%v", col, ok)
	}

	effective, err = s.GetSchema(ctx, "events", 2)
	if err != nil {
		t.Fatalf("GetSchema v2: %v", err)
	}
	col, ok = effective.Column("value")
	if !ok || col.ColumnType != schema.Long {
		t.Errorf("GetSchema(2): expected Long, got %+v ok=%v", col, ok)
	}
}

func testDeleteDatasetRemovesColumns(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.NewDataset(ctx, "events"); err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	if err := s.InsertColumn(ctx, schema.NewColumn("value", "events", 1, schema.Int)); err != nil {
		t.Fatalf("InsertColumn: %v", err)
	}
	if err := s.DeleteDataset(ctx, "events"); err != nil {
		t.Fatalf("DeleteDataset: %v", err)
	}
	if _, err := s.GetDataset(ctx, "events"); !errors.Is(err, engineerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if err := s.NewDataset(ctx, "events"); err != nil {
		t.Fatalf("recreate NewDataset: %v", err)
	}
	effective, err := s.GetSchema(ctx, "events", 100)
	if err != nil {
		t.Fatalf("GetSchema after recreate: %v", err)
	}
	if n := len(effective.Columns); n != 0 {
		t.Errorf("expected no columns to survive recreate, got %d", n)
	}
}
