// Package sqlite provides a SQLite-based metadata.Store implementation,
// grounded on the teacher's internal/config/sqlite: database/sql over
// modernc.org/sqlite, WAL journaling, embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"segstore/internal/engineerr"
	"segstore/internal/logging"
	"segstore/internal/metadata"
	"segstore/internal/schema"
)

// Store is a SQLite-based metadata.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ metadata.Store = (*Store)(nil)

// Open opens a SQLite database at path and runs migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create metadata directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, logger: logging.Default(logger).With("component", "metadata-store", "type", "sqlite")}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) NewDataset(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO datasets (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return engineerr.ErrAlreadyExists
		}
		return fmt.Errorf("new dataset: %w", err)
	}
	return nil
}

func (s *Store) GetDataset(ctx context.Context, name string) (*metadata.Dataset, error) {
	var got string
	err := s.db.QueryRowContext(ctx, "SELECT name FROM datasets WHERE name = ?", name).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engineerr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return &metadata.Dataset{Name: got}, nil
}

func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete dataset: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM datasets WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dataset: rows affected: %w", err)
	}
	if n == 0 {
		return engineerr.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM columns WHERE dataset = ?", name); err != nil {
		return fmt.Errorf("delete dataset columns: %w", err)
	}

	return tx.Commit()
}

func (s *Store) InsertColumn(ctx context.Context, c schema.Column) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert column: begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT count(*) FROM datasets WHERE name = ?", c.Dataset).Scan(&exists); err != nil {
		return fmt.Errorf("insert column: check dataset: %w", err)
	}
	if exists == 0 {
		return engineerr.ErrNotFound
	}

	existing, err := queryColumns(ctx, tx, c.Dataset, -1)
	if err != nil {
		return err
	}
	effective := schema.Fold(c.Dataset, existing, s.logger)
	if violations := schema.Validate(effective, c); len(violations) > 0 {
		messages := make([]string, len(violations))
		for i, v := range violations {
			messages[i] = v.Rule + ": " + v.Message
		}
		return &engineerr.ValidationError{Violations: messages}
	}

	tag, ok := c.ColumnType.Tag()
	if !ok {
		return fmt.Errorf("insert column: unknown column type %v", c.ColumnType)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO columns (dataset, name, version, column_type, serializer, is_deleted, is_system)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.Dataset, c.Name, c.Version, tag, c.Serializer, boolToInt(c.IsDeleted), boolToInt(c.IsSystem)); err != nil {
		return fmt.Errorf("insert column: %w", err)
	}

	return tx.Commit()
}

func (s *Store) GetSchema(ctx context.Context, dataset string, version int) (*schema.Schema, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM datasets WHERE name = ?", dataset).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get schema: check dataset: %w", err)
	}
	if exists == 0 {
		return nil, engineerr.ErrNotFound
	}

	eligible, err := queryColumns(ctx, s.db, dataset, version)
	if err != nil {
		return nil, err
	}
	return schema.Fold(dataset, eligible, s.logger), nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryColumns(ctx context.Context, q querier, dataset string, maxVersion int) ([]schema.Column, error) {
	query := "SELECT name, version, column_type, serializer, is_deleted, is_system FROM columns WHERE dataset = ?"
	args := []any{dataset}
	if maxVersion >= 0 {
		query += " AND version <= ?"
		args = append(args, maxVersion)
	}
	query += " ORDER BY version ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, tag, serializer string
		var version, isDeleted, isSystem int
		if err := rows.Scan(&name, &version, &tag, &serializer, &isDeleted, &isSystem); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		ct, ok := schema.ColumnTypeFromTag(tag)
		if !ok {
			return nil, &engineerr.MetadataException{Reason: fmt.Sprintf("unknown column type tag %q", tag)}
		}
		columns = append(columns, schema.Column{
			Name:       name,
			Dataset:    dataset,
			Version:    version,
			ColumnType: ct,
			Serializer: serializer,
			IsDeleted:  isDeleted != 0,
			IsSystem:   isSystem != 0,
		})
	}
	return columns, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "UNIQUE CONSTRAINT") || strings.Contains(msg, "PRIMARY KEY")
}
