// Package sqlite provides a SQLite-based store.Store implementation,
// grounded on the teacher's internal/config/sqlite store: database/sql
// over modernc.org/sqlite, WAL journaling, an embedded migration runner,
// and a single shared connection since SQLite serializes writes anyway.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"segstore/internal/engineerr"
	"segstore/internal/logging"
	"segstore/internal/segment"
	"segstore/internal/store"
)

// Store is a SQLite-based store.Store implementation.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens a SQLite database at path and runs migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
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

	return &Store{db: db, path: path, logger: logging.Default(logger).With("component", "store", "type", "sqlite")}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Initialize(ctx context.Context) error {
	return runMigrations(s.db)
}

func (s *Store) LoadSummary(ctx context.Context, partition, seg string) (store.Version, *segment.SegmentSummary, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT version, summary FROM summaries WHERE partition = ? AND segment = ?", partition, seg)

	var version string
	var summaryBytes []byte
	if err := row.Scan(&version, &summaryBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", segment.Empty(), nil
		}
		return "", nil, fmt.Errorf("load summary: %w", err)
	}

	sum, err := segment.DecodeSummary(summaryBytes)
	if err != nil {
		return "", nil, fmt.Errorf("decode summary for %s/%s: %w", partition, seg, err)
	}
	return store.Version(version), sum, nil
}

func (s *Store) WriteChunk(ctx context.Context, partition, seg string, c *segment.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write chunk: begin: %w", err)
	}
	defer tx.Rollback()

	meta := segment.EncodeMeta(c.Meta())
	keys := segment.EncodeKeys(c.Keys)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chunks (partition, segment, chunk_id, meta, keys)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(partition, segment, chunk_id) DO UPDATE SET meta = excluded.meta, keys = excluded.keys
	`, partition, seg, c.ChunkID[:], meta, keys); err != nil {
		return fmt.Errorf("write chunk: insert chunk: %w", err)
	}

	for i, name := range c.Columns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunk_columns (partition, segment, chunk_id, column_name, vector)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(partition, segment, chunk_id, column_name) DO UPDATE SET vector = excluded.vector
		`, partition, seg, c.ChunkID[:], name, c.ColumnVectors[i]); err != nil {
			return fmt.Errorf("write chunk: insert column %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// CASSummary implements the store's atomic compare-and-swap contract as a
// single SQLite transaction: select the current version, compare to
// expected, and either commit the replacement or roll back and report a
// normal lost race. The store uses a single database connection, so no
// other transaction runs between the select and the commit.
func (s *Store) CASSummary(ctx context.Context, partition, seg string, expected, next store.Version, sum *segment.SegmentSummary) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("cas summary: begin: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT version FROM summaries WHERE partition = ? AND segment = ?", partition, seg).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = ""
	case err != nil:
		return false, fmt.Errorf("cas summary: read current version: %w", err)
	}

	if store.Version(current) != expected {
		s.logger.Debug("cas conflict", "partition", partition, "segment", seg, "expected", expected, "current", current)
		return false, nil
	}

	encoded, err := segment.EncodeSummary(sum)
	if err != nil {
		return false, fmt.Errorf("cas summary: encode: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO summaries (partition, segment, version, summary)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(partition, segment) DO UPDATE SET version = excluded.version, summary = excluded.summary
	`, partition, seg, string(next), encoded); err != nil {
		return false, fmt.Errorf("cas summary: write: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("cas summary: commit: %w", err)
	}
	return true, nil
}

func (s *Store) LoadChunkKeys(ctx context.Context, partition, seg string, id segment.ChunkID) ([][]byte, error) {
	var keyBytes []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT keys FROM chunks WHERE partition = ? AND segment = ? AND chunk_id = ?", partition, seg, id[:]).Scan(&keyBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engineerr.ErrChunkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load chunk keys: %w", err)
	}
	return segment.DecodeKeys(keyBytes)
}

func (s *Store) LoadChunkColumns(ctx context.Context, partition, seg string, id segment.ChunkID, columns []string) ([][]byte, error) {
	out := make([][]byte, len(columns))
	for i, name := range columns {
		var vec []byte
		err := s.db.QueryRowContext(ctx, `
			SELECT vector FROM chunk_columns
			WHERE partition = ? AND segment = ? AND chunk_id = ? AND column_name = ?
		`, partition, seg, id[:], name).Scan(&vec)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chunk %s: column %q not present", id, name)
		}
		if err != nil {
			return nil, fmt.Errorf("load chunk column %q: %w", name, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (s *Store) LoadChunkMeta(ctx context.Context, partition, seg string, id segment.ChunkID) (segment.ChunkMeta, error) {
	var metaBytes []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT meta FROM chunks WHERE partition = ? AND segment = ? AND chunk_id = ?", partition, seg, id[:]).Scan(&metaBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return segment.ChunkMeta{}, engineerr.ErrChunkNotFound
	}
	if err != nil {
		return segment.ChunkMeta{}, fmt.Errorf("load chunk meta: %w", err)
	}
	return segment.DecodeMeta(id, metaBytes)
}

func (s *Store) ClearAll(ctx context.Context) error {
	for _, table := range []string{"summaries", "chunks", "chunk_columns"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear all: truncate %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) DeleteProjection(ctx context.Context, partition, seg string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete projection: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"summaries", "chunks", "chunk_columns"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE partition = ? AND segment = ?", partition, seg); err != nil {
			return fmt.Errorf("delete projection: %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ScanSplits(ctx context.Context, opts store.SplitOptions) ([]store.Split, error) {
	query := "SELECT DISTINCT partition, segment FROM summaries"
	args := []any{}
	if opts.PartitionFilter != nil {
		query += " WHERE partition = ?"
		args = append(args, *opts.PartitionFilter)
	}
	query += " ORDER BY partition, segment"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan splits: %w", err)
	}
	defer rows.Close()

	var splits []store.Split
	for rows.Next() {
		var partition, seg string
		if err := rows.Scan(&partition, &seg); err != nil {
			return nil, fmt.Errorf("scan splits: row: %w", err)
		}
		splits = append(splits, store.Split{Partition: partition, Segment: seg})
	}
	return splits, rows.Err()
}
