// Package file provides a file-based metadata.Store implementation,
// grounded on the teacher's internal/config/file: a versioned JSON
// envelope, rewritten in full on every mutation via temp file + rename
// with round-trip validation.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"segstore/internal/engineerr"
	"segstore/internal/logging"
	"segstore/internal/metadata"
	"segstore/internal/schema"
)

const currentVersion = 1

type envelope struct {
	Version  int                        `json:"version"`
	Datasets map[string]bool            `json:"datasets"`
	Columns  map[string][]schema.Column `json:"columns"`
}

// Store is a file-based metadata.Store.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

var _ metadata.Store = (*Store)(nil)

// New creates a Store persisting to path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logging.Default(logger).With("component", "metadata-store", "type", "file")}
}

func (s *Store) load() (envelope, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return envelope{Version: currentVersion, Datasets: map[string]bool{}, Columns: map[string][]schema.Column{}}, nil
		}
		return envelope{}, fmt.Errorf("read metadata file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("parse metadata file: %w", err)
	}
	if env.Datasets == nil {
		env.Datasets = map[string]bool{}
	}
	if env.Columns == nil {
		env.Columns = map[string][]schema.Column{}
	}
	return env, nil
}

func (s *Store) flush(env envelope) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create metadata directory: %w", err)
		}
	}

	env.Version = currentVersion
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	check, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("read-back temp file: %w", err)
	}
	var verify envelope
	if err := json.Unmarshal(check, &verify); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("round-trip validation failed: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename metadata file: %w", err)
	}
	return nil
}

func (s *Store) NewDataset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return err
	}
	if env.Datasets[name] {
		return engineerr.ErrAlreadyExists
	}
	env.Datasets[name] = true
	return s.flush(env)
}

func (s *Store) GetDataset(_ context.Context, name string) (*metadata.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return nil, err
	}
	if !env.Datasets[name] {
		return nil, engineerr.ErrNotFound
	}
	return &metadata.Dataset{Name: name}, nil
}

func (s *Store) DeleteDataset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return err
	}
	if !env.Datasets[name] {
		return engineerr.ErrNotFound
	}
	delete(env.Datasets, name)
	delete(env.Columns, name)
	return s.flush(env)
}

func (s *Store) InsertColumn(_ context.Context, c schema.Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return err
	}
	if !env.Datasets[c.Dataset] {
		return engineerr.ErrNotFound
	}

	existing := env.Columns[c.Dataset]
	effective := schema.Fold(c.Dataset, existing, s.logger)
	if violations := schema.Validate(effective, c); len(violations) > 0 {
		messages := make([]string, len(violations))
		for i, v := range violations {
			messages[i] = v.Rule + ": " + v.Message
		}
		return &engineerr.ValidationError{Violations: messages}
	}

	env.Columns[c.Dataset] = append(existing, c)
	return s.flush(env)
}

func (s *Store) GetSchema(_ context.Context, dataset string, version int) (*schema.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return nil, err
	}
	if !env.Datasets[dataset] {
		return nil, engineerr.ErrNotFound
	}

	var eligible []schema.Column
	for _, c := range env.Columns[dataset] {
		if c.Version <= version {
			eligible = append(eligible, c)
		}
	}
	return schema.Fold(dataset, eligible, s.logger), nil
}
