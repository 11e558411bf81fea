// Package memory provides an in-memory metadata.Store implementation,
// grounded on the teacher's internal/config/memory: one mutex, plain maps,
// Put/Get/Delete methods copying in and out so callers can never mutate
// stored state through a returned pointer.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"segstore/internal/engineerr"
	"segstore/internal/logging"
	"segstore/internal/metadata"
	"segstore/internal/schema"
)

// Store is an in-memory metadata.Store.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]metadata.Dataset
	columns  map[string][]schema.Column // dataset name -> all inserted columns
	logger   *slog.Logger
}

var _ metadata.Store = (*Store)(nil)

// New creates an empty in-memory Store.
func New(logger *slog.Logger) *Store {
	return &Store{
		datasets: make(map[string]metadata.Dataset),
		columns:  make(map[string][]schema.Column),
		logger:   logging.Default(logger).With("component", "metadata-store", "type", "memory"),
	}
}

func (s *Store) NewDataset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.datasets[name]; exists {
		return engineerr.ErrAlreadyExists
	}
	s.datasets[name] = metadata.Dataset{Name: name}
	return nil
}

func (s *Store) GetDataset(_ context.Context, name string) (*metadata.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.datasets[name]
	if !ok {
		return nil, engineerr.ErrNotFound
	}
	return &d, nil
}

func (s *Store) DeleteDataset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[name]; !ok {
		return engineerr.ErrNotFound
	}
	delete(s.datasets, name)
	delete(s.columns, name)
	return nil
}

func (s *Store) InsertColumn(_ context.Context, c schema.Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[c.Dataset]; !ok {
		return engineerr.ErrNotFound
	}

	existing := s.columns[c.Dataset]
	effective := schema.Fold(c.Dataset, existing, s.logger)
	if violations := schema.Validate(effective, c); len(violations) > 0 {
		messages := make([]string, len(violations))
		for i, v := range violations {
			messages[i] = v.Rule + ": " + v.Message
		}
		return &engineerr.ValidationError{Violations: messages}
	}

	s.columns[c.Dataset] = append(existing, c)
	return nil
}

func (s *Store) GetSchema(_ context.Context, dataset string, version int) (*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.datasets[dataset]; !ok {
		return nil, engineerr.ErrNotFound
	}

	var eligible []schema.Column
	for _, c := range s.columns[dataset] {
		if c.Version <= version {
			eligible = append(eligible, c)
		}
	}
	return schema.Fold(dataset, eligible, s.logger), nil
}
