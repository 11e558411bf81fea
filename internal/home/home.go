// Package home manages the segstore home directory layout.
//
// The home directory owns all persistent state: the metadata store and
// the per-partition/segment chunk store, when a sqlite or file backend
// is selected instead of an in-memory one.
//
// Layout:
//
//	<root>/
//	  metadata.db     or  metadata.json   (metadata store, type-dependent)
//	  store.db                             (chunk/segment store, sqlite only)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir represents a segstore home directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/segstore
//   - macOS:   ~/Library/Application Support/segstore
//   - Windows: %APPDATA%/segstore
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "segstore")}, nil
}

// Root returns the home directory path.
func (d Dir) Root() string {
	return d.root
}

// MetadataPath returns the path to the metadata store file for the given
// backend type. "file" -> metadata.json, anything else -> metadata.db.
func (d Dir) MetadataPath(backend string) string {
	if backend == "file" {
		return filepath.Join(d.root, "metadata.json")
	}
	return filepath.Join(d.root, "metadata.db")
}

// StorePath returns the path to the sqlite chunk/segment store file.
func (d Dir) StorePath() string {
	return filepath.Join(d.root, "store.db")
}

// EnsureExists creates the home directory (and parents) if it doesn't exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create home directory %s: %w", d.root, err)
	}
	return nil
}
