// Package blob stores large record payloads as individual files in a
// dedicated directory, one file per record id. The directory is owned
// exclusively by the persistence engine.
package blob

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/yiblet/clipvault/internal/store"
)

// Dir is an external blob directory. Files are named <id>.dat.
type Dir struct {
	root string
}

// New creates the blob directory if needed and returns a handle to it.
func New(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Path returns the file path for the given record id.
func (d *Dir) Path(id uuid.UUID) string {
	return filepath.Join(d.root, id.String()+".dat")
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// Write atomically persists the payload for id: tmp file → fsync →
// rename. A crash never leaves a partial file visible under the final
// name.
func (d *Dir) Write(id uuid.UUID, payload []byte) error {
	tmp, err := os.CreateTemp(d.root, ".clipvault-tmp-*")
	if err != nil {
		return fmt.Errorf("blob: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("blob: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("blob: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("blob: close temp: %w", err)
	}
	if err := os.Rename(tmpName, d.Path(id)); err != nil {
		return fmt.Errorf("blob: rename: %w", err)
	}
	success = true
	return nil
}

// Read returns the payload for id. An absent file is a data-integrity
// fault, reported as store.ErrContentMissing rather than empty content.
func (d *Dir) Read(id uuid.UUID) ([]byte, error) {
	data, err := os.ReadFile(d.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob: %s: %w", id, store.ErrContentMissing)
		}
		return nil, fmt.Errorf("blob: read %s: %w", id, err)
	}
	return data, nil
}

// Remove deletes the blob for id. A file that is already gone is not an
// error: Remove runs after the owning row is deleted, and the row is the
// source of truth.
func (d *Dir) Remove(id uuid.UUID) error {
	if err := os.Remove(d.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob: remove %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a blob file is present for id.
func (d *Dir) Exists(id uuid.UUID) bool {
	_, err := os.Stat(d.Path(id))
	return err == nil
}
