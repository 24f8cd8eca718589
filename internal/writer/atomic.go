// Package writer exposes sinks for page emission.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile is a seekable temp file that replaces Path on Commit. Page writes
// need to seek back and rewrite the header, so the sink is an *os.File rather
// than a byte buffer.
type AtomicFile struct {
	Path string

	f       *os.File
	tmpPath string
}

// Create opens a temp file in the same directory as path so the final rename
// stays on one filesystem.
func Create(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create page directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".pagekit-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &AtomicFile{Path: path, f: f, tmpPath: f.Name()}, nil
}

// File returns the underlying temp file.
func (a *AtomicFile) File() *os.File { return a.f }

// Commit syncs the temp file and renames it over Path.
func (a *AtomicFile) Commit() error {
	if a.f == nil {
		return fmt.Errorf("commit %s: already finished", a.Path)
	}
	f := a.f
	a.f = nil

	if err := datasync(f); err != nil {
		_ = f.Close()
		_ = os.Remove(a.tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(a.tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(a.tmpPath, a.Path); err != nil {
		_ = os.Remove(a.tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Abort discards the temp file. Safe to call after Commit.
func (a *AtomicFile) Abort() {
	if a.f == nil {
		return
	}
	_ = a.f.Close()
	_ = os.Remove(a.tmpPath)
	a.f = nil
}
