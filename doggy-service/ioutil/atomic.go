package ioutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// AtomicWriter writes to a temp file next to the target and renames it into place on Close.
type AtomicWriter struct {
	fs   afero.Fs
	dest string
	tmp  afero.File
	perm os.FileMode
}

func NewAtomicWriter(fs afero.Fs, path string, perm os.FileMode) (*AtomicWriter, error) {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &AtomicWriter{fs: fs, dest: path, tmp: tmp, perm: perm}, nil
}

func (a *AtomicWriter) Write(p []byte) (int, error) {
	return a.tmp.Write(p)
}

// Abort removes the temp file. The destination is left untouched.
func (a *AtomicWriter) Abort() {
	_ = a.tmp.Close()
	_ = a.fs.Remove(a.tmp.Name())
}

func (a *AtomicWriter) Close() error {
	if err := a.tmp.Close(); err != nil {
		_ = a.fs.Remove(a.tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := a.fs.Chmod(a.tmp.Name(), a.perm); err != nil {
		_ = a.fs.Remove(a.tmp.Name())
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := a.fs.Rename(a.tmp.Name(), a.dest); err != nil {
		_ = a.fs.Remove(a.tmp.Name())
		return fmt.Errorf("failed to move %s into place: %w", a.dest, err)
	}
	return nil
}
