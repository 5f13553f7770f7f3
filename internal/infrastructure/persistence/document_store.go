package persistence

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/filesystem"
)

// documentPerm restricts state documents to the owner.
const documentPerm fs.FileMode = 0600

// FileDocumentStore implements ports.DocumentStore on the local filesystem.
// Writes are atomic (temp file + rename).
type FileDocumentStore struct {
	fs filesystem.FileSystem
}

// NewFileDocumentStore creates a store backed by fsys. A nil fsys uses the
// real filesystem.
func NewFileDocumentStore(fsys filesystem.FileSystem) *FileDocumentStore {
	if fsys == nil {
		fsys = filesystem.NewOSFileSystem()
	}
	return &FileDocumentStore{fs: fsys}
}

// Exists reports whether a regular file is stored at path.
func (s *FileDocumentStore) Exists(ctx context.Context, path string) (bool, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &ReadError{Path: path, Err: err}
	}
	return !info.IsDir(), nil
}

// Read returns the bytes stored at path.
func (s *FileDocumentStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &ReadError{Path: path, Err: err}
	}
	return data, nil
}

// Write atomically replaces the document at path, creating parent
// directories on demand.
func (s *FileDocumentStore) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := s.fs.WriteFileAtomic(path, data, documentPerm); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

var _ ports.DocumentStore = (*FileDocumentStore)(nil)
