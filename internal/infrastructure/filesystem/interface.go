// Package filesystem abstracts the file primitives used by the document and
// backup stores, so tests can inject failures.
package filesystem

import (
	"io/fs"
)

// FileSystem is the minimal set of file operations the stores need.
type FileSystem interface {
	// Stat returns file information for the given path.
	// Returns fs.ErrNotExist if the file doesn't exist.
	Stat(name string) (fs.FileInfo, error)

	// ReadDir returns the entries of a directory sorted by filename.
	ReadDir(name string) ([]fs.DirEntry, error)

	ReadFile(name string) ([]byte, error)

	// WriteFileAtomic replaces name with data so that readers observe
	// either the old or the new content.
	WriteFileAtomic(name string, data []byte, perm fs.FileMode) error

	// Remove deletes a file. A missing file is not an error.
	Remove(name string) error

	MkdirAll(path string, perm fs.FileMode) error
}
