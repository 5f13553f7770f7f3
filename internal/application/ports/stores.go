package ports

import (
	"context"
	"time"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// DocumentStore defines raw access to the persisted state document.
//
// Dependency Inversion Principle: Application layer defines the interface,
// infrastructure layer provides the implementation.
type DocumentStore interface {
	// Exists reports whether a document is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the serialized document at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the document at path. Implementations must be atomic:
	// readers see either the old or the new bytes, never a mix.
	Write(ctx context.Context, path string, data []byte) error
}

// BackupInfo describes a stored snapshot.
type BackupInfo struct {
	Path      string    `json:"path"`
	Version   string    `json:"version"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
	SizeBytes int64     `json:"sizeBytes"`
}

// BackupStore snapshots documents before mutation and restores them after a failure.
type BackupStore interface {
	// CreateBackup stores data, the serialized document at docVersion, as a
	// new snapshot and rotates old ones.
	CreateBackup(ctx context.Context, data []byte, docVersion string, label string) (*BackupInfo, error)

	// ListBackups returns stored snapshots, newest first.
	ListBackups(ctx context.Context) ([]*BackupInfo, error)

	// Restore decodes a snapshot without touching the live document.
	Restore(ctx context.Context, backup *BackupInfo) (*document.Document, error)

	// Rollback overwrites the live document at path with the snapshot bytes.
	Rollback(ctx context.Context, path string, backup *BackupInfo) error
}

// SchemaValidator checks a migrated document against the schema published for
// its version. Versions without a schema pass.
type SchemaValidator interface {
	Validate(v version.Version, doc *document.Document) error
}
