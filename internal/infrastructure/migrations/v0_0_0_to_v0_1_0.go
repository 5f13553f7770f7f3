package migrations

import (
	"time"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
)

// MetadataMigration adds document timestamps.
//
// Before (0.0.0):
//
//	checklists: [...]
//
// After (0.1.0):
//
//	checklists: [...]
//	metadata:
//	  created: 2024-01-01T00:00:00Z
//	  modified: 2024-01-01T00:00:00Z
type MetadataMigration struct{}

// NewMetadataMigration creates a new metadata migration.
func NewMetadataMigration() *MetadataMigration {
	return &MetadataMigration{}
}

// ID returns the migration identifier.
func (m *MetadataMigration) ID() string { return "add-metadata" }

// FromVersion returns the version this migration upgrades from.
func (m *MetadataMigration) FromVersion() string { return "0.0.0" }

// ToVersion returns the version this migration upgrades to.
func (m *MetadataMigration) ToVersion() string { return "0.1.0" }

// Description returns a human-readable description.
func (m *MetadataMigration) Description() string {
	return "Add metadata with created and modified timestamps"
}

// Migrate performs the migration. Existing timestamps are kept.
func (m *MetadataMigration) Migrate(doc *document.Document) (*document.Document, error) {
	now := Clock().Format(time.RFC3339)
	if doc.Metadata == nil {
		doc.Metadata = &document.Metadata{}
	}
	if doc.Metadata.Created == "" {
		doc.Metadata.Created = now
	}
	doc.Metadata.Modified = now
	if doc.Checklists == nil {
		doc.Checklists = []any{}
	}
	return doc, nil
}

// Rollback removes the timestamps again, keeping any other metadata keys.
func (m *MetadataMigration) Rollback(doc *document.Document) (*document.Document, error) {
	if doc.Metadata != nil {
		if len(doc.Metadata.Extra) == 0 {
			doc.Metadata = nil
		} else {
			doc.Metadata.Created = ""
			doc.Metadata.Modified = ""
		}
	}
	doc.Version = m.FromVersion()
	return doc, nil
}

// Verify reports whether both timestamps are present.
func (m *MetadataMigration) Verify(doc *document.Document) bool {
	return doc.Metadata != nil && doc.Metadata.Created != "" && doc.Metadata.Modified != ""
}

var _ Step = (*MetadataMigration)(nil)
