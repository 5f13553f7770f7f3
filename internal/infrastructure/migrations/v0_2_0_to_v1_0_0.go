package migrations

import (
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
)

// RecoveryMigration adds checkpoint recovery and conflict tracking.
//
// After (1.0.0):
//
//	recovery:
//	  enabled: false
//	  checkpoints: []
//	conflicts:
//	  detected: []
//	  resolutions: []
type RecoveryMigration struct{}

// NewRecoveryMigration creates a new recovery migration.
func NewRecoveryMigration() *RecoveryMigration {
	return &RecoveryMigration{}
}

// ID returns the migration identifier.
func (m *RecoveryMigration) ID() string { return "add-recovery" }

// FromVersion returns the version this migration upgrades from.
func (m *RecoveryMigration) FromVersion() string { return "0.2.0" }

// ToVersion returns the version this migration upgrades to.
func (m *RecoveryMigration) ToVersion() string { return "1.0.0" }

// Description returns a human-readable description.
func (m *RecoveryMigration) Description() string {
	return "Add recovery checkpoints and conflict tracking"
}

// Migrate performs the migration.
func (m *RecoveryMigration) Migrate(doc *document.Document) (*document.Document, error) {
	if doc.Recovery == nil {
		doc.Recovery = &document.Recovery{Enabled: false, Checkpoints: []any{}}
	}
	if doc.Recovery.Checkpoints == nil {
		doc.Recovery.Checkpoints = []any{}
	}
	if doc.Conflicts == nil {
		doc.Conflicts = map[string]any{}
	}
	for _, key := range []string{"detected", "resolutions"} {
		if _, ok := doc.Conflicts[key]; !ok {
			doc.Conflicts[key] = []any{}
		}
	}
	touch(doc)
	return doc, nil
}

// Rollback drops recovery and conflicts.
func (m *RecoveryMigration) Rollback(doc *document.Document) (*document.Document, error) {
	doc.Recovery = nil
	doc.Conflicts = nil
	doc.Version = m.FromVersion()
	touch(doc)
	return doc, nil
}

// Verify reports whether the recovery block is well-formed.
func (m *RecoveryMigration) Verify(doc *document.Document) bool {
	return doc.Recovery != nil && doc.Recovery.Checkpoints != nil && doc.Conflicts != nil
}

var _ Step = (*RecoveryMigration)(nil)
