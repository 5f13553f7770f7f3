package migrations

import (
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
)

// TemplatesMigration introduces checklist templates and template variables.
type TemplatesMigration struct{}

// NewTemplatesMigration creates a new templates migration.
func NewTemplatesMigration() *TemplatesMigration {
	return &TemplatesMigration{}
}

// ID returns the migration identifier.
func (m *TemplatesMigration) ID() string { return "add-templates" }

// FromVersion returns the version this migration upgrades from.
func (m *TemplatesMigration) FromVersion() string { return "0.1.0" }

// ToVersion returns the version this migration upgrades to.
func (m *TemplatesMigration) ToVersion() string { return "0.2.0" }

// Description returns a human-readable description.
func (m *TemplatesMigration) Description() string {
	return "Add templates and variables"
}

// Migrate performs the migration.
func (m *TemplatesMigration) Migrate(doc *document.Document) (*document.Document, error) {
	if doc.Templates == nil {
		doc.Templates = []any{}
	}
	if doc.Variables == nil {
		doc.Variables = map[string]any{}
	}
	touch(doc)
	return doc, nil
}

// Rollback drops templates and variables.
func (m *TemplatesMigration) Rollback(doc *document.Document) (*document.Document, error) {
	doc.Templates = nil
	doc.Variables = nil
	doc.Version = m.FromVersion()
	touch(doc)
	return doc, nil
}

// Verify reports whether both keys are present.
func (m *TemplatesMigration) Verify(doc *document.Document) bool {
	return doc.Has(document.KeyTemplates) && doc.Has(document.KeyVariables)
}

var _ Step = (*TemplatesMigration)(nil)
