// Package migrations contains the built-in checklist document migrations.
package migrations

import (
	"fmt"
	"time"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// LatestVersion is the document version written by this build.
var LatestVersion = document.RecoveryShapeVersion

// Step is implemented by every built-in migration.
type Step interface {
	ID() string
	FromVersion() string
	ToVersion() string
	Description() string
	Migrate(doc *document.Document) (*document.Document, error)
	Rollback(doc *document.Document) (*document.Document, error)
	Verify(doc *document.Document) bool
}

// Clock returns the current time. Overridden in tests.
var Clock = func() time.Time { return time.Now().UTC() }

// Steps returns every built-in migration, oldest first.
func Steps() []Step {
	return []Step{
		NewMetadataMigration(),
		NewTemplatesMigration(),
		NewRecoveryMigration(),
	}
}

// Definition converts s into a registry edge.
func Definition(s Step) (*migration.Migration, error) {
	from, err := version.Parse(s.FromVersion())
	if err != nil {
		return nil, fmt.Errorf("migration %s: %w", s.ID(), err)
	}
	to, err := version.Parse(s.ToVersion())
	if err != nil {
		return nil, fmt.Errorf("migration %s: %w", s.ID(), err)
	}
	return &migration.Migration{
		ID:          s.ID(),
		From:        from,
		To:          to,
		Description: s.Description(),
		Transform:   s.Migrate,
		Reverse:     s.Rollback,
		SelfCheck:   s.Verify,
	}, nil
}

// Register adds every built-in migration to reg.
func Register(reg *migration.Registry) error {
	for _, s := range Steps() {
		m, err := Definition(s)
		if err != nil {
			return err
		}
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// touch stamps metadata.modified when the document carries metadata.
func touch(doc *document.Document) {
	if doc.Metadata != nil {
		doc.Metadata.Modified = Clock().Format(time.RFC3339)
	}
}
