package migration

import (
	"fmt"
	"time"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// Validator checks paths before execution and single steps right before they run.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePath performs the static check of a planned path: every migration
// must be well-formed and consecutive edges must chain.
func (v *Validator) ValidatePath(p *Path) error {
	if p == nil {
		return fmt.Errorf("%w: path is nil", ErrInvalidMigrationDefinition)
	}
	for i, m := range p.Migrations {
		if err := validateDefinition(m); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	if p.Empty() {
		return nil
	}

	if !p.Migrations[0].From.Equal(p.From) {
		return fmt.Errorf("%w: path starts at %s, first step starts at %s",
			ErrBrokenChain, p.From, p.Migrations[0].From)
	}
	for i := 0; i < len(p.Migrations)-1; i++ {
		cur, next := p.Migrations[i], p.Migrations[i+1]
		if !cur.To.Equal(next.From) {
			return fmt.Errorf("%w: step %d ends at %s, step %d starts at %s",
				ErrBrokenChain, i+1, cur.To, i+2, next.From)
		}
	}
	if last := p.Migrations[len(p.Migrations)-1]; !last.To.Equal(p.To) {
		return fmt.Errorf("%w: path ends at %s, last step ends at %s", ErrBrokenChain, p.To, last.To)
	}
	return nil
}

func validateDefinition(m *Migration) error {
	switch {
	case m == nil:
		return fmt.Errorf("%w: nil migration", ErrInvalidMigrationDefinition)
	case m.ID == "":
		return fmt.Errorf("%w: %s has no id", ErrInvalidMigrationDefinition, EdgeKey(m.From, m.To))
	case !m.From.Less(m.To):
		return fmt.Errorf("%w: %s does not move forward", ErrInvalidMigrationDefinition, m.ID)
	case m.Transform == nil:
		return fmt.Errorf("%w: %s has no transform", ErrInvalidMigrationDefinition, m.ID)
	case m.EstimatedSteps < 0:
		return fmt.Errorf("%w: %s has negative estimated steps", ErrInvalidMigrationDefinition, m.ID)
	}
	return nil
}

// ValidateOne checks the preconditions of m against doc: the edge must not
// already be applied, the document must sit at m.From, and every prerequisite
// must be recorded as successfully applied.
func (v *Validator) ValidateOne(m *Migration, doc *document.Document) error {
	if m == nil {
		return fmt.Errorf("%w: nil migration", ErrInvalidMigrationDefinition)
	}

	if rec, ok := FindRecord(doc, m.From, m.To); ok && rec.Success {
		return stepError("validate", m, fmt.Errorf("%w at %s", ErrAlreadyApplied, rec.AppliedAt.UTC().Format(time.RFC3339)))
	}

	current, err := document.Detect(doc)
	if err != nil {
		return stepError("validate", m, err)
	}
	if !current.Equal(m.From) {
		return stepError("validate", m, fmt.Errorf("%w: document is at %s", ErrVersionMismatch, current))
	}

	for _, id := range m.Prerequisites {
		if !hasSuccessfulRecord(doc, id) {
			return stepError("validate", m, fmt.Errorf("%w: %s", ErrPrerequisiteNotMet, id))
		}
	}
	return nil
}

// FindRecord returns the history record for the (from, to) edge, if any.
// Record versions are compared numerically, so "1.0" matches "1.0.0".
func FindRecord(doc *document.Document, from, to version.Version) (document.MigrationRecord, bool) {
	if doc == nil {
		return document.MigrationRecord{}, false
	}
	for _, rec := range doc.Migrations {
		if RecordMatches(rec, from, to) {
			return rec, true
		}
	}
	return document.MigrationRecord{}, false
}

// RecordMatches reports whether rec describes the (from, to) edge.
func RecordMatches(rec document.MigrationRecord, from, to version.Version) bool {
	rf, err := version.ParseLenient(rec.From)
	if err != nil {
		return rec.From == from.String() && rec.To == to.String()
	}
	rt, err := version.ParseLenient(rec.To)
	if err != nil {
		return false
	}
	return rf.Equal(from) && rt.Equal(to)
}

// hasSuccessfulRecord matches id against record IDs and synthesized edge labels.
func hasSuccessfulRecord(doc *document.Document, id string) bool {
	for _, rec := range doc.Migrations {
		if !rec.Success {
			continue
		}
		if rec.ID == id || rec.From+"->"+rec.To == id {
			return true
		}
	}
	return false
}
