// Package migration provides the migration graph, path planning and
// validation for checklist state documents.
package migration

import (
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// TransformFunc produces the next document from the current one. Returning a
// nil document is treated as malformed output.
type TransformFunc func(doc *document.Document) (*document.Document, error)

// SelfCheckFunc validates a migration's own output.
type SelfCheckFunc func(doc *document.Document) bool

// Migration is a directed edge of the version graph.
// Migrations are built once from a static manifest and never modified.
type Migration struct {
	// ID identifies the migration in history and progress output.
	// Registry.Register fills in "from->to" when left empty.
	ID          string
	From        version.Version
	To          version.Version
	Description string

	// Transform is required.
	Transform TransformFunc

	// Reverse undoes Transform. Optional; never used by forward planning.
	Reverse TransformFunc

	// SelfCheck is run against the transformed document. Optional.
	SelfCheck SelfCheckFunc

	// Prerequisites are migration IDs that must already be recorded as
	// successfully applied in the document's history.
	Prerequisites []string

	// EstimatedSteps only affects progress granularity. Values below 1 count as 1.
	EstimatedSteps int
}

// Label returns the ID, or a synthesized "from->to" label when ID is empty.
func (m *Migration) Label() string {
	if m.ID != "" {
		return m.ID
	}
	return EdgeKey(m.From, m.To)
}

// Steps returns the number of progress steps this migration accounts for.
func (m *Migration) Steps() int {
	if m.EstimatedSteps < 1 {
		return 1
	}
	return m.EstimatedSteps
}

// EdgeKey returns the identity of the ordered version pair.
func EdgeKey(from, to version.Version) string {
	return from.Key() + "->" + to.Key()
}

// Info is a serializable summary of a migration.
type Info struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description,omitempty"`
	Reversible  bool   `json:"reversible"`
}

// Info returns a summary of m.
func (m *Migration) Info() Info {
	return Info{
		ID:          m.Label(),
		From:        m.From.String(),
		To:          m.To.String(),
		Description: m.Description,
		Reversible:  m.Reverse != nil,
	}
}

// Path is an ordered chain of migrations from From to To.
type Path struct {
	From       version.Version
	To         version.Version
	Migrations []*Migration
	TotalSteps int
}

// newPath builds a path and computes its step total.
func newPath(from, to version.Version, migrations []*Migration) *Path {
	p := &Path{From: from, To: to, Migrations: migrations}
	for _, m := range migrations {
		p.TotalSteps += m.Steps()
	}
	return p
}

// Empty reports whether the path applies no migrations.
func (p *Path) Empty() bool {
	return p == nil || len(p.Migrations) == 0
}

// IDs returns the labels of every migration in path order.
func (p *Path) IDs() []string {
	if p == nil {
		return []string{}
	}
	ids := make([]string, 0, len(p.Migrations))
	for _, m := range p.Migrations {
		ids = append(ids, m.Label())
	}
	return ids
}
