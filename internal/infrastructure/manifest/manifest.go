// Package manifest loads declarative migrations from a YAML file.
//
// A manifest adds migrations without recompiling:
//
//	migrations:
//	  - id: add-owner
//	    from: 1.0.0
//	    to: 1.1.0
//	    description: Track checklist owners
//	    prerequisites: [add-recovery]
//	    steps:
//	      - {op: set, path: metadata/owner, value: ""}
//	      - {op: rename, path: ui, to: preferences}
//	    check: '"preferences" in doc && doc.metadata.owner == ""'
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// Supported step operations.
const (
	OpSet    = "set"
	OpDelete = "delete"
	OpMove   = "move"
	OpRename = "rename"
)

// File is the top-level manifest document.
type File struct {
	Migrations []Entry `yaml:"migrations"`
}

// Entry declares one migration.
type Entry struct {
	ID             string   `yaml:"id"`
	From           string   `yaml:"from"`
	To             string   `yaml:"to"`
	Description    string   `yaml:"description,omitempty"`
	Prerequisites  []string `yaml:"prerequisites,omitempty"`
	EstimatedSteps int      `yaml:"estimatedSteps,omitempty"`
	Steps          []Step   `yaml:"steps"`
	Check          string   `yaml:"check,omitempty"`
}

// Step is a single path operation.
//
//	set    path, value   store value at path
//	delete path          remove the key at path
//	move   from, to      move a value between paths
//	rename path, to      rename the last segment of path to the key "to"
type Step struct {
	Op    string `yaml:"op"`
	Path  string `yaml:"path,omitempty"`
	From  string `yaml:"from,omitempty"`
	To    string `yaml:"to,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// Load reads the manifest at path. A missing file yields no migrations.
func Load(path string) ([]*migration.Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	ms, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}

// Parse decodes a manifest and compiles its entries into migrations.
// Malformed entries are reported as migration.ErrInvalidMigrationDefinition.
func Parse(data []byte) ([]*migration.Migration, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", migration.ErrInvalidMigrationDefinition, err)
	}

	out := make([]*migration.Migration, 0, len(f.Migrations))
	for i, e := range f.Migrations {
		m, err := e.compile()
		if err != nil {
			return nil, fmt.Errorf("migration %d (%s): %w", i+1, e.ID, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Register loads the manifest at path into reg.
func Register(reg *migration.Registry, path string) (int, error) {
	ms, err := Load(path)
	if err != nil {
		return 0, err
	}
	for _, m := range ms {
		if err := reg.Register(m); err != nil {
			return 0, err
		}
	}
	return len(ms), nil
}

func (e Entry) compile() (*migration.Migration, error) {
	from, err := version.Parse(e.From)
	if err != nil {
		return nil, fmt.Errorf("%w: from: %v", migration.ErrInvalidMigrationDefinition, err)
	}
	to, err := version.Parse(e.To)
	if err != nil {
		return nil, fmt.Errorf("%w: to: %v", migration.ErrInvalidMigrationDefinition, err)
	}
	if len(e.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", migration.ErrInvalidMigrationDefinition)
	}
	for i, s := range e.Steps {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", migration.ErrInvalidMigrationDefinition, i+1, err)
		}
	}

	m := &migration.Migration{
		ID:             e.ID,
		From:           from,
		To:             to,
		Description:    e.Description,
		Prerequisites:  e.Prerequisites,
		EstimatedSteps: e.EstimatedSteps,
		Transform:      transform(e.Steps),
	}
	if rev, ok := invert(e.Steps); ok {
		m.Reverse = transform(rev)
	}
	if e.Check != "" {
		check, err := compileCheck(e.Check)
		if err != nil {
			return nil, fmt.Errorf("%w: check: %v", migration.ErrInvalidMigrationDefinition, err)
		}
		m.SelfCheck = check
	}
	return m, nil
}

func (s Step) validate() error {
	switch s.Op {
	case OpSet:
		if len(split(s.Path)) == 0 {
			return fmt.Errorf("set requires path")
		}
	case OpDelete:
		if len(split(s.Path)) == 0 {
			return fmt.Errorf("delete requires path")
		}
	case OpMove:
		if len(split(s.From)) == 0 || len(split(s.To)) == 0 {
			return fmt.Errorf("move requires from and to")
		}
	case OpRename:
		if len(split(s.Path)) == 0 || s.To == "" || len(split(s.To)) != 1 {
			return fmt.Errorf("rename requires path and a single-segment to")
		}
	default:
		return fmt.Errorf("unsupported op %q", s.Op)
	}
	return nil
}

// transform turns steps into a TransformFunc operating on the document map.
func transform(steps []Step) migration.TransformFunc {
	return func(doc *document.Document) (*document.Document, error) {
		root, err := doc.ToMap()
		if err != nil {
			return nil, err
		}
		for i, s := range steps {
			if err := apply(root, s); err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
			}
		}
		return document.FromMap(root, doc)
	}
}

func apply(root map[string]any, s Step) error {
	switch s.Op {
	case OpSet:
		return setAt(root, s.Path, s.Value)
	case OpDelete:
		return deleteAt(root, s.Path)
	case OpMove:
		return move(root, s.From, s.To)
	case OpRename:
		return move(root, s.Path, renamed(s.Path, s.To))
	}
	return fmt.Errorf("unsupported op %q", s.Op)
}

func move(root map[string]any, from, to string) error {
	v, ok := getAt(root, from)
	if !ok {
		return fmt.Errorf("source not found: %s", from)
	}
	if err := deleteAt(root, from); err != nil {
		return err
	}
	return setAt(root, to, v)
}

// renamed replaces the last segment of path with name.
func renamed(path, name string) string {
	segs := split(path)
	segs[len(segs)-1] = name
	return strings.Join(segs, "/")
}

// invert returns the reverse of steps when every step is invertible.
func invert(steps []Step) ([]Step, bool) {
	out := make([]Step, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		switch s.Op {
		case OpMove:
			out = append(out, Step{Op: OpMove, From: s.To, To: s.From})
		case OpRename:
			segs := split(s.Path)
			out = append(out, Step{Op: OpRename, Path: renamed(s.Path, s.To), To: segs[len(segs)-1]})
		default:
			return nil, false
		}
	}
	return out, true
}
