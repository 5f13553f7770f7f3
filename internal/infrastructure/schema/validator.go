// Package schema validates migrated documents against per-version JSON
// schemas stored as <dir>/<major.minor.patch>.json.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"cosmossdk.io/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/filesystem"
)

// Validator implements ports.SchemaValidator. Schemas are compiled on first
// use and cached; a version without a schema file always validates.
type Validator struct {
	dir    string
	fs     filesystem.FileSystem
	logger log.Logger

	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

// NewValidator creates a validator reading schemas from dir.
func NewValidator(dir string, fsys filesystem.FileSystem, logger log.Logger) *Validator {
	if fsys == nil {
		fsys = filesystem.NewOSFileSystem()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Validator{
		dir:     dir,
		fs:      fsys,
		logger:  logger,
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Validate checks doc against the schema registered for v.
func (v *Validator) Validate(ver version.Version, doc *document.Document) error {
	sch, err := v.schema(ver)
	if err != nil {
		return err
	}
	if sch == nil {
		return nil
	}

	root, err := doc.ToMap()
	if err != nil {
		return err
	}
	// Round-trip through JSON so the validator sees JSON-native types.
	b, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to encode document for schema %s: %w", ver.Key(), err)
	}
	var redecoded any
	if err := json.Unmarshal(b, &redecoded); err != nil {
		return err
	}
	if err := sch.Validate(redecoded); err != nil {
		return fmt.Errorf("schema validation failed for version %s: %w", ver.Key(), err)
	}
	return nil
}

// schema returns the compiled schema for ver, or nil when none exists.
func (v *Validator) schema(ver version.Version) (*jsonschema.Schema, error) {
	key := ver.Key()

	v.mu.Lock()
	defer v.mu.Unlock()
	if sch, ok := v.schemas[key]; ok {
		return sch, nil
	}

	path := filepath.Join(v.dir, key+".json")
	data, err := v.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			v.logger.Debug("no schema for version", "version", key)
			v.schemas[key] = nil
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(key, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	sch, err := compiler.Compile(key)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}
	v.schemas[key] = sch
	return sch, nil
}

// Available lists the versions that have a schema file in dir.
func (v *Validator) Available() ([]string, error) {
	entries, err := v.fs.ReadDir(v.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := e.Name()[:len(e.Name())-len(".json")]
		if _, err := version.Parse(name); err != nil {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

var _ ports.SchemaValidator = (*Validator)(nil)
