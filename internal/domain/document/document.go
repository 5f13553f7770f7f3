// Package document models the persisted checklist state file.
//
// A Document exposes typed fields for every key the migration engine reads or
// writes and keeps everything else in Extra, so that a load/save cycle never
// drops data the engine does not understand. Key order of the source file is
// preserved when the document is serialized again.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Well-known top-level keys.
const (
	KeyVersion        = "version"
	KeySchemaVersion  = "schemaVersion"
	KeyMigrations     = "migrations"
	KeyTemplates      = "templates"
	KeyVariables      = "variables"
	KeyRecovery       = "recovery"
	KeyConflicts      = "conflicts"
	KeyMetadata       = "metadata"
	KeyChecklists     = "checklists"
	KeyActiveInstance = "activeInstance"
	KeyCompletedSteps = "completedSteps"
	KeyCurrentStepID  = "currentStepId"
)

// knownKeys is the canonical emission order for typed fields that were not
// present in the source document.
var knownKeys = []string{
	KeyVersion,
	KeySchemaVersion,
	KeyMetadata,
	KeyChecklists,
	KeyActiveInstance,
	KeyTemplates,
	KeyVariables,
	KeyRecovery,
	KeyConflicts,
	KeyMigrations,
}

// Document is the in-memory form of a checklist state file.
// Slice and map fields are nil when the key is absent; an empty non-nil value
// means the key is present but empty.
type Document struct {
	Version        string
	SchemaVersion  string
	Migrations     []MigrationRecord
	Templates      []any
	Variables      map[string]any
	Recovery       *Recovery
	Conflicts      map[string]any
	Metadata       *Metadata
	Checklists     []any
	ActiveInstance any

	// Extra holds every top-level key without a typed field.
	Extra map[string]any

	order []string
}

// Metadata carries document timestamps.
//
// Timestamps are kept as text. A value that was written as a plain YAML
// timestamp is emitted plain again, and a quoted one stays quoted.
type Metadata struct {
	Created  string         `yaml:"created,omitempty"`
	Modified string         `yaml:"modified,omitempty"`
	Extra    map[string]any `yaml:",inline"`

	createdQuoted  bool
	modifiedQuoted bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Metadata) UnmarshalYAML(node *yaml.Node) error {
	type plain Metadata
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = Metadata(p)
	for i := 0; i+1 < len(node.Content); i += 2 {
		val := node.Content[i+1]
		switch node.Content[i].Value {
		case "created":
			m.createdQuoted = val.ShortTag() != timestampTag
		case "modified":
			m.modifiedQuoted = val.ShortTag() != timestampTag
		}
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Metadata) MarshalYAML() (interface{}, error) {
	type plain Metadata
	var node yaml.Node
	if err := node.Encode(plain(m)); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		val := node.Content[i+1]
		switch node.Content[i].Value {
		case "created":
			restyleTimestamp(val, m.createdQuoted)
		case "modified":
			restyleTimestamp(val, m.modifiedQuoted)
		}
	}
	return &node, nil
}

// keepStyle copies the scalar style of timestamps that still hold the same
// text as in ref.
func (m *Metadata) keepStyle(ref *Metadata) {
	if ref == nil {
		return
	}
	if m.Created == ref.Created {
		m.createdQuoted = ref.createdQuoted
	}
	if m.Modified == ref.Modified {
		m.modifiedQuoted = ref.modifiedQuoted
	}
}

const timestampTag = "!!timestamp"

// restyleTimestamp turns a string scalar into a plain timestamp scalar unless
// it must stay quoted or does not read as a YAML timestamp.
func restyleTimestamp(val *yaml.Node, quoted bool) {
	if quoted || val.Kind != yaml.ScalarNode || !isTimestamp(val.Value) {
		return
	}
	val.Tag = timestampTag
	val.Style = 0
}

func isTimestamp(s string) bool {
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(s), &n); err != nil || len(n.Content) == 0 {
		return false
	}
	return n.Content[0].Kind == yaml.ScalarNode && n.Content[0].ShortTag() == timestampTag
}

// Recovery holds checkpoint configuration introduced in the 1.0.0 shape.
type Recovery struct {
	Enabled     bool           `yaml:"enabled"`
	Checkpoints []any          `yaml:"checkpoints"`
	Extra       map[string]any `yaml:",inline"`
}

// MigrationRecord is one entry of the document's embedded migration history.
type MigrationRecord struct {
	ID             string    `yaml:"id,omitempty"`
	From           string    `yaml:"from"`
	To             string    `yaml:"to"`
	AppliedAt      time.Time `yaml:"appliedAt"`
	Success        bool      `yaml:"success"`
	ChangesSummary string    `yaml:"changesSummary,omitempty"`
	ErrorMessage   string    `yaml:"errorMessage,omitempty"`
	Checksum       string    `yaml:"checksum,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler. appliedAt is accepted as any
// YAML timestamp form or as a quoted string, since generic map round trips
// quote it. A value that does not read as a time leaves AppliedAt zero.
func (r *MigrationRecord) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ID             string    `yaml:"id"`
		From           string    `yaml:"from"`
		To             string    `yaml:"to"`
		AppliedAt      yaml.Node `yaml:"appliedAt"`
		Success        bool      `yaml:"success"`
		ChangesSummary string    `yaml:"changesSummary"`
		ErrorMessage   string    `yaml:"errorMessage"`
		Checksum       string    `yaml:"checksum"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*r = MigrationRecord{
		ID:             raw.ID,
		From:           raw.From,
		To:             raw.To,
		AppliedAt:      parseAppliedAt(&raw.AppliedAt),
		Success:        raw.Success,
		ChangesSummary: raw.ChangesSummary,
		ErrorMessage:   raw.ErrorMessage,
		Checksum:       raw.Checksum,
	}
	return nil
}

// appliedAtLayouts are tried in order for quoted appliedAt values.
var appliedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseAppliedAt(n *yaml.Node) time.Time {
	if n.Kind != yaml.ScalarNode || n.Value == "" {
		return time.Time{}
	}
	var t time.Time
	if n.ShortTag() == timestampTag {
		if err := n.Decode(&t); err == nil {
			return t
		}
	}
	for _, layout := range appliedAtLayouts {
		if t, err := time.Parse(layout, n.Value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Failed reports whether the record carries error information.
func (r MigrationRecord) Failed() bool {
	return !r.Success || r.ErrorMessage != ""
}

// InvalidDocumentError is returned when input is not a structured object.
type InvalidDocumentError struct {
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return "invalid document: " + e.Reason
}

// IsInvalidDocument returns true if err is an *InvalidDocumentError.
func IsInvalidDocument(err error) bool {
	_, ok := err.(*InvalidDocumentError)
	return ok
}

// New returns a fresh minimal document at the given version.
func New(version string) *Document {
	return &Document{
		Version:    version,
		Checklists: []any{},
	}
}

// Parse decodes serialized bytes into a Document.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &InvalidDocumentError{Reason: "empty input"}
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &InvalidDocumentError{Reason: err.Error()}
	}
	doc := &Document{}
	if err := doc.UnmarshalYAML(&root); err != nil {
		return nil, err
	}
	return doc, nil
}

// Marshal serializes the document.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return &InvalidDocumentError{Reason: "empty input"}
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return &InvalidDocumentError{Reason: fmt.Sprintf("expected a mapping, got %s", kindName(node.Kind))}
	}

	*d = Document{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		d.order = append(d.order, key)
		if err := d.decodeField(key, val); err != nil {
			return fmt.Errorf("failed to decode %q: %w", key, err)
		}
	}
	return nil
}

func (d *Document) decodeField(key string, val *yaml.Node) error {
	switch key {
	case KeyVersion:
		return val.Decode(&d.Version)
	case KeySchemaVersion:
		return val.Decode(&d.SchemaVersion)
	case KeyMigrations:
		d.Migrations = []MigrationRecord{}
		return val.Decode(&d.Migrations)
	case KeyTemplates:
		d.Templates = []any{}
		return val.Decode(&d.Templates)
	case KeyVariables:
		d.Variables = map[string]any{}
		return val.Decode(&d.Variables)
	case KeyRecovery:
		d.Recovery = &Recovery{}
		return val.Decode(d.Recovery)
	case KeyConflicts:
		d.Conflicts = map[string]any{}
		return val.Decode(&d.Conflicts)
	case KeyMetadata:
		if val.Kind != yaml.MappingNode {
			return d.setExtra(key, val)
		}
		d.Metadata = &Metadata{}
		return val.Decode(d.Metadata)
	case KeyChecklists:
		d.Checklists = []any{}
		return val.Decode(&d.Checklists)
	case KeyActiveInstance:
		return val.Decode(&d.ActiveInstance)
	default:
		return d.setExtra(key, val)
	}
}

func (d *Document) setExtra(key string, val *yaml.Node) error {
	var v any
	if err := val.Decode(&v); err != nil {
		return err
	}
	if d.Extra == nil {
		d.Extra = map[string]any{}
	}
	d.Extra[key] = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d *Document) MarshalYAML() (interface{}, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	emitted := make(map[string]bool)

	emit := func(key string) error {
		if emitted[key] {
			return nil
		}
		val, ok := d.field(key)
		if !ok {
			return nil
		}
		emitted[key] = true
		var valNode yaml.Node
		if err := valNode.Encode(val); err != nil {
			return fmt.Errorf("failed to encode %q: %w", key, err)
		}
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&valNode,
		)
		return nil
	}

	for _, key := range d.order {
		if err := emit(key); err != nil {
			return nil, err
		}
	}
	for _, key := range knownKeys {
		if err := emit(key); err != nil {
			return nil, err
		}
	}
	extraKeys := make([]string, 0, len(d.Extra))
	for key := range d.Extra {
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		if err := emit(key); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// field returns the value stored under key and whether the key is present.
func (d *Document) field(key string) (any, bool) {
	switch key {
	case KeyVersion:
		return d.Version, d.Version != ""
	case KeySchemaVersion:
		return d.SchemaVersion, d.SchemaVersion != ""
	case KeyMigrations:
		return d.Migrations, d.Migrations != nil
	case KeyTemplates:
		return d.Templates, d.Templates != nil
	case KeyVariables:
		return d.Variables, d.Variables != nil
	case KeyRecovery:
		return d.Recovery, d.Recovery != nil
	case KeyConflicts:
		return d.Conflicts, d.Conflicts != nil
	case KeyMetadata:
		if d.Metadata != nil {
			return d.Metadata, true
		}
	case KeyChecklists:
		return d.Checklists, d.Checklists != nil
	case KeyActiveInstance:
		return d.ActiveInstance, d.ActiveInstance != nil
	}
	v, ok := d.Extra[key]
	return v, ok
}

// Has reports whether the top-level key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.field(key)
	return ok
}

// Keys returns the present top-level keys in serialization order.
func (d *Document) Keys() []string {
	node, err := d.MarshalYAML()
	if err != nil {
		return nil
	}
	content := node.(*yaml.Node).Content
	keys := make([]string, 0, len(content)/2)
	for i := 0; i < len(content); i += 2 {
		keys = append(keys, content[i].Value)
	}
	return keys
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() (*Document, error) {
	data, err := d.Marshal()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ToMap converts the document to a generic map.
func (d *Document) ToMap() (map[string]any, error) {
	data, err := d.Marshal()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode document map: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// FromMap builds a document from a generic map. Keys already present in the
// reference document keep their relative order.
func FromMap(m map[string]any, ref *Document) (*Document, error) {
	if m == nil {
		return nil, &InvalidDocumentError{Reason: "nil map"}
	}
	var node yaml.Node
	if err := node.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode document map: %w", err)
	}
	doc := &Document{}
	if err := doc.UnmarshalYAML(&node); err != nil {
		return nil, err
	}
	if ref != nil {
		doc.order = reorder(doc.order, ref.order)
		if doc.Metadata != nil {
			doc.Metadata.keepStyle(ref.Metadata)
		}
	}
	return doc, nil
}

// reorder sorts keys so that entries of ref come first in ref's order.
func reorder(keys, ref []string) []string {
	pos := make(map[string]int, len(ref))
	for i, k := range ref {
		pos[k] = i
	}
	sorted := append([]string(nil), keys...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, iok := pos[sorted[i]]
		pj, jok := pos[sorted[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		default:
			return false
		}
	})
	return sorted
}

// Checksum returns the sha256 of the serialized document.
func Checksum(d *Document) (string, error) {
	data, err := d.Marshal()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "unknown node"
	}
}
