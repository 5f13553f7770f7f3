package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

const ownerManifest = `
migrations:
  - id: add-owner
    from: 1.0.0
    to: 1.1.0
    description: Track checklist owners
    prerequisites: [add-recovery]
    estimatedSteps: 2
    steps:
      - {op: set, path: metadata/owner, value: ""}
      - {op: rename, path: ui, to: preferences}
    check: '"preferences" in doc && doc.metadata.owner == ""'
`

const liveDoc = `version: 1.0.0
metadata:
  created: "2024-01-01T00:00:00Z"
ui:
  theme: dark
checklists: []
`

func parseDoc(t *testing.T, s string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(s))
	require.NoError(t, err)
	return doc
}

func TestParse_CompilesEntries(t *testing.T) {
	ms, err := Parse([]byte(ownerManifest))
	require.NoError(t, err)
	require.Len(t, ms, 1)

	m := ms[0]
	assert.Equal(t, "add-owner", m.ID)
	assert.True(t, m.From.Equal(version.MustParse("1.0.0")))
	assert.True(t, m.To.Equal(version.MustParse("1.1.0")))
	assert.Equal(t, []string{"add-recovery"}, m.Prerequisites)
	assert.Equal(t, 2, m.Steps())
	assert.NotNil(t, m.SelfCheck)
	assert.Nil(t, m.Reverse, "set is not invertible")

	out, err := m.Transform(parseDoc(t, liveDoc))
	require.NoError(t, err)
	assert.True(t, out.Has("preferences"))
	assert.False(t, out.Has("ui"))
	require.NotNil(t, out.Metadata)
	assert.Equal(t, "2024-01-01T00:00:00Z", out.Metadata.Created)
	assert.Contains(t, out.Metadata.Extra, "owner")
	assert.True(t, m.SelfCheck(out))

	// The untouched input fails the check.
	assert.False(t, m.SelfCheck(parseDoc(t, liveDoc)))
}

func TestParse_EmptyManifest(t *testing.T) {
	ms, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestParse_MoveAndRenameAreReversible(t *testing.T) {
	ms, err := Parse([]byte(`
migrations:
  - from: 1.0.0
    to: 1.1.0
    steps:
      - {op: move, from: ui/theme, to: preferences/theme}
      - {op: rename, path: metadata/created, to: createdAt}
`))
	require.NoError(t, err)
	require.Len(t, ms, 1)
	m := ms[0]
	require.NotNil(t, m.Reverse)

	in := parseDoc(t, liveDoc)
	out, err := m.Transform(in)
	require.NoError(t, err)
	root, err := out.ToMap()
	require.NoError(t, err)

	theme, ok := getAt(root, "preferences/theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)
	_, ok = getAt(root, "metadata/created")
	assert.False(t, ok)
	_, ok = getAt(root, "metadata/createdAt")
	assert.True(t, ok)

	back, err := m.Reverse(out)
	require.NoError(t, err)
	backRoot, err := back.ToMap()
	require.NoError(t, err)
	theme, ok = getAt(backRoot, "ui/theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)
	require.NotNil(t, back.Metadata)
	assert.Equal(t, "2024-01-01T00:00:00Z", back.Metadata.Created)
}

func TestTransform_MissingSourceFails(t *testing.T) {
	ms, err := Parse([]byte(`
migrations:
  - from: 1.0.0
    to: 1.1.0
    steps:
      - {op: move, from: nope, to: somewhere}
`))
	require.NoError(t, err)

	_, err = ms[0].Transform(parseDoc(t, liveDoc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source not found")
}

func TestParse_InvalidDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{
			name: "loose from version",
			manifest: `
migrations:
  - {from: "1.0", to: 1.1.0, steps: [{op: delete, path: ui}]}
`,
		},
		{
			name: "no steps",
			manifest: `
migrations:
  - {from: 1.0.0, to: 1.1.0, steps: []}
`,
		},
		{
			name: "unsupported op",
			manifest: `
migrations:
  - {from: 1.0.0, to: 1.1.0, steps: [{op: copy, path: ui}]}
`,
		},
		{
			name: "rename to nested path",
			manifest: `
migrations:
  - {from: 1.0.0, to: 1.1.0, steps: [{op: rename, path: ui, to: a/b}]}
`,
		},
		{
			name: "move without destination",
			manifest: `
migrations:
  - {from: 1.0.0, to: 1.1.0, steps: [{op: move, from: ui}]}
`,
		},
		{
			name: "check does not compile",
			manifest: `
migrations:
  - {from: 1.0.0, to: 1.1.0, steps: [{op: delete, path: ui}], check: "doc.("}
`,
		},
		{
			name: "unknown field",
			manifest: `
migrations:
  - {from: 1.0.0, to: 1.1.0, steps: [{op: delete, path: ui}], bogus: true}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.manifest))
			require.Error(t, err)
			assert.ErrorIs(t, err, migration.ErrInvalidMigrationDefinition)
			assert.True(t, migration.IsManifestDefect(err))
		})
	}
}

func TestRegister(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file registers nothing", func(t *testing.T) {
		reg := migration.NewRegistry()
		n, err := Register(reg, filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("extends the graph", func(t *testing.T) {
		path := filepath.Join(dir, "migrations.yaml")
		require.NoError(t, os.WriteFile(path, []byte(ownerManifest), 0600))

		reg := migration.NewRegistry()
		n, err := Register(reg, path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.True(t, reg.CanMigrate(version.MustParse("1.0.0"), version.MustParse("1.1.0")))
	})

	t.Run("duplicate edges are rejected", func(t *testing.T) {
		path := filepath.Join(dir, "dup.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
migrations:
  - {id: a, from: 1.0.0, to: 1.1.0, steps: [{op: delete, path: ui}]}
  - {id: b, from: 1.0.0, to: 1.1.0, steps: [{op: delete, path: ui}]}
`), 0600))

		_, err := Register(migration.NewRegistry(), path)
		assert.ErrorIs(t, err, migration.ErrDuplicateMigration)
	})
}

func TestCompileCheck(t *testing.T) {
	doc := parseDoc(t, liveDoc)

	tests := []struct {
		expr string
		want bool
	}{
		{`version == "1.0.0"`, true},
		{`doc.version == "1.0.0"`, true},
		{`ui.theme == "dark"`, true},
		{`"recovery" in doc`, false},
		{`len(checklists) == 0`, true},
		{`missing.key == 1`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			check, err := compileCheck(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, check(doc))
		})
	}
}

func TestPaths(t *testing.T) {
	root := map[string]any{
		"recovery": map[string]any{
			"checkpoints": []any{"a", "b"},
		},
		"version": "1.0.0",
	}

	v, ok := getAt(root, "recovery/checkpoints/1")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = getAt(root, "recovery/checkpoints/7")
	assert.False(t, ok)

	require.NoError(t, setAt(root, "recovery/checkpoints/0", "z"))
	v, _ = getAt(root, "recovery/checkpoints/0")
	assert.Equal(t, "z", v)

	require.NoError(t, setAt(root, "a/b/c", 1))
	v, ok = getAt(root, "a/b/c")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Error(t, setAt(root, "version/nested", 1))
	assert.NoError(t, deleteAt(root, "nope/nothing"))
	require.NoError(t, deleteAt(root, "a/b"))
	_, ok = getAt(root, "a/b")
	assert.False(t, ok)
}
