package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const legacyState = `checklists:
  - id: deploy
    steps: [build, test]
activeInstance:
  checklistId: deploy
currentStepId: test
ui:
  theme: dark
`

func TestParse_PreservesUnknownKeysAndOrder(t *testing.T) {
	doc, err := Parse([]byte(legacyState))
	require.NoError(t, err)

	assert.Len(t, doc.Checklists, 1)
	assert.NotNil(t, doc.ActiveInstance)
	assert.Equal(t, "test", doc.Extra[KeyCurrentStepID])
	assert.Equal(t, map[string]any{"theme": "dark"}, doc.Extra["ui"])
	assert.Equal(t, []string{"checklists", "activeInstance", "currentStepId", "ui"}, doc.Keys())

	out, err := doc.Marshal()
	require.NoError(t, err)

	var before, after map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(legacyState), &before))
	require.NoError(t, yaml.Unmarshal(out, &after))
	assert.Equal(t, before, after)
}

func TestParse_NotAnObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"sequence", "- a\n- b\n"},
		{"scalar", "just text\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, IsInvalidDocument(err), "got %T: %v", err, err)
		})
	}
}

func TestMarshal_EmptyCollectionsArePresent(t *testing.T) {
	doc := New("0.2.0")
	doc.Templates = []any{}
	doc.Variables = map[string]any{}

	out, err := doc.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, parsed.Has(KeyTemplates))
	assert.True(t, parsed.Has(KeyVariables))
	assert.Empty(t, parsed.Templates)
	assert.Empty(t, parsed.Variables)
	assert.False(t, parsed.Has(KeyRecovery))
	assert.False(t, parsed.Has(KeyMigrations))
}

func TestMarshal_AddedKeysFollowExistingOnes(t *testing.T) {
	doc, err := Parse([]byte("ui: {}\nversion: 0.1.0\n"))
	require.NoError(t, err)

	doc.Templates = []any{}
	doc.Metadata = &Metadata{Created: "2024-01-01T00:00:00Z"}

	assert.Equal(t, []string{"ui", "version", "metadata", "templates"}, doc.Keys())
}

func TestMigrationRecords_RoundTrip(t *testing.T) {
	applied := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := New("0.1.0")
	doc.Migrations = []MigrationRecord{
		{ID: "add-metadata", From: "0.0.0", To: "0.1.0", AppliedAt: applied, Success: true, Checksum: "abc"},
		{From: "0.1.0", To: "0.2.0", AppliedAt: applied, Success: false, ErrorMessage: "boom"},
	}

	out, err := doc.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, parsed.Migrations, 2)
	assert.Equal(t, doc.Migrations[0], parsed.Migrations[0])
	assert.True(t, parsed.Migrations[0].AppliedAt.Equal(applied))
	assert.True(t, parsed.Migrations[1].Failed())
	assert.False(t, parsed.Migrations[0].Failed())
}

func TestClone_IsIndependent(t *testing.T) {
	doc, err := Parse([]byte(legacyState))
	require.NoError(t, err)

	clone, err := doc.Clone()
	require.NoError(t, err)

	clone.Version = "9.9.9"
	clone.Extra["ui"].(map[string]any)["theme"] = "light"

	assert.Empty(t, doc.Version)
	assert.Equal(t, "dark", doc.Extra["ui"].(map[string]any)["theme"])
}

func TestMapConversion(t *testing.T) {
	doc, err := Parse([]byte(legacyState))
	require.NoError(t, err)

	m, err := doc.ToMap()
	require.NoError(t, err)
	m["version"] = "0.0.0"
	delete(m, "ui")

	back, err := FromMap(m, doc)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", back.Version)
	assert.False(t, back.Has("ui"))
	assert.Equal(t, []string{"checklists", "activeInstance", "currentStepId", "version"}, back.Keys())

	_, err = FromMap(nil, nil)
	assert.True(t, IsInvalidDocument(err))
}

func TestChecksum_Stable(t *testing.T) {
	doc, err := Parse([]byte(legacyState))
	require.NoError(t, err)

	a, err := Checksum(doc)
	require.NoError(t, err)
	b, err := Checksum(doc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	doc.Version = "0.0.0"
	c, err := Checksum(doc)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestMigrationRecords_AppliedAtForms(t *testing.T) {
	tests := []struct {
		name    string
		applied string
		want    time.Time
	}{
		{"date only", "2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"space separated", "2024-01-01 10:00:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339", "2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"quoted rfc3339", `"2024-01-01T10:00:00Z"`, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"quoted date only", `'2024-01-01'`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"unparseable", "last tuesday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "version: 0.1.0\nmigrations:\n  - from: 0.0.0\n    to: 0.1.0\n    appliedAt: " +
				tt.applied + "\n    success: true\n"
			doc, err := Parse([]byte(input))
			require.NoError(t, err)
			require.Len(t, doc.Migrations, 1)
			assert.True(t, doc.Migrations[0].AppliedAt.Equal(tt.want), "got %s", doc.Migrations[0].AppliedAt)
			assert.True(t, doc.Migrations[0].Success)
		})
	}
}

func TestMetadata_TimestampStyleSurvivesRoundTrip(t *testing.T) {
	input := "metadata:\n  created: 2024-01-01T00:00:00Z\n  modified: \"2024-02-01T00:00:00Z\"\n  owner: ops\nversion: 0.1.0\n"

	doc, err := Parse([]byte(input))
	require.NoError(t, err)
	require.NotNil(t, doc.Metadata)
	assert.Equal(t, "2024-01-01T00:00:00Z", doc.Metadata.Created)
	assert.Equal(t, "2024-02-01T00:00:00Z", doc.Metadata.Modified)

	out, err := doc.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "created: 2024-01-01T00:00:00Z\n")
	assert.Contains(t, string(out), "modified: \"2024-02-01T00:00:00Z\"\n")
	assert.Contains(t, string(out), "owner: ops\n")

	m, err := doc.ToMap()
	require.NoError(t, err)
	back, err := FromMap(m, doc)
	require.NoError(t, err)
	out, err = back.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "created: 2024-01-01T00:00:00Z\n")
	assert.Contains(t, string(out), "modified: \"2024-02-01T00:00:00Z\"\n")
}

func TestMetadata_NewTimestampsArePlain(t *testing.T) {
	doc := New("0.1.0")
	doc.Metadata = &Metadata{Created: "2024-06-01T12:00:00Z", Modified: "not a time"}

	out, err := doc.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "created: 2024-06-01T12:00:00Z\n")
	assert.Contains(t, string(out), "modified: not a time\n")
}
