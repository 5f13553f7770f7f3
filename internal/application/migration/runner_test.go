package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	domainMigration "github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/persistence"
)

func TestMigrate_LegacyDocumentToLatest(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage())

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, "0.0.0", res.FromVersion)
	assert.Equal(t, "1.0.0", res.ToVersion)
	assert.Equal(t, []string{"add-metadata", "add-templates", "add-recovery"}, res.AppliedMigrations)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.BackupPath)
	assert.Equal(t, 1, h.backupCount(t))

	doc := h.doc(t)
	assert.Equal(t, "1.0.0", doc.Version)
	assert.True(t, doc.Has(document.KeyCompletedSteps), "unknown keys survive")
	require.Len(t, doc.Migrations, 3)
	prev := "0.0.0"
	for _, rec := range doc.Migrations {
		assert.Equal(t, prev, rec.From)
		assert.True(t, rec.Success)
		assert.Empty(t, rec.ErrorMessage)
		assert.Len(t, rec.Checksum, 64)
		assert.False(t, rec.AppliedAt.IsZero())
		prev = rec.To
	}
	assert.Equal(t, "1.0.0", prev)

	for _, e := range h.events.events {
		assert.Equal(t, res.RunID, e.RunID)
	}
}

func TestMigrate_ProgressEvents(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)

	progress := h.events.progress()
	require.Len(t, progress, 3)
	want := []int{33, 67, 100}
	for i, e := range progress {
		assert.Equal(t, i+1, e.CurrentStep)
		assert.Equal(t, 3, e.TotalSteps)
		assert.Equal(t, want[i], e.Percentage)
		assert.Equal(t, res.AppliedMigrations[i], e.MigrationID)
	}
}

func TestMigrate_TransformFailureRollsBack(t *testing.T) {
	reg := metadataOnly(t, failing("explode", "0.1.0", "0.2.0"))
	h := newHarness(t, reg, "0.2.0", nil)
	original := h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, StateRolledBack, res.State)
	assert.ErrorIs(t, res.Err, domainMigration.ErrTransformFailed)
	assert.ErrorIs(t, res.Err, errBoom)
	assert.Contains(t, res.ErrorMessage(), "explode")
	assert.NoError(t, res.RollbackErr)
	assert.Empty(t, res.AppliedMigrations)
	assert.Equal(t, original, h.raw(t), "document restored byte for byte")

	assert.Equal(t, []ports.EventType{
		ports.EventProgress,
		ports.EventProgress,
		ports.EventError,
		ports.EventRollbackStart,
		ports.EventRollbackComplete,
	}, h.events.types())
}

func TestMigrate_SelfCheckFailureRollsBack(t *testing.T) {
	bad := &domainMigration.Migration{
		ID:        "unchecked",
		From:      version.MustParse("0.1.0"),
		To:        version.MustParse("0.2.0"),
		Transform: func(d *document.Document) (*document.Document, error) { return d, nil },
		SelfCheck: func(*document.Document) bool { return false },
	}
	h := newHarness(t, metadataOnly(t, bad), "0.2.0", nil)
	original := h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, StateRolledBack, res.State)
	assert.ErrorIs(t, res.Err, domainMigration.ErrSelfCheckFailed)
	assert.Equal(t, original, h.raw(t))
}

func TestMigrate_FailureWithoutBackup(t *testing.T) {
	reg := metadataOnly(t, failing("explode", "0.1.0", "0.2.0"))
	h := newHarness(t, reg, "0.2.0", nil)
	h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{NoBackup: true})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, StateFailedNoBackup, res.State)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, []string{"add-metadata"}, res.AppliedMigrations)
	assert.Zero(t, h.backupCount(t))

	// The document stays at the last good step, with the failed attempt recorded.
	doc := h.doc(t)
	assert.Equal(t, "0.1.0", doc.Version)
	require.Len(t, doc.Migrations, 2)
	assert.True(t, doc.Migrations[0].Success)
	assert.False(t, doc.Migrations[1].Success)
	assert.Contains(t, doc.Migrations[1].ErrorMessage, "boom")
}

func TestMigrate_RetryAfterFailureReplacesRecord(t *testing.T) {
	calls := 0
	flaky := &domainMigration.Migration{
		ID:   "flaky",
		From: version.MustParse("0.1.0"),
		To:   version.MustParse("0.2.0"),
		Transform: func(d *document.Document) (*document.Document, error) {
			calls++
			if calls == 1 {
				return nil, errBoom
			}
			d.Templates = []any{}
			d.Variables = map[string]any{}
			return d, nil
		},
	}
	h := newHarness(t, metadataOnly(t, flaky), "0.2.0", nil)
	h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{NoBackup: true})
	require.NoError(t, err)
	require.Equal(t, StateFailedNoBackup, res.State)

	res, err = h.runner.Migrate(context.Background(), MigrateOptions{NoBackup: true})
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage())
	assert.Equal(t, []string{"flaky"}, res.AppliedMigrations)

	doc := h.doc(t)
	require.Len(t, doc.Migrations, 2)
	assert.True(t, doc.Migrations[1].Success)
	assert.Empty(t, doc.Migrations[1].ErrorMessage)
}

func TestMigrate_SecondRunIsNoOp(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	h.write(t, legacyDoc)

	first, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	require.True(t, first.Success)
	migrated := h.raw(t)

	second, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, StateNoOpComplete, second.State)
	assert.Empty(t, second.AppliedMigrations)
	assert.Empty(t, second.BackupPath)
	assert.Equal(t, 1, h.backupCount(t))
	assert.Equal(t, migrated, h.raw(t))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestMigrate_MissingDocument(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage())
	assert.Equal(t, "0.0.0", res.FromVersion)
	assert.Empty(t, res.BackupPath)
	assert.Zero(t, h.backupCount(t))

	doc := h.doc(t)
	assert.Equal(t, "1.0.0", doc.Version)
	assert.Len(t, doc.Migrations, 3)
}

func TestMigrate_MissingDocumentWithoutBaseChain(t *testing.T) {
	reg := domainMigration.NewRegistry()
	h := newHarness(t, reg, "1.0.0", nil)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage())
	assert.Equal(t, StateNoOpComplete, res.State)
	assert.Equal(t, "1.0.0", h.doc(t).Version)
}

func TestMigrate_DryRunTouchesNothing(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	original := h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.DryRun)
	assert.Equal(t, StateDryRunComplete, res.State)
	assert.Equal(t, []string{"add-metadata", "add-templates", "add-recovery"}, res.AppliedMigrations)
	assert.Equal(t, original, h.raw(t))
	assert.Zero(t, h.backupCount(t))
	assert.Empty(t, h.events.progress())
}

func TestMigrate_ExplicitTarget(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{Target: "0.2"})
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage())
	assert.Equal(t, "0.2.0", res.ToVersion)
	assert.Equal(t, []string{"add-metadata", "add-templates"}, res.AppliedMigrations)
	assert.Equal(t, "0.2.0", h.doc(t).Version)
}

func TestMigrate_UnreachableTarget(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	original := h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{Target: "9.0.0"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, IsNoPath(res.Err))
	assert.ErrorIs(t, res.Err, domainMigration.ErrNoPathFound)
	assert.Equal(t, original, h.raw(t))
	assert.Equal(t, []ports.EventType{ports.EventError}, h.events.types())
}

func TestMigrate_BackwardTarget(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	h.write(t, "version: 1.0.0\nchecklists: []\n")

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{Target: "0.1.0"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, domainMigration.ErrBackwardMigration)
	assert.True(t, IsNoPath(res.Err))
}

func TestMigrate_InvalidTarget(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{Target: "latest"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, StateFailed, res.State)
	assert.Error(t, res.Err)
}

func TestMigrate_DefectiveDefinitionReturnsError(t *testing.T) {
	reg := metadataOnly(t, &domainMigration.Migration{
		ID:   "no-transform",
		From: version.MustParse("0.1.0"),
		To:   version.MustParse("0.2.0"),
	})
	h := newHarness(t, reg, "0.2.0", nil)
	original := h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainMigration.ErrInvalidMigrationDefinition)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, original, h.raw(t))
}

func TestMigrate_UnparseableDocument(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	h.write(t, "- just\n- a list\n")

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, document.IsInvalidDocument(unwrapAll(res.Err)))
}

func TestMigrate_CancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &cancelAfterWrite{DocumentStore: persistence.NewFileDocumentStore(nil), cancel: cancel}
	h := newHarness(t, builtinRegistry(t), "1.0.0", store)
	original := h.write(t, legacyDoc)

	res, err := h.runner.Migrate(ctx, MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, StateRolledBack, res.State)
	assert.ErrorIs(t, res.Err, domainMigration.ErrCancelled)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.NoError(t, res.RollbackErr)
	assert.Equal(t, original, h.raw(t))
}

func TestCheckStatus(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)

	st, err := h.runner.CheckStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Exists)
	assert.Equal(t, "0.0.0", st.CurrentVersion)
	assert.True(t, st.NeedsMigration)

	h.write(t, "templates: []\nvariables: {}\nchecklists: []\n")
	st, err = h.runner.CheckStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, "0.2.0", st.CurrentVersion)
	assert.Equal(t, string(document.SourceTemplateShape), st.DetectedBy)
	assert.Equal(t, "1.0.0", st.LatestVersion)
	assert.True(t, st.NeedsMigration)
	require.Len(t, st.AvailableMigrations, 1)
	assert.Equal(t, "add-recovery", st.AvailableMigrations[0].ID)
	assert.True(t, st.AvailableMigrations[0].Reversible)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)

	st, err = h.runner.CheckStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, st.NeedsMigration)
	assert.Empty(t, st.AvailableMigrations)
}

func TestRollback_RestoresChosenBackup(t *testing.T) {
	h := newHarness(t, builtinRegistry(t), "1.0.0", nil)
	original := h.write(t, legacyDoc)

	res, err := h.runner.Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)

	list, err := h.runner.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.BackupPath, list[0].Path)
	assert.Equal(t, "0.0.0", list[0].Version)
	assert.Equal(t, "pre-1.0.0", list[0].Label)

	require.NoError(t, h.runner.Rollback(context.Background(), list[0]))
	assert.Equal(t, original, h.raw(t))

	assert.Error(t, h.runner.Rollback(context.Background(), nil))
}

func TestNewRunner_RejectsBadConfig(t *testing.T) {
	reg := builtinRegistry(t)
	store := persistence.NewFileDocumentStore(nil)

	_, err := NewRunner(RunnerConfig{CurrentVersion: "1.0.0"}, reg, store, nil)
	assert.Error(t, err)

	_, err = NewRunner(RunnerConfig{DocumentPath: "x.yaml", CurrentVersion: "one"}, reg, store, nil)
	assert.Error(t, err)

	_, err = NewRunner(RunnerConfig{DocumentPath: "x.yaml", CurrentVersion: "1.0.0", MaxBackups: 101}, reg, store, nil)
	assert.Error(t, err)

	_, err = NewRunner(RunnerConfig{DocumentPath: "x.yaml", CurrentVersion: "1.0.0"}, nil, store, nil)
	assert.Error(t, err)

	r, err := NewRunner(RunnerConfig{DocumentPath: "x.yaml", CurrentVersion: "1.0.0"}, reg, store, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxBackups, r.Config().MaxBackups)

	list, err := r.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewRunner_AcceptsShortVersion(t *testing.T) {
	reg := builtinRegistry(t)
	store := persistence.NewFileDocumentStore(nil)

	r, err := NewRunner(RunnerConfig{DocumentPath: "x.yaml", CurrentVersion: "1.0"}, reg, store, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", r.Config().CurrentVersion)

	r, err = NewRunner(RunnerConfig{DocumentPath: "x.yaml", CurrentVersion: "v0.2"}, reg, store, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", r.Config().CurrentVersion)
}

func unwrapAll(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok || u.Unwrap() == nil {
			return err
		}
		err = u.Unwrap()
	}
}
