package migration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	domainMigration "github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/backup"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/migrations"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/persistence"
)

// legacyDoc predates the version field and the metadata block.
const legacyDoc = `checklists:
  - id: deploy
    steps: [build, ship]
completedSteps: [build]
currentStepId: ship
`

var errBoom = errors.New("boom")

// recorder collects every emitted event.
type recorder struct {
	events []ports.Event
}

func (r *recorder) Emit(e ports.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) types() []ports.EventType {
	out := make([]ports.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) progress() []ports.Event {
	var out []ports.Event
	for _, e := range r.events {
		if e.Type == ports.EventProgress {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	docPath string
	store   ports.DocumentStore
	backups *backup.Manager
	events  *recorder
	runner  *Runner
}

func builtinRegistry(t *testing.T) *domainMigration.Registry {
	t.Helper()
	reg := domainMigration.NewRegistry()
	require.NoError(t, migrations.Register(reg))
	return reg
}

func newHarness(t *testing.T, reg *domainMigration.Registry, current string, store ports.DocumentStore) *harness {
	t.Helper()
	dir := t.TempDir()
	docPath := filepath.Join(dir, "state.yaml")
	if store == nil {
		store = persistence.NewFileDocumentStore(nil)
	}
	backups := backup.NewManager(filepath.Join(dir, "backups"), docPath, 5, nil, nil)
	events := &recorder{}

	runner, err := NewRunner(RunnerConfig{
		DocumentPath:   docPath,
		CurrentVersion: current,
	}, reg, store, backups, WithEventSink(events))
	require.NoError(t, err)

	return &harness{
		docPath: docPath,
		store:   store,
		backups: backups,
		events:  events,
		runner:  runner,
	}
}

func (h *harness) write(t *testing.T, content string) []byte {
	t.Helper()
	require.NoError(t, os.WriteFile(h.docPath, []byte(content), 0600))
	return []byte(content)
}

func (h *harness) raw(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(h.docPath)
	require.NoError(t, err)
	return data
}

func (h *harness) doc(t *testing.T) *document.Document {
	t.Helper()
	doc, err := document.Parse(h.raw(t))
	require.NoError(t, err)
	return doc
}

func (h *harness) backupCount(t *testing.T) int {
	t.Helper()
	list, err := h.backups.ListBackups(context.Background())
	require.NoError(t, err)
	return len(list)
}

// failing returns a migration whose transform always errors.
func failing(id, from, to string) *domainMigration.Migration {
	return &domainMigration.Migration{
		ID:   id,
		From: version.MustParse(from),
		To:   version.MustParse(to),
		Transform: func(*document.Document) (*document.Document, error) {
			return nil, errBoom
		},
	}
}

// metadataOnly registers the built-in 0.0.0 -> 0.1.0 step followed by extra.
func metadataOnly(t *testing.T, extra ...*domainMigration.Migration) *domainMigration.Registry {
	t.Helper()
	reg := domainMigration.NewRegistry()
	m, err := migrations.Definition(migrations.NewMetadataMigration())
	require.NoError(t, err)
	require.NoError(t, reg.Register(m))
	for _, e := range extra {
		require.NoError(t, reg.Register(e))
	}
	return reg
}

// cancelAfterWrite cancels the run once the first document write succeeds.
type cancelAfterWrite struct {
	ports.DocumentStore
	cancel context.CancelFunc
}

func (s *cancelAfterWrite) Write(ctx context.Context, path string, data []byte) error {
	if err := s.DocumentStore.Write(ctx, path, data); err != nil {
		return err
	}
	s.cancel()
	return nil
}

// failingWrites rejects every write.
type failingWrites struct {
	ports.DocumentStore
}

func (failingWrites) Write(context.Context, string, []byte) error {
	return errBoom
}
