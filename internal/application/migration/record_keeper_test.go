package migration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	domainMigration "github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/persistence"
)

func testEdge(id, from, to string) *domainMigration.Migration {
	return &domainMigration.Migration{
		ID:        id,
		From:      version.MustParse(from),
		To:        version.MustParse(to),
		Transform: func(d *document.Document) (*document.Document, error) { return d, nil },
	}
}

// newKeeper returns a keeper whose clock advances one minute per record.
func newKeeper(store *persistence.FileDocumentStore) *RecordKeeper {
	k := NewRecordKeeper(store, nil)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	k.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return k
}

func TestRecord_ReplacesEdgeRecord(t *testing.T) {
	k := newKeeper(persistence.NewFileDocumentStore(nil))
	doc := document.New("0.1.0")
	m := testEdge("add-templates", "0.1.0", "0.2.0")

	_, err := k.Record(context.Background(), "", doc, m, Outcome{Err: errors.New("boom")})
	require.NoError(t, err)
	require.Len(t, doc.Migrations, 1)
	assert.True(t, doc.Migrations[0].Failed())
	assert.False(t, k.IsAlreadyApplied(doc, m))

	rec, err := k.Record(context.Background(), "", doc, m, Outcome{Success: true, Checksum: "abc"})
	require.NoError(t, err)
	require.Len(t, doc.Migrations, 1)
	assert.Equal(t, rec, doc.Migrations[0])
	assert.Equal(t, "add-templates", rec.ID)
	assert.Equal(t, "0.1.0", rec.From)
	assert.Equal(t, "0.2.0", rec.To)
	assert.True(t, k.IsAlreadyApplied(doc, m))
}

func TestRecord_SuccessWithErrorIsFailure(t *testing.T) {
	k := newKeeper(persistence.NewFileDocumentStore(nil))
	doc := document.New("0.1.0")

	rec, err := k.Record(context.Background(), "", doc, testEdge("", "0.1.0", "0.2.0"), Outcome{Success: true, Err: errors.New("late failure")})
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, "late failure", rec.ErrorMessage)
	assert.Equal(t, "0.1.0->0.2.0", rec.ID)
}

func TestRecord_PersistsToStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	k := newKeeper(persistence.NewFileDocumentStore(nil))
	doc := document.New("0.1.0")

	_, err := k.Record(context.Background(), path, doc, testEdge("a", "0.0.0", "0.1.0"), Outcome{Success: true})
	require.NoError(t, err)

	loaded, err := k.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, loaded.Migrations, 1)
	assert.True(t, doc.Migrations[0].AppliedAt.Equal(loaded.Migrations[0].AppliedAt))
}

func TestRecord_PersistFailure(t *testing.T) {
	k := NewRecordKeeper(failingWrites{persistence.NewFileDocumentStore(nil)}, nil)
	doc := document.New("0.1.0")

	_, err := k.Record(context.Background(), "state.yaml", doc, testEdge("a", "0.0.0", "0.1.0"), Outcome{Success: true})
	assert.ErrorIs(t, err, errBoom)

	// An empty path never reaches the store.
	_, err = k.Record(context.Background(), "", doc, testEdge("b", "0.1.0", "0.2.0"), Outcome{Success: true})
	assert.NoError(t, err)
}

func TestLastSuccessful(t *testing.T) {
	k := newKeeper(persistence.NewFileDocumentStore(nil))
	doc := document.New("0.2.0")
	assert.Nil(t, k.LastSuccessful(doc))

	ctx := context.Background()
	_, _ = k.Record(ctx, "", doc, testEdge("a", "0.0.0", "0.1.0"), Outcome{Success: true})
	_, _ = k.Record(ctx, "", doc, testEdge("b", "0.1.0", "0.2.0"), Outcome{Success: true})
	_, _ = k.Record(ctx, "", doc, testEdge("c", "0.2.0", "1.0.0"), Outcome{Err: errors.New("boom")})

	last := k.LastSuccessful(doc)
	require.NotNil(t, last)
	assert.Equal(t, "b", last.ID)

	// The returned record is a copy.
	last.ID = "mutated"
	assert.Equal(t, "b", doc.Migrations[1].ID)
	assert.Len(t, k.History(doc), 3)
	assert.Empty(t, k.History(nil))
}

func TestPruneFailed(t *testing.T) {
	k := newKeeper(persistence.NewFileDocumentStore(nil))
	doc := document.New("0.2.0")
	ctx := context.Background()
	_, _ = k.Record(ctx, "", doc, testEdge("a", "0.0.0", "0.1.0"), Outcome{Success: true})
	_, _ = k.Record(ctx, "", doc, testEdge("b", "0.1.0", "0.2.0"), Outcome{Err: errors.New("boom")})
	_, _ = k.Record(ctx, "", doc, testEdge("c", "0.2.0", "1.0.0"), Outcome{Err: errors.New("boom")})

	assert.Equal(t, 2, k.PruneFailed(doc))
	require.Len(t, doc.Migrations, 1)
	assert.Equal(t, "a", doc.Migrations[0].ID)
	assert.Zero(t, k.PruneFailed(doc))
	assert.Zero(t, k.PruneFailed(nil))
}

func TestOnDiskQueries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")
	k := newKeeper(persistence.NewFileDocumentStore(nil))
	ctx := context.Background()
	m := testEdge("a", "0.0.0", "0.1.0")

	t.Run("missing document degrades", func(t *testing.T) {
		assert.False(t, k.IsAlreadyAppliedAt(ctx, path, m))
		assert.Nil(t, k.LastSuccessfulAt(ctx, path))
		_, err := k.PruneFailedAt(ctx, path)
		assert.True(t, persistence.IsNotFound(err))
	})

	t.Run("corrupt document degrades", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("[unterminated"), 0600))
		assert.False(t, k.IsAlreadyAppliedAt(ctx, bad, m))
		assert.Nil(t, k.LastSuccessfulAt(ctx, bad))
	})

	t.Run("reads persisted history", func(t *testing.T) {
		doc := document.New("0.1.0")
		_, err := k.Record(ctx, path, doc, m, Outcome{Success: true})
		require.NoError(t, err)
		_, err = k.Record(ctx, path, doc, testEdge("b", "0.1.0", "0.2.0"), Outcome{Err: errors.New("boom")})
		require.NoError(t, err)

		assert.True(t, k.IsAlreadyAppliedAt(ctx, path, m))
		last := k.LastSuccessfulAt(ctx, path)
		require.NotNil(t, last)
		assert.Equal(t, "a", last.ID)

		removed, err := k.PruneFailedAt(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		loaded, err := k.Load(ctx, path)
		require.NoError(t, err)
		assert.Len(t, loaded.Migrations, 1)
	})
}
