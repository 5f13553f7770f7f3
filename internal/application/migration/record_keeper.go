package migration

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/log"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	domainMigration "github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
)

// Outcome is the result of one migration attempt.
type Outcome struct {
	Success        bool
	ChangesSummary string
	Checksum       string
	Err            error
}

// RecordKeeper manages the migration history embedded in a document.
type RecordKeeper struct {
	store  ports.DocumentStore
	logger log.Logger
	now    func() time.Time
}

// NewRecordKeeper creates a RecordKeeper that persists through store.
func NewRecordKeeper(store ports.DocumentStore, logger log.Logger) *RecordKeeper {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &RecordKeeper{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record stores the outcome of m in doc, replacing any earlier record for the
// same edge, and persists doc to path. An empty path skips persistence.
func (k *RecordKeeper) Record(ctx context.Context, path string, doc *document.Document, m *domainMigration.Migration, outcome Outcome) (document.MigrationRecord, error) {
	rec := document.MigrationRecord{
		ID:             m.Label(),
		From:           m.From.String(),
		To:             m.To.String(),
		AppliedAt:      k.now(),
		Success:        outcome.Success && outcome.Err == nil,
		ChangesSummary: outcome.ChangesSummary,
		Checksum:       outcome.Checksum,
	}
	if outcome.Err != nil {
		rec.ErrorMessage = outcome.Err.Error()
	}

	kept := make([]document.MigrationRecord, 0, len(doc.Migrations)+1)
	for _, existing := range doc.Migrations {
		if domainMigration.RecordMatches(existing, m.From, m.To) {
			continue
		}
		kept = append(kept, existing)
	}
	doc.Migrations = append(kept, rec)

	if path == "" {
		return rec, nil
	}
	if err := k.persist(ctx, path, doc); err != nil {
		return rec, err
	}
	return rec, nil
}

func (k *RecordKeeper) persist(ctx context.Context, path string, doc *document.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := k.store.Write(ctx, path, data); err != nil {
		return fmt.Errorf("failed to persist document: %w", err)
	}
	return nil
}

// History returns a copy of the records in doc.
func (k *RecordKeeper) History(doc *document.Document) []document.MigrationRecord {
	if doc == nil {
		return []document.MigrationRecord{}
	}
	return append([]document.MigrationRecord{}, doc.Migrations...)
}

// IsAlreadyApplied reports whether doc holds a successful record for m's edge.
// Failed attempts do not count, so they can be retried.
func (k *RecordKeeper) IsAlreadyApplied(doc *document.Document, m *domainMigration.Migration) bool {
	rec, ok := domainMigration.FindRecord(doc, m.From, m.To)
	return ok && !rec.Failed()
}

// LastSuccessful returns the most recent record without error information.
func (k *RecordKeeper) LastSuccessful(doc *document.Document) *document.MigrationRecord {
	if doc == nil {
		return nil
	}
	var last *document.MigrationRecord
	for i := range doc.Migrations {
		rec := &doc.Migrations[i]
		if rec.Failed() {
			continue
		}
		if last == nil || !rec.AppliedAt.Before(last.AppliedAt) {
			last = rec
		}
	}
	if last == nil {
		return nil
	}
	out := *last
	return &out
}

// PruneFailed drops every record carrying error information and returns how
// many were removed.
func (k *RecordKeeper) PruneFailed(doc *document.Document) int {
	if doc == nil || len(doc.Migrations) == 0 {
		return 0
	}
	kept := doc.Migrations[:0]
	for _, rec := range doc.Migrations {
		if !rec.Failed() {
			kept = append(kept, rec)
		}
	}
	removed := len(doc.Migrations) - len(kept)
	doc.Migrations = kept
	return removed
}

// Load reads and parses the document at path.
func (k *RecordKeeper) Load(ctx context.Context, path string) (*document.Document, error) {
	data, err := k.store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return document.Parse(data)
}

// IsAlreadyAppliedAt is the on-disk form of IsAlreadyApplied. Read failures
// are logged and reported as false.
func (k *RecordKeeper) IsAlreadyAppliedAt(ctx context.Context, path string, m *domainMigration.Migration) bool {
	doc, err := k.Load(ctx, path)
	if err != nil {
		k.logger.Warn("history lookup failed", "path", path, "err", err)
		return false
	}
	return k.IsAlreadyApplied(doc, m)
}

// LastSuccessfulAt is the on-disk form of LastSuccessful. Read failures are
// logged and reported as nil.
func (k *RecordKeeper) LastSuccessfulAt(ctx context.Context, path string) *document.MigrationRecord {
	doc, err := k.Load(ctx, path)
	if err != nil {
		k.logger.Warn("history lookup failed", "path", path, "err", err)
		return nil
	}
	return k.LastSuccessful(doc)
}

// PruneFailedAt removes failed records from the document at path and writes
// it back when anything changed.
func (k *RecordKeeper) PruneFailedAt(ctx context.Context, path string) (int, error) {
	doc, err := k.Load(ctx, path)
	if err != nil {
		return 0, err
	}
	removed := k.PruneFailed(doc)
	if removed == 0 {
		return 0, nil
	}
	if err := k.persist(ctx, path, doc); err != nil {
		return 0, err
	}
	k.logger.Info("pruned failed migration records", "path", path, "removed", removed)
	return removed, nil
}
