// Package migration provides the use cases that run migrations against a
// persisted checklist document.
package migration

import (
	"context"
	"errors"
	"fmt"
	"math"

	"cosmossdk.io/log"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	domainMigration "github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
)

// Execution is what an Executor run leaves behind.
type Execution struct {
	// Document is the last document state that was persisted.
	Document *document.Document
	// Applied lists the labels of successfully applied migrations, in order.
	Applied []string
}

// Executor applies the migrations of a path one at a time.
type Executor struct {
	validator *domainMigration.Validator
	records   *RecordKeeper
	schemas   ports.SchemaValidator
	logger    log.Logger
}

// NewExecutor creates an Executor. schemas may be nil.
func NewExecutor(validator *domainMigration.Validator, records *RecordKeeper, schemas ports.SchemaValidator, logger log.Logger) *Executor {
	if validator == nil {
		validator = domainMigration.NewValidator()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Executor{
		validator: validator,
		records:   records,
		schemas:   schemas,
		logger:    logger,
	}
}

// ExecuteMigrations applies every migration of p to doc, persisting the
// document to docPath after each step. It stops at the first failing step;
// the returned Execution then describes the last persisted state.
func (e *Executor) ExecuteMigrations(ctx context.Context, docPath string, p *domainMigration.Path, doc *document.Document, events ports.EventSink) (*Execution, error) {
	if events == nil {
		events = ports.NilEventSink
	}
	exec := &Execution{Document: doc, Applied: []string{}}
	if p.Empty() {
		return exec, nil
	}

	step := 0
	for _, m := range p.Migrations {
		if err := ctx.Err(); err != nil {
			return exec, domainMigration.StepError("execute", m, errors.Join(domainMigration.ErrCancelled, err))
		}

		step += m.Steps()
		events.Emit(ports.Event{
			Type:        ports.EventProgress,
			CurrentStep: step,
			TotalSteps:  p.TotalSteps,
			MigrationID: m.Label(),
			Percentage:  percentage(step, p.TotalSteps),
			From:        m.From.String(),
			To:          m.To.String(),
		})

		next, err := e.apply(ctx, docPath, m, exec.Document)
		if err != nil {
			return exec, err
		}
		exec.Document = next
		exec.Applied = append(exec.Applied, m.Label())
	}
	return exec, nil
}

// apply runs one step. Precondition failures leave no trace; failures of the
// migration's own logic are recorded on doc and persisted before returning.
func (e *Executor) apply(ctx context.Context, docPath string, m *domainMigration.Migration, doc *document.Document) (*document.Document, error) {
	logger := e.logger.With("migration", m.Label(), "from", m.From.String(), "to", m.To.String())

	if err := e.validator.ValidateOne(m, doc); err != nil {
		logger.Warn("precondition failed", "err", err)
		return nil, err
	}

	logger.Debug("applying migration", "description", m.Description)
	input, err := doc.Clone()
	if err != nil {
		return nil, domainMigration.StepError("clone", m, err)
	}

	out, err := m.Transform(input)
	switch {
	case err != nil:
		return nil, e.fail(ctx, docPath, doc, m, "transform", fmt.Errorf("%w: %w", domainMigration.ErrTransformFailed, err))
	case out == nil:
		return nil, e.fail(ctx, docPath, doc, m, "transform", domainMigration.ErrMalformedOutput)
	}

	if m.SelfCheck != nil && !m.SelfCheck(out) {
		return nil, e.fail(ctx, docPath, doc, m, "self-check", domainMigration.ErrSelfCheckFailed)
	}

	out.Version = m.To.String()
	if out.SchemaVersion != "" {
		out.SchemaVersion = m.To.String()
	}

	if e.schemas != nil {
		if err := e.schemas.Validate(m.To, out); err != nil {
			return nil, e.fail(ctx, docPath, doc, m, "schema", fmt.Errorf("%w: %w", domainMigration.ErrSelfCheckFailed, err))
		}
	}

	sum, err := document.Checksum(out)
	if err != nil {
		return nil, domainMigration.StepError("checksum", m, err)
	}
	if _, err := e.records.Record(ctx, docPath, out, m, Outcome{
		Success:        true,
		ChangesSummary: m.Description,
		Checksum:       sum,
	}); err != nil {
		return nil, domainMigration.StepError("persist", m, err)
	}

	logger.Info("migration applied", "checksum", sum[:12])
	return out, nil
}

// fail records a failed attempt on doc and returns the step error.
func (e *Executor) fail(ctx context.Context, docPath string, doc *document.Document, m *domainMigration.Migration, op string, cause error) error {
	stepErr := domainMigration.StepError(op, m, cause)
	e.logger.Error("migration failed", "migration", m.Label(), "op", op, "err", cause)

	if _, err := e.records.Record(ctx, docPath, doc, m, Outcome{Err: cause}); err != nil {
		e.logger.Warn("failed to persist failure record", "migration", m.Label(), "err", err)
	}
	return stepErr
}

func percentage(current, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(current) / float64(total) * 100))
}
