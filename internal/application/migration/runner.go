package migration

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	domainMigration "github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// MigrateOptions controls a single Migrate call.
type MigrateOptions struct {
	// Target overrides the configured current version when set.
	Target string

	// DryRun plans the path without touching the document or backups.
	DryRun bool

	// NoBackup skips the pre-run snapshot. A failure then leaves the document
	// partially migrated.
	NoBackup bool

	// Verbose logs every step at info level.
	Verbose bool
}

// Runner orchestrates a migration run: detect, plan, back up, execute and
// roll back on failure.
type Runner struct {
	cfg       RunnerConfig
	current   version.Version
	registry  *domainMigration.Registry
	validator *domainMigration.Validator
	store     ports.DocumentStore
	backups   ports.BackupStore
	records   *RecordKeeper
	executor  *Executor
	events    ports.EventSink
	logger    log.Logger
	newRunID  func() string
}

// RunnerOption configures optional Runner collaborators.
type RunnerOption func(*Runner)

// WithEventSink subscribes sink to run events.
func WithEventSink(sink ports.EventSink) RunnerOption {
	return func(r *Runner) {
		if sink != nil {
			r.events = sink
		}
	}
}

// WithSchemaValidator validates every step's output against per-version schemas.
func WithSchemaValidator(v ports.SchemaValidator) RunnerOption {
	return func(r *Runner) {
		r.executor.schemas = v
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger log.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
			r.records.logger = logger
			r.executor.logger = logger
		}
	}
}

// NewRunner creates a Runner over registry. backups may be nil, in which case
// no snapshots are taken.
func NewRunner(cfg RunnerConfig, registry *domainMigration.Registry, store ports.DocumentStore, backups ports.BackupStore, opts ...RunnerOption) (*Runner, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil || store == nil {
		return nil, fmt.Errorf("registry and document store are required")
	}
	current, err := version.ParseLenient(cfg.CurrentVersion)
	if err != nil {
		return nil, err
	}

	logger := log.NewNopLogger()
	validator := domainMigration.NewValidator()
	records := NewRecordKeeper(store, logger)
	r := &Runner{
		cfg:       cfg,
		current:   current,
		registry:  registry,
		validator: validator,
		store:     store,
		backups:   backups,
		records:   records,
		executor:  NewExecutor(validator, records, nil, logger),
		events:    ports.NilEventSink,
		logger:    logger,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Records returns the record keeper bound to the runner's document store.
func (r *Runner) Records() *RecordKeeper {
	return r.records
}

// Config returns the runner configuration.
func (r *Runner) Config() RunnerConfig {
	return r.cfg
}

// CheckStatus reports the document's version relative to the current version.
func (r *Runner) CheckStatus(ctx context.Context) (*Status, error) {
	st := &Status{
		DocumentPath:        r.cfg.DocumentPath,
		LatestVersion:       r.current.String(),
		AvailableMigrations: []domainMigration.Info{},
	}

	doc, exists, _, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	st.Exists = exists

	detection, err := document.Inspect(doc)
	if err != nil {
		return nil, err
	}
	st.CurrentVersion = detection.Version.String()
	if exists {
		st.DetectedBy = string(detection.Source)
	}
	st.NeedsMigration = detection.Version.Less(r.current)

	if st.NeedsMigration {
		if path, err := r.registry.FindPath(detection.Version, r.current); err == nil {
			for _, m := range path.Migrations {
				st.AvailableMigrations = append(st.AvailableMigrations, m.Info())
			}
		}
	}
	return st, nil
}

// Migrate moves the document to opts.Target, or to the current version when
// no target is given. Runtime failures are reported through Result; an error
// is returned only for malformed migration definitions.
func (r *Runner) Migrate(ctx context.Context, opts MigrateOptions) (*Result, error) {
	runID := r.newRunID()
	logger := r.logger.With("run", runID)
	events := ports.EventFunc(func(e ports.Event) {
		e.RunID = runID
		if opts.Verbose && e.Type == ports.EventProgress {
			logger.Info("applying migration", "id", e.MigrationID, "step", e.CurrentStep, "total", e.TotalSteps)
		}
		r.events.Emit(e)
	})
	res := &Result{RunID: runID, AppliedMigrations: []string{}, DryRun: opts.DryRun, State: StateIdle}

	fail := func(err error) (*Result, error) {
		res.Err = err
		res.Success = false
		if !res.State.IsTerminal() {
			res.State = StateFailed
		}
		events.Emit(ports.Event{Type: ports.EventError, From: res.FromVersion, To: res.ToVersion, Err: err})
		logger.Error("migration run failed", "from", res.FromVersion, "to", res.ToVersion, "err", err)
		return res, nil
	}

	res.State = StateDetectingVersions
	target := r.current
	if opts.Target != "" {
		t, err := version.ParseLenient(opts.Target)
		if err != nil {
			return fail(err)
		}
		target = t
	}
	res.ToVersion = target.String()

	doc, existed, original, err := r.load(ctx)
	if err != nil {
		return fail(err)
	}
	if !existed && !r.registry.CanMigrate(document.BaseShapeVersion, target) {
		doc = document.New(target.String())
	}

	from, err := document.Detect(doc)
	if err != nil {
		return fail(err)
	}
	res.FromVersion = from.String()

	path, err := r.registry.FindPath(from, target)
	if err != nil {
		if domainMigration.IsManifestDefect(err) {
			res.State = StateFailed
			res.Err = err
			return res, err
		}
		return fail(fmt.Errorf("migrate %s -> %s: %w", from, target, err))
	}
	if err := r.validator.ValidatePath(path); err != nil {
		res.State = StateFailed
		res.Err = err
		return res, err
	}
	res.State = StatePathResolved
	logger.Info("migration path resolved", "from", from.String(), "to", target.String(), "steps", len(path.Migrations))

	if path.Empty() {
		if !existed && !opts.DryRun {
			if err := r.persistFresh(ctx, doc); err != nil {
				return fail(err)
			}
		}
		res.State = StateNoOpComplete
		res.Success = true
		logger.Info("document is up to date", "version", from.String())
		return res, nil
	}

	if opts.DryRun {
		res.State = StateDryRunComplete
		res.Success = true
		res.AppliedMigrations = path.IDs()
		return res, nil
	}

	res.State = StateExecuting
	var snapshot *ports.BackupInfo
	switch {
	case !existed:
		logger.Debug("no existing document, skipping backup")
	case opts.NoBackup || r.backups == nil:
		if len(path.Migrations) > 1 {
			logger.Warn("running a multi-step migration without a backup", "steps", len(path.Migrations))
		}
	default:
		label := fmt.Sprintf("pre-%s", target.Key())
		snapshot, err = r.backups.CreateBackup(ctx, original, from.String(), label)
		if err != nil {
			res.State = StateFailed
			return fail(fmt.Errorf("migrate %s -> %s: backup: %w", from, target, err))
		}
		res.BackupPath = snapshot.Path
	}

	exec, err := r.executor.ExecuteMigrations(ctx, r.cfg.DocumentPath, path, doc, events)
	if err == nil {
		res.State = StateSucceeded
		res.Success = true
		res.AppliedMigrations = exec.Applied
		logger.Info("migration completed", "from", from.String(), "to", target.String(), "applied", len(exec.Applied))
		return res, nil
	}

	err = fmt.Errorf("migrate %s -> %s: %w", from, target, err)
	if snapshot == nil {
		res.State = StateFailedNoBackup
		res.AppliedMigrations = exec.Applied
		return fail(err)
	}

	res.State = StateRolledBack
	events.Emit(ports.Event{Type: ports.EventError, From: res.FromVersion, To: res.ToVersion, Err: err})
	res.Err = err
	logger.Error("migration failed, rolling back", "backup", snapshot.Path, "err", err)
	if rbErr := r.rollback(context.WithoutCancel(ctx), snapshot, events); rbErr != nil {
		res.RollbackErr = rbErr
		logger.Error("rollback failed", "backup", snapshot.Path, "err", rbErr, "cause", err)
	}
	return res, nil
}

// ListBackups returns stored snapshots, newest first.
func (r *Runner) ListBackups(ctx context.Context) ([]*ports.BackupInfo, error) {
	if r.backups == nil {
		return []*ports.BackupInfo{}, nil
	}
	return r.backups.ListBackups(ctx)
}

// Rollback overwrites the live document with the snapshot.
func (r *Runner) Rollback(ctx context.Context, snapshot *ports.BackupInfo) error {
	if r.backups == nil {
		return fmt.Errorf("backups are not configured")
	}
	if snapshot == nil {
		return fmt.Errorf("backup is required")
	}
	runID := r.newRunID()
	events := ports.EventFunc(func(e ports.Event) {
		e.RunID = runID
		r.events.Emit(e)
	})
	return r.rollback(ctx, snapshot, events)
}

func (r *Runner) rollback(ctx context.Context, snapshot *ports.BackupInfo, events ports.EventSink) error {
	events.Emit(ports.Event{Type: ports.EventRollbackStart, BackupPath: snapshot.Path, To: snapshot.Version})
	if err := r.backups.Rollback(ctx, r.cfg.DocumentPath, snapshot); err != nil {
		events.Emit(ports.Event{Type: ports.EventError, BackupPath: snapshot.Path, Err: err})
		return err
	}
	events.Emit(ports.Event{Type: ports.EventRollbackComplete, BackupPath: snapshot.Path, To: snapshot.Version})
	r.logger.Info("document restored from backup", "backup", snapshot.Path, "version", snapshot.Version)
	return nil
}

// load reads the live document. A missing document yields a fresh one at
// the base shape version; existed reports which case applied.
func (r *Runner) load(ctx context.Context) (doc *document.Document, existed bool, raw []byte, err error) {
	existed, err = r.store.Exists(ctx, r.cfg.DocumentPath)
	if err != nil {
		return nil, false, nil, err
	}
	if !existed {
		return document.New(document.BaseShapeVersion.String()), false, nil, nil
	}
	raw, err = r.store.Read(ctx, r.cfg.DocumentPath)
	if err != nil {
		return nil, true, nil, err
	}
	doc, err = document.Parse(raw)
	if err != nil {
		return nil, true, raw, fmt.Errorf("failed to parse %s: %w", r.cfg.DocumentPath, err)
	}
	return doc, true, raw, nil
}

func (r *Runner) persistFresh(ctx context.Context, doc *document.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := r.store.Write(ctx, r.cfg.DocumentPath, data); err != nil {
		return fmt.Errorf("failed to write new document: %w", err)
	}
	return nil
}

// IsNoPath reports whether a run failed because the target is unreachable.
func IsNoPath(err error) bool {
	return errors.Is(err, domainMigration.ErrNoPathFound) || errors.Is(err, domainMigration.ErrBackwardMigration)
}
