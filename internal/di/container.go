// Package di wires the migration use cases to their infrastructure.
package di

import (
	"fmt"
	"sync"

	"cosmossdk.io/log"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	domainMigration "github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/backup"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/migrations"
)

// Config holds the resolved locations and limits the container needs.
type Config struct {
	DocumentPath string
	BackupDir    string
	ManifestPath string // Empty disables manifest loading
	SchemasDir   string // Empty disables schema validation
	MaxBackups   int

	// CurrentVersion is the default migration target. Empty selects the
	// latest version known to the registry.
	CurrentVersion string
}

// Container holds application dependencies and builds them lazily.
type Container struct {
	mu sync.Mutex

	cfg     *Config
	factory *InfrastructureFactory
	logger  log.Logger
	events  ports.EventSink

	registry *domainMigration.Registry
	backups  *backup.Manager
	runner   *migration.Runner
}

// Option configures a Container.
type Option func(*Container)

// WithEventSink subscribes sink to migration events.
func WithEventSink(sink ports.EventSink) Option {
	return func(c *Container) {
		c.events = sink
	}
}

// New creates a Container.
func New(cfg *Config, logger log.Logger, opts ...Option) *Container {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &Container{
		cfg:     cfg,
		factory: NewInfrastructureFactory(cfg, logger),
		logger:  logger,
		events:  ports.NilEventSink,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory returns the infrastructure factory.
func (c *Container) Factory() *InfrastructureFactory {
	return c.factory
}

// Registry returns the migration registry.
func (c *Container) Registry() (*domainMigration.Registry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registryLocked()
}

func (c *Container) registryLocked() (*domainMigration.Registry, error) {
	if c.registry != nil {
		return c.registry, nil
	}
	reg, err := c.factory.CreateRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build migration registry: %w", err)
	}
	c.registry = reg
	return reg, nil
}

// Backups returns the snapshot manager.
func (c *Container) Backups() *backup.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backupsLocked()
}

func (c *Container) backupsLocked() *backup.Manager {
	if c.backups == nil {
		c.backups = c.factory.CreateBackupManager()
	}
	return c.backups
}

// CurrentVersion returns the configured target, or the registry's latest
// version, or the latest built-in version.
func (c *Container) CurrentVersion() (string, error) {
	if c.cfg.CurrentVersion != "" {
		v, err := version.ParseLenient(c.cfg.CurrentVersion)
		if err != nil {
			return "", err
		}
		return v.String(), nil
	}
	reg, err := c.Registry()
	if err != nil {
		return "", err
	}
	if latest, ok := reg.Latest(); ok {
		return latest.String(), nil
	}
	return migrations.LatestVersion.String(), nil
}

// Runner returns the migration runner.
func (c *Container) Runner() (*migration.Runner, error) {
	current, err := c.CurrentVersion()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner != nil {
		return c.runner, nil
	}
	reg, err := c.registryLocked()
	if err != nil {
		return nil, err
	}

	opts := []migration.RunnerOption{
		migration.WithLogger(c.logger.With("module", "migration")),
		migration.WithEventSink(c.events),
	}
	if v := c.factory.CreateSchemaValidator(); v != nil {
		opts = append(opts, migration.WithSchemaValidator(v))
	}

	runner, err := migration.NewRunner(migration.RunnerConfig{
		DocumentPath:   c.cfg.DocumentPath,
		CurrentVersion: current,
		MaxBackups:     c.cfg.MaxBackups,
	}, reg, c.factory.CreateDocumentStore(), c.backupsLocked(), opts...)
	if err != nil {
		return nil, err
	}
	c.runner = runner
	return runner, nil
}
