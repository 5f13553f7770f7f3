package di

import (
	"cosmossdk.io/log"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/backup"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/filesystem"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/manifest"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/migrations"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/persistence"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/schema"
)

// InfrastructureFactory creates infrastructure implementations.
type InfrastructureFactory struct {
	cfg    *Config
	fs     filesystem.FileSystem
	logger log.Logger
}

// NewInfrastructureFactory creates a new infrastructure factory.
func NewInfrastructureFactory(cfg *Config, logger log.Logger) *InfrastructureFactory {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &InfrastructureFactory{
		cfg:    cfg,
		fs:     filesystem.NewOSFileSystem(),
		logger: logger,
	}
}

// WithFileSystem replaces the filesystem used by every store.
func (f *InfrastructureFactory) WithFileSystem(fsys filesystem.FileSystem) *InfrastructureFactory {
	f.fs = fsys
	return f
}

// CreateDocumentStore creates the state document store.
func (f *InfrastructureFactory) CreateDocumentStore() ports.DocumentStore {
	return persistence.NewFileDocumentStore(f.fs)
}

// CreateBackupManager creates the snapshot manager for the state document.
func (f *InfrastructureFactory) CreateBackupManager() *backup.Manager {
	return backup.NewManager(f.cfg.BackupDir, f.cfg.DocumentPath, f.cfg.MaxBackups, f.fs, f.logger.With("module", "backup"))
}

// CreateSchemaValidator creates a schema validator, or nil when no schema
// directory is configured.
func (f *InfrastructureFactory) CreateSchemaValidator() ports.SchemaValidator {
	if f.cfg.SchemasDir == "" {
		return nil
	}
	return schema.NewValidator(f.cfg.SchemasDir, f.fs, f.logger.With("module", "schema"))
}

// CreateRegistry registers the built-in migrations followed by any manifest
// migrations.
func (f *InfrastructureFactory) CreateRegistry() (*migration.Registry, error) {
	reg := migration.NewRegistry()
	if err := migrations.Register(reg); err != nil {
		return nil, err
	}
	if f.cfg.ManifestPath == "" {
		return reg, nil
	}
	n, err := manifest.Register(reg, f.cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		f.logger.Info("loaded manifest migrations", "path", f.cfg.ManifestPath, "count", n)
	}
	return reg, nil
}
