package migration

import (
	"fmt"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// DefaultMaxBackups is the number of snapshots kept when none is configured.
const DefaultMaxBackups = 10

// RunnerConfig holds the settings of a Runner.
type RunnerConfig struct {
	// DocumentPath is the live state document.
	DocumentPath string

	// CurrentVersion is the schema version this build writes. It is the
	// default migration target. Short forms such as "1.0" are accepted.
	CurrentVersion string

	// MaxBackups bounds the number of stored snapshots.
	MaxBackups int
}

// WithDefaults returns a copy of c with zero values replaced by defaults and
// CurrentVersion in canonical form.
func (c RunnerConfig) WithDefaults() RunnerConfig {
	if c.MaxBackups == 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	if v, err := version.ParseLenient(c.CurrentVersion); err == nil {
		c.CurrentVersion = v.String()
	}
	return c
}

// Validate checks the configuration for errors.
func (c RunnerConfig) Validate() error {
	if c.DocumentPath == "" {
		return fmt.Errorf("document path is required")
	}
	if _, err := version.ParseLenient(c.CurrentVersion); err != nil {
		return fmt.Errorf("invalid current version: %w", err)
	}
	if c.MaxBackups < 1 || c.MaxBackups > 100 {
		return fmt.Errorf("max backups must be between 1 and 100, got %d", c.MaxBackups)
	}
	return nil
}
