package config

import (
	"fmt"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// Bounds for max_backups.
const (
	MinMaxBackups = 1
	MaxMaxBackups = 100
)

// Validate validates the EffectiveConfig values against allowed ranges.
func (c *EffectiveConfig) Validate() error {
	if c.Home.Value == "" {
		return fmt.Errorf("home directory must not be empty")
	}
	if c.MaxBackups.Value < MinMaxBackups || c.MaxBackups.Value > MaxMaxBackups {
		return fmt.Errorf("invalid max_backups: %d (must be %d-%d)", c.MaxBackups.Value, MinMaxBackups, MaxMaxBackups)
	}
	if c.TargetVersion.Value != "" {
		if _, err := version.ParseLenient(c.TargetVersion.Value); err != nil {
			return fmt.Errorf("invalid target_version: %w", err)
		}
	}
	return nil
}

// ValidateFileConfig validates the FileConfig values before merging.
func ValidateFileConfig(cfg *FileConfig) error {
	if cfg == nil {
		return nil
	}
	if cfg.MaxBackups != nil {
		if *cfg.MaxBackups < MinMaxBackups || *cfg.MaxBackups > MaxMaxBackups {
			return fmt.Errorf("invalid max_backups in config file: %d (must be %d-%d)", *cfg.MaxBackups, MinMaxBackups, MaxMaxBackups)
		}
	}
	if cfg.TargetVersion != nil && *cfg.TargetVersion != "" {
		if _, err := version.ParseLenient(*cfg.TargetVersion); err != nil {
			return fmt.Errorf("invalid target_version in config file: %w", err)
		}
	}
	if cfg.StateFile != nil && *cfg.StateFile == "" {
		return fmt.Errorf("state_file in config file must not be empty")
	}
	return nil
}
