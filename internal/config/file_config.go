// Package config loads checklist-migrator settings from config.toml and
// merges them with environment variables and command-line flags.
package config

// FileConfig represents the raw config.toml file contents.
// All fields are pointers to distinguish "not set" from "set to zero/false".
type FileConfig struct {
	// Global settings
	Home    *string `toml:"home"`
	NoColor *bool   `toml:"no_color"`
	Verbose *bool   `toml:"verbose"`
	JSON    *bool   `toml:"json"`

	// Document and backups. Relative paths are resolved against home.
	StateFile    *string `toml:"state_file"`
	BackupDir    *string `toml:"backup_dir"`
	MaxBackups   *int    `toml:"max_backups"`
	CreateBackup *bool   `toml:"create_backup"`

	// Migration settings
	TargetVersion *string `toml:"target_version"` // Defaults to the latest built-in version
	Manifest      *string `toml:"manifest"`       // Extra declarative migrations
	SchemasDir    *string `toml:"schemas_dir"`    // Per-version JSON schemas
}

// IsEmpty returns true if no configuration values are set.
func (f *FileConfig) IsEmpty() bool {
	return f.Home == nil &&
		f.NoColor == nil &&
		f.Verbose == nil &&
		f.JSON == nil &&
		f.StateFile == nil &&
		f.BackupDir == nil &&
		f.MaxBackups == nil &&
		f.CreateBackup == nil &&
		f.TargetVersion == nil &&
		f.Manifest == nil &&
		f.SchemasDir == nil
}

// knownKeys lists every key FileConfig understands.
var knownKeys = map[string]bool{
	"home":           true,
	"no_color":       true,
	"verbose":        true,
	"json":           true,
	"state_file":     true,
	"backup_dir":     true,
	"max_backups":    true,
	"create_backup":  true,
	"target_version": true,
	"manifest":       true,
	"schemas_dir":    true,
}
