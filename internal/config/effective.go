package config

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/di"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
	"github.com/altuslabsxyz/checklist-migrator/internal/paths"
)

// EffectiveConfig represents the final merged configuration after applying
// the priority chain.
type EffectiveConfig struct {
	Home    StringValue
	NoColor BoolValue
	Verbose BoolValue
	JSON    BoolValue

	StateFile    StringValue
	BackupDir    StringValue
	MaxBackups   IntValue
	CreateBackup BoolValue

	TargetVersion StringValue // Empty means the latest known version
	Manifest      StringValue
	SchemasDir    StringValue

	// ConfigFilePath is the highest priority config file loaded, if any.
	ConfigFilePath string
}

// NewEffectiveConfig creates an EffectiveConfig with default values.
func NewEffectiveConfig(defaultHomeDir string) *EffectiveConfig {
	return &EffectiveConfig{
		Home:          NewStringValue(defaultHomeDir),
		NoColor:       NewBoolValue(false),
		Verbose:       NewBoolValue(false),
		JSON:          NewBoolValue(false),
		StateFile:     NewStringValue(paths.StateFile),
		BackupDir:     NewStringValue(paths.BackupsDir),
		MaxBackups:    NewIntValue(migration.DefaultMaxBackups),
		CreateBackup:  NewBoolValue(true),
		TargetVersion: NewStringValue(""),
		Manifest:      NewStringValue(paths.ManifestFile),
		SchemasDir:    NewStringValue(paths.SchemasDir),
	}
}

func (c *EffectiveConfig) resolve(p string) string {
	return paths.Resolve(paths.ExpandHome(c.Home.Value), paths.ExpandHome(p))
}

// StatePath returns the absolute location of the state document.
func (c *EffectiveConfig) StatePath() string {
	return c.resolve(c.StateFile.Value)
}

// BackupPath returns the backup directory.
func (c *EffectiveConfig) BackupPath() string {
	return c.resolve(c.BackupDir.Value)
}

// ManifestPath returns the manifest location, or "" when disabled.
func (c *EffectiveConfig) ManifestPath() string {
	return c.resolve(c.Manifest.Value)
}

// SchemasPath returns the schema directory, or "" when disabled.
func (c *EffectiveConfig) SchemasPath() string {
	return c.resolve(c.SchemasDir.Value)
}

// ContainerConfig maps the settings onto the dependency container. The target
// version is passed on in canonical form, so "1.0" becomes "1.0.0".
func (c *EffectiveConfig) ContainerConfig() *di.Config {
	target := c.TargetVersion.Value
	if v, err := version.ParseLenient(target); err == nil {
		target = v.String()
	}
	return &di.Config{
		DocumentPath:   c.StatePath(),
		BackupDir:      c.BackupPath(),
		ManifestPath:   c.ManifestPath(),
		SchemasDir:     c.SchemasPath(),
		MaxBackups:     c.MaxBackups.Value,
		CurrentVersion: target,
	}
}

// ToTable writes the configuration as a formatted table.
func (c *EffectiveConfig) ToTable(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	row := func(key, value string, src ConfigSource) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", key, value, src)
	}
	row("home", c.Home.Display(), c.Home.Source)
	row("no_color", c.NoColor.Display(), c.NoColor.Source)
	row("verbose", c.Verbose.Display(), c.Verbose.Source)
	row("json", c.JSON.Display(), c.JSON.Source)
	row("state_file", c.StateFile.Display(), c.StateFile.Source)
	row("backup_dir", c.BackupDir.Display(), c.BackupDir.Source)
	row("max_backups", c.MaxBackups.Display(), c.MaxBackups.Source)
	row("create_backup", c.CreateBackup.Display(), c.CreateBackup.Source)
	row("target_version", c.TargetVersion.Display(), c.TargetVersion.Source)
	row("manifest", c.Manifest.Display(), c.Manifest.Source)
	row("schemas_dir", c.SchemasDir.Display(), c.SchemasDir.Source)
	tw.Flush()
}
