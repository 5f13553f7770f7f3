package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/altuslabsxyz/checklist-migrator/internal/paths"
)

// ConfigWriter handles writing configuration to homeDir/config.toml.
type ConfigWriter struct {
	homeDir string
}

// NewConfigWriter creates a new ConfigWriter for the given home directory.
func NewConfigWriter(homeDir string) *ConfigWriter {
	return &ConfigWriter{homeDir: homeDir}
}

// Path returns the full path to config.toml in homeDir.
func (w *ConfigWriter) Path() string {
	return paths.ConfigPath(w.homeDir)
}

// Exists returns true if config.toml already exists in homeDir.
func (w *ConfigWriter) Exists() bool {
	_, err := os.Stat(w.Path())
	return err == nil
}

// Write saves cfg to homeDir/config.toml, creating homeDir if needed.
func (w *ConfigWriter) Write(cfg *FileConfig) error {
	if err := ValidateFileConfig(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(w.homeDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.homeDir, err)
	}
	if err := os.WriteFile(w.Path(), []byte(w.render(cfg)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// render creates TOML content with section comments. Unset keys are written
// as commented-out defaults.
func (w *ConfigWriter) render(cfg *FileConfig) string {
	var b strings.Builder

	b.WriteString("# checklist-migrator configuration file\n")
	b.WriteString("# Priority: default < config.toml < environment < CLI flag\n")
	b.WriteString("#\n")
	fmt.Fprintf(&b, "# Location: %s\n", w.Path())
	b.WriteString("# Override with: --config /path/to/config.toml\n\n")

	section(&b, "Global Settings (apply to all commands)")
	str(&b, "home", cfg.Home, "~/"+paths.DefaultHomeDirName)
	boolean(&b, "verbose", cfg.Verbose, false)
	boolean(&b, "json", cfg.JSON, false)
	boolean(&b, "no_color", cfg.NoColor, false)
	b.WriteString("\n")

	section(&b, "State Document and Backups (relative paths resolve against home)")
	str(&b, "state_file", cfg.StateFile, paths.StateFile)
	str(&b, "backup_dir", cfg.BackupDir, paths.BackupsDir)
	integer(&b, "max_backups", cfg.MaxBackups, 10)
	boolean(&b, "create_backup", cfg.CreateBackup, true)
	b.WriteString("\n")

	section(&b, "Migrations")
	str(&b, "target_version", cfg.TargetVersion, "1.0.0")
	str(&b, "manifest", cfg.Manifest, paths.ManifestFile)
	str(&b, "schemas_dir", cfg.SchemasDir, paths.SchemasDir)

	return b.String()
}

func section(b *strings.Builder, title string) {
	rule := "# " + strings.Repeat("=", 77) + "\n"
	b.WriteString(rule)
	fmt.Fprintf(b, "# %s\n", title)
	b.WriteString(rule)
	b.WriteString("\n")
}

func str(b *strings.Builder, key string, v *string, def string) {
	if v != nil {
		fmt.Fprintf(b, "%s = %q\n", key, *v)
		return
	}
	fmt.Fprintf(b, "# %s = %q\n", key, def)
}

func boolean(b *strings.Builder, key string, v *bool, def bool) {
	if v != nil {
		fmt.Fprintf(b, "%s = %t\n", key, *v)
		return
	}
	fmt.Fprintf(b, "# %s = %t\n", key, def)
}

func integer(b *strings.Builder, key string, v *int, def int) {
	if v != nil {
		fmt.Fprintf(b, "%s = %d\n", key, *v)
		return
	}
	fmt.Fprintf(b, "# %s = %d\n", key, def)
}
