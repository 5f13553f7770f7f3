// Package paths provides centralized path management for checklist-migrator.
package paths

import (
	"os"
	"path/filepath"
)

// File and directory names relative to the home directory.
const (
	ConfigFile   = "config.toml"
	StateFile    = "state.yaml"
	BackupsDir   = "backups"
	ManifestFile = "migrations.yaml"
	SchemasDir   = "schemas"
)

const DefaultHomeDirName = ".checklist-migrator"

// DefaultHomeDir returns $HOME/.checklist-migrator or falls back to the
// current directory.
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultHomeDirName
	}
	return filepath.Join(home, DefaultHomeDirName)
}

func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, ConfigFile)
}

func StatePath(homeDir string) string {
	return filepath.Join(homeDir, StateFile)
}

func BackupsPath(homeDir string) string {
	return filepath.Join(homeDir, BackupsDir)
}

func ManifestPath(homeDir string) string {
	return filepath.Join(homeDir, ManifestFile)
}

func SchemasPath(homeDir string) string {
	return filepath.Join(homeDir, SchemasDir)
}

// Resolve returns p unchanged when absolute, otherwise joined to homeDir.
// An empty p yields the empty string.
func Resolve(homeDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(homeDir, p)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
