package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/altuslabsxyz/checklist-migrator/internal/output"
	"github.com/altuslabsxyz/checklist-migrator/internal/paths"
)

// ConfigLoader is responsible for loading and merging configuration.
type ConfigLoader struct {
	homeDir    string
	configPath string // Explicit --config path
	workDir    string
	logger     *output.Logger
}

// NewConfigLoader creates a new ConfigLoader.
func NewConfigLoader(homeDir, configPath string, logger *output.Logger) *ConfigLoader {
	return &ConfigLoader{
		homeDir:    homeDir,
		configPath: configPath,
		workDir:    ".",
		logger:     logger,
	}
}

// LoadFileConfig loads and parses config files, merging them in priority order.
// Priority: explicit path > ./config.toml > <home>/config.toml.
// Returns the merged FileConfig and the highest priority file that was read.
func (l *ConfigLoader) LoadFileConfig() (*FileConfig, string, error) {
	configFiles, err := l.candidates()
	if err != nil {
		return nil, "", err
	}
	if len(configFiles) == 0 {
		return &FileConfig{}, "", nil
	}

	var merged FileConfig
	var primaryFile string
	for _, configFile := range configFiles {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}

		var cfg FileConfig
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}

		mergeFileConfig(&merged, &cfg)
		primaryFile = configFile
		l.warnUnknownKeys(configFile, data)

		if l.logger != nil {
			l.logger.Debug("Loaded config file: %s", configFile)
		}
	}

	if err := ValidateFileConfig(&merged); err != nil {
		return nil, "", fmt.Errorf("config validation failed: %w", err)
	}
	return &merged, primaryFile, nil
}

// candidates returns existing config files in increasing priority.
func (l *ConfigLoader) candidates() ([]string, error) {
	var files []string
	seen := map[string]bool{}
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		files = append(files, p)
	}

	if homePath := paths.ConfigPath(l.homeDir); fileExists(homePath) {
		add(homePath)
	}
	if local := filepath.Join(l.workDir, paths.ConfigFile); fileExists(local) {
		add(local)
	}
	if l.configPath != "" {
		if !fileExists(l.configPath) {
			return nil, fmt.Errorf("config file not found: %s", l.configPath)
		}
		add(l.configPath)
	}
	return files, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// mergeFileConfig merges src into dst. Non-nil values in src overwrite dst.
func mergeFileConfig(dst, src *FileConfig) {
	if src.Home != nil {
		dst.Home = src.Home
	}
	if src.NoColor != nil {
		dst.NoColor = src.NoColor
	}
	if src.Verbose != nil {
		dst.Verbose = src.Verbose
	}
	if src.JSON != nil {
		dst.JSON = src.JSON
	}
	if src.StateFile != nil {
		dst.StateFile = src.StateFile
	}
	if src.BackupDir != nil {
		dst.BackupDir = src.BackupDir
	}
	if src.MaxBackups != nil {
		dst.MaxBackups = src.MaxBackups
	}
	if src.CreateBackup != nil {
		dst.CreateBackup = src.CreateBackup
	}
	if src.TargetVersion != nil {
		dst.TargetVersion = src.TargetVersion
	}
	if src.Manifest != nil {
		dst.Manifest = src.Manifest
	}
	if src.SchemasDir != nil {
		dst.SchemasDir = src.SchemasDir
	}
}

// UnknownKeys returns the top-level keys of data that FileConfig ignores.
func UnknownKeys(data []byte) []string {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil
	}
	var unknown []string
	for key := range raw {
		if !knownKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func (l *ConfigLoader) warnUnknownKeys(file string, data []byte) {
	if l.logger == nil {
		return
	}
	for _, key := range UnknownKeys(data) {
		l.logger.Warn("Unknown config key %q in %s", key, file)
	}
}
