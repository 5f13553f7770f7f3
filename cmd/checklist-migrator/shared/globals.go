// Package shared provides shared state and utilities for checklist-migrator
// commands. It is imported by all command subpackages without creating
// import cycles.
package shared

import (
	"os"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"

	"github.com/altuslabsxyz/checklist-migrator/internal/config"
	"github.com/altuslabsxyz/checklist-migrator/internal/di"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
	"github.com/altuslabsxyz/checklist-migrator/internal/paths"
)

// Global state, accessed via getter/setter functions to enable
// cross-package usage without circular imports.
var (
	effectiveConfig *config.EffectiveConfig
	appContainer    *di.Container
	prompter        output.Prompter = output.NewPrompter()
)

// GetConfig returns the resolved configuration.
func GetConfig() *config.EffectiveConfig {
	if effectiveConfig == nil {
		effectiveConfig = config.NewEffectiveConfig(paths.DefaultHomeDir())
	}
	return effectiveConfig
}

// SetConfig sets the resolved configuration and drops any container built
// from a previous one.
func SetConfig(cfg *config.EffectiveConfig) {
	effectiveConfig = cfg
	appContainer = nil
}

// GetJSONMode returns whether JSON output mode is enabled.
func GetJSONMode() bool {
	return GetConfig().JSON.Value
}

// GetVerbose returns whether verbose output is enabled.
func GetVerbose() bool {
	return GetConfig().Verbose.Value
}

// GetPrompter returns the interactive prompter.
func GetPrompter() output.Prompter {
	return prompter
}

// SetPrompter replaces the interactive prompter.
func SetPrompter(p output.Prompter) {
	prompter = p
}

// GetAppContainer returns the dependency container for the current
// configuration, building it on first use.
func GetAppContainer() *di.Container {
	if appContainer == nil {
		cfg := GetConfig()
		progress := output.NewProgressWithWriter(output.DefaultLogger.Writer())
		progress.SetJSONMode(cfg.JSON.Value)
		appContainer = di.New(cfg.ContainerConfig(), NewStructuredLogger(cfg), di.WithEventSink(progress))
	}
	return appContainer
}

// SetAppContainer sets the dependency container.
func SetAppContainer(container *di.Container) {
	appContainer = container
}

// NewStructuredLogger creates the logger handed to the migration engine.
// It writes to stderr so stdout stays parseable in JSON mode.
func NewStructuredLogger(cfg *config.EffectiveConfig) log.Logger {
	level := zerolog.WarnLevel
	if cfg.Verbose.Value {
		level = zerolog.DebugLevel
	}
	opts := []log.Option{
		log.LevelOption(level),
		log.ColorOption(!cfg.NoColor.Value),
	}
	if cfg.JSON.Value {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(os.Stderr, opts...)
}
