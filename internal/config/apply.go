package config

import (
	"github.com/spf13/cobra"
)

// Flag names read by Resolve.
const (
	FlagHome     = "home"
	FlagState    = "state"
	FlagJSON     = "json"
	FlagNoColor  = "no-color"
	FlagVerbose  = "verbose"
	FlagTarget   = "to"
	FlagNoBackup = "no-backup"
)

// Environment variables read by Resolve.
const (
	EnvHome    = "CHECKLIST_HOME"
	EnvNoColor = "NO_COLOR"
)

// FlagValues carries the parsed values of the flags named above. Flags a
// command does not define are simply never Changed.
type FlagValues struct {
	Home     string
	State    string
	JSON     bool
	NoColor  bool
	Verbose  bool
	Target   string
	NoBackup bool
}

// Resolve builds the EffectiveConfig.
// Priority: default < config.toml < environment < flag.
func Resolve(cmd *cobra.Command, fileCfg *FileConfig, flags FlagValues, getenv func(string) string) (*EffectiveConfig, error) {
	if fileCfg == nil {
		fileCfg = &FileConfig{}
	}
	c := NewEffectiveConfig(flags.Home)

	c.Home.Value, c.Home.Source = ApplyStringConfig(cmd, FlagHome, flags.Home, fileCfg.Home)
	c.Home.Value, c.Home.Source = ApplyEnvString(cmd, FlagHome, c.Home.Value, getenv(EnvHome), c.Home.Source)

	c.JSON.Value, c.JSON.Source = ApplyBoolConfig(cmd, FlagJSON, flags.JSON, fileCfg.JSON)
	c.Verbose.Value, c.Verbose.Source = ApplyBoolConfig(cmd, FlagVerbose, flags.Verbose, fileCfg.Verbose)
	c.NoColor.Value, c.NoColor.Source = ApplyBoolConfig(cmd, FlagNoColor, flags.NoColor, fileCfg.NoColor)
	c.NoColor.Value, c.NoColor.Source = ApplyEnvBool(cmd, FlagNoColor, c.NoColor.Value, getenv(EnvNoColor) != "", c.NoColor.Source)

	if changed(cmd, FlagState) {
		c.StateFile = StringValue{Value: flags.State, Source: SourceFlag}
	} else {
		c.StateFile = fromFileString(c.StateFile, fileCfg.StateFile)
	}
	if changed(cmd, FlagTarget) {
		c.TargetVersion = StringValue{Value: flags.Target, Source: SourceFlag}
	} else {
		c.TargetVersion = fromFileString(c.TargetVersion, fileCfg.TargetVersion)
	}
	if changed(cmd, FlagNoBackup) {
		c.CreateBackup = BoolValue{Value: !flags.NoBackup, Source: SourceFlag}
	} else if fileCfg.CreateBackup != nil {
		c.CreateBackup = BoolValue{Value: *fileCfg.CreateBackup, Source: SourceConfigFile}
	}

	c.BackupDir = fromFileString(c.BackupDir, fileCfg.BackupDir)
	c.Manifest = fromFileString(c.Manifest, fileCfg.Manifest)
	c.SchemasDir = fromFileString(c.SchemasDir, fileCfg.SchemasDir)
	if fileCfg.MaxBackups != nil {
		c.MaxBackups = IntValue{Value: *fileCfg.MaxBackups, Source: SourceConfigFile}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func changed(cmd *cobra.Command, name string) bool {
	return cmd != nil && cmd.Flags().Lookup(name) != nil && cmd.Flags().Changed(name)
}

func fromFileString(current StringValue, configValue *string) StringValue {
	if configValue == nil {
		return current
	}
	return StringValue{Value: *configValue, Source: SourceConfigFile}
}

// ApplyStringConfig applies a config file string value if the flag was not explicitly set
// and the config value is present. Returns the effective value and its source.
func ApplyStringConfig(cmd *cobra.Command, flagName string, currentValue string, configValue *string) (string, ConfigSource) {
	if changed(cmd, flagName) {
		return currentValue, SourceFlag
	}
	if configValue != nil {
		return *configValue, SourceConfigFile
	}
	return currentValue, SourceDefault
}

// ApplyBoolConfig applies a config file bool value if the flag was not explicitly set
// and the config value is present. A default false flag never overrides a
// configured true.
func ApplyBoolConfig(cmd *cobra.Command, flagName string, currentValue bool, configValue *bool) (bool, ConfigSource) {
	if changed(cmd, flagName) {
		return currentValue, SourceFlag
	}
	if configValue != nil {
		return *configValue, SourceConfigFile
	}
	return currentValue, SourceDefault
}

// ApplyEnvString applies an environment variable string value if set and flag was not changed.
func ApplyEnvString(cmd *cobra.Command, flagName string, currentValue string, envValue string, currentSource ConfigSource) (string, ConfigSource) {
	if changed(cmd, flagName) {
		return currentValue, SourceFlag
	}
	if envValue != "" {
		return envValue, SourceEnvironment
	}
	return currentValue, currentSource
}

// ApplyEnvBool applies an environment variable bool value if set and flag was not changed.
func ApplyEnvBool(cmd *cobra.Command, flagName string, currentValue bool, envSet bool, currentSource ConfigSource) (bool, ConfigSource) {
	if changed(cmd, flagName) {
		return currentValue, SourceFlag
	}
	if envSet {
		return true, SourceEnvironment
	}
	return currentValue, currentSource
}
