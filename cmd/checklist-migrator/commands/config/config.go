// Package config provides configuration management commands for
// checklist-migrator.
package config

import "github.com/spf13/cobra"

// NewConfigCmd creates the config parent command with all subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage checklist-migrator configuration.

Subcommands:
  init    Generate a config.toml file
  show    Display current effective configuration with sources

Examples:
  # Generate a config file
  checklist-migrator config init

  # Show current configuration
  checklist-migrator config show`,
	}

	cmd.AddCommand(
		NewInitCmd(),
		NewShowCmd(),
	)

	return cmd
}
