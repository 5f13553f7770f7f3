// Package commands provides the CLI command implementations for
// checklist-migrator. This file defines the root command and registers all
// subcommands.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/commands/core"
	configcmd "github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/commands/config"
	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/commands/manage"
	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal/config"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
	"github.com/altuslabsxyz/checklist-migrator/internal/paths"
)

// Command group IDs for organized help output.
const (
	GroupMain     = "main"
	GroupRecovery = "recovery"
	GroupAdvanced = "advanced"
)

// Local variables for flag binding (Cobra requires pointers to local vars)
var (
	flags      config.FlagValues
	configPath string
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist-migrator",
		Short: "Upgrade persisted checklist state to the current schema version",
		Long: `checklist-migrator upgrades a persisted checklist state document to the
schema version this build understands.

It detects the document's version, plans a chain of migrations, snapshots the
document and applies each step, restoring the snapshot if any step fails.

Examples:
  # Show where the state document stands
  checklist-migrator status

  # Preview the migration chain
  checklist-migrator migrate --dry-run

  # Migrate to the latest version
  checklist-migrator migrate

  # Restore the newest backup
  checklist-migrator rollback`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: persistentPreRunE,
	}

	// Global flags available on all commands
	cmd.PersistentFlags().StringVarP(&flags.Home, config.FlagHome, "H", paths.DefaultHomeDir(),
		"Base directory for state, backups and configuration")
	cmd.PersistentFlags().StringVar(&flags.State, config.FlagState, "",
		"State document path (relative paths resolve against --home)")
	cmd.PersistentFlags().BoolVar(&flags.JSON, config.FlagJSON, false,
		"Output in JSON format")
	cmd.PersistentFlags().BoolVar(&flags.NoColor, config.FlagNoColor, false,
		"Disable colored output")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, config.FlagVerbose, "v", false,
		"Enable verbose logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config.toml file")

	cmd.AddGroup(&cobra.Group{ID: GroupMain, Title: "Main Commands:"})
	cmd.AddGroup(&cobra.Group{ID: GroupRecovery, Title: "Recovery Commands:"})
	cmd.AddGroup(&cobra.Group{ID: GroupAdvanced, Title: "Advanced Commands:"})

	registerCommands(cmd)

	return cmd
}

// persistentPreRunE handles configuration loading and global state setup.
func persistentPreRunE(cmd *cobra.Command, args []string) error {
	// Flags of the running subcommand (--to, --no-backup) are read here too.
	bindLocalFlags(cmd)

	loader := config.NewConfigLoader(flags.Home, configPath, output.DefaultLogger)
	fileCfg, configFilePath, err := loader.LoadFileConfig()
	if err != nil {
		return err
	}

	// Priority: default < config.toml < env < flag
	cfg, err := config.Resolve(cmd, fileCfg, flags, os.Getenv)
	if err != nil {
		return err
	}
	cfg.ConfigFilePath = configFilePath

	output.DefaultLogger.SetNoColor(cfg.NoColor.Value)
	output.DefaultLogger.SetVerbose(cfg.Verbose.Value)
	output.DefaultLogger.SetJSONMode(cfg.JSON.Value)

	if configFilePath != "" {
		output.DefaultLogger.Debug("Using config file: %s", configFilePath)
	}

	shared.SetConfig(cfg)
	return nil
}

func bindLocalFlags(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup(config.FlagTarget); f != nil {
		flags.Target = f.Value.String()
	}
	if f := cmd.Flags().Lookup(config.FlagNoBackup); f != nil {
		flags.NoBackup = f.Value.String() == "true"
	}
}

// registerCommands registers all subcommands with appropriate group assignments.
func registerCommands(rootCmd *cobra.Command) {
	statusCmd := core.NewStatusCmd()
	statusCmd.GroupID = GroupMain
	migrateCmd := core.NewMigrateCmd()
	migrateCmd.GroupID = GroupMain
	historyCmd := core.NewHistoryCmd()
	historyCmd.GroupID = GroupMain

	backupsCmd := manage.NewBackupsCmd()
	backupsCmd.GroupID = GroupRecovery
	rollbackCmd := manage.NewRollbackCmd()
	rollbackCmd.GroupID = GroupRecovery

	configCmd := configcmd.NewConfigCmd()
	configCmd.GroupID = GroupAdvanced
	versionCmd := core.NewVersionCmd()
	versionCmd.GroupID = GroupAdvanced

	rootCmd.AddCommand(
		statusCmd,
		migrateCmd,
		historyCmd,
		backupsCmd,
		rollbackCmd,
		configCmd,
		versionCmd,
	)
}
