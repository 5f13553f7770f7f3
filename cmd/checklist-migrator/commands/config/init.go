package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal/config"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
	"github.com/altuslabsxyz/checklist-migrator/internal/paths"
)

var (
	initForce      bool
	initMaxBackups int
	initTarget     string
)

// NewInitCmd creates the config init subcommand.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a config.toml file",
		Long: `Generate config.toml in the home directory. Settings that are not given are
written as commented-out defaults.

Examples:
  # Generate a config file with defaults
  checklist-migrator config init

  # Keep at most 5 backups and pin the target version
  checklist-migrator config init --max-backups 5 --target-version 1.0.0

  # Overwrite an existing config file
  checklist-migrator config init --force`,
		RunE: runInit,
	}

	cmd.Flags().BoolVarP(&initForce, "force", "f", false,
		"Overwrite existing config.toml")
	cmd.Flags().IntVar(&initMaxBackups, "max-backups", 0,
		"Number of backups to keep")
	cmd.Flags().StringVar(&initTarget, "target-version", "",
		"Default migration target")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := shared.GetConfig()
	writer := config.NewConfigWriter(paths.ExpandHome(cfg.Home.Value))

	if writer.Exists() && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", writer.Path())
	}

	fileCfg := &config.FileConfig{}
	if cmd.Flags().Changed("max-backups") {
		fileCfg.MaxBackups = &initMaxBackups
	}
	if initTarget != "" {
		fileCfg.TargetVersion = &initTarget
	}

	if err := writer.Write(fileCfg); err != nil {
		return err
	}

	if shared.GetJSONMode() {
		return output.DefaultLogger.JSON(map[string]string{"path": writer.Path()})
	}
	output.DefaultLogger.Success("Config file created: %s", writer.Path())
	return nil
}
