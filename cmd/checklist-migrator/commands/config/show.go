package config

import (
	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
)

// showOutput is the JSON form of the effective configuration.
type showOutput struct {
	Home          string `json:"home"`
	NoColor       bool   `json:"no_color"`
	Verbose       bool   `json:"verbose"`
	JSON          bool   `json:"json"`
	StateFile     string `json:"state_file"`
	BackupDir     string `json:"backup_dir"`
	MaxBackups    int    `json:"max_backups"`
	CreateBackup  bool   `json:"create_backup"`
	TargetVersion string `json:"target_version"`
	Manifest      string `json:"manifest"`
	SchemasDir    string `json:"schemas_dir"`
	ConfigFile    string `json:"config_file,omitempty"`
}

// NewShowCmd creates the config show subcommand.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		Long: `Display the current effective configuration with sources.

Shows all configuration values and where they came from:
  - default: Built-in default value
  - config.toml: Value from config file
  - environment: Value from environment variable
  - flag: Value from command-line flag`,
		RunE: runShow,
	}

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg := shared.GetConfig()
	logger := output.DefaultLogger

	if shared.GetJSONMode() {
		return logger.JSON(showOutput{
			Home:          cfg.Home.Value,
			NoColor:       cfg.NoColor.Value,
			Verbose:       cfg.Verbose.Value,
			JSON:          cfg.JSON.Value,
			StateFile:     cfg.StatePath(),
			BackupDir:     cfg.BackupPath(),
			MaxBackups:    cfg.MaxBackups.Value,
			CreateBackup:  cfg.CreateBackup.Value,
			TargetVersion: cfg.TargetVersion.Value,
			Manifest:      cfg.ManifestPath(),
			SchemasDir:    cfg.SchemasPath(),
			ConfigFile:    cfg.ConfigFilePath,
		})
	}

	cfg.ToTable(logger.Writer())
	if cfg.ConfigFilePath != "" {
		logger.Println("\nConfig file: %s", cfg.ConfigFilePath)
	} else {
		logger.Println("\nNo config file loaded")
	}
	return nil
}
