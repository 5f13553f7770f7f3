package core

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal/application/migration"
	"github.com/altuslabsxyz/checklist-migrator/internal/config"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
)

var (
	migrateTarget   string
	migrateDryRun   bool
	migrateNoBackup bool
)

// migrateOutput is the JSON form of a migration result.
type migrateOutput struct {
	*migration.Result
	Error         string `json:"error,omitempty"`
	RollbackError string `json:"rollbackError,omitempty"`
}

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the state document to the current version",
		Long: `Migrate the state document to the current version, or to --to.

A backup is written before the first step. If any step fails the backup is
restored and the command exits with an error.

Examples:
  # Migrate to the latest version
  checklist-migrator migrate

  # Preview the migration chain without touching the document
  checklist-migrator migrate --dry-run

  # Migrate to a specific version
  checklist-migrator migrate --to 0.2.0`,
		RunE: runMigrate,
	}

	cmd.Flags().StringVar(&migrateTarget, config.FlagTarget, "",
		"Target version (default: latest known version)")
	cmd.Flags().BoolVar(&migrateDryRun, "dry-run", false,
		"Show the migration chain without applying it")
	cmd.Flags().BoolVar(&migrateNoBackup, config.FlagNoBackup, false,
		"Skip the pre-migration backup")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := shared.GetConfig()
	runner, err := shared.GetAppContainer().Runner()
	if err != nil {
		return err
	}

	res, err := runner.Migrate(cmd.Context(), migration.MigrateOptions{
		DryRun:   migrateDryRun,
		NoBackup: !cfg.CreateBackup.Value,
		Verbose:  cfg.Verbose.Value,
	})
	if err != nil {
		return err
	}

	logger := output.DefaultLogger
	if shared.GetJSONMode() {
		out := migrateOutput{Result: res, Error: res.ErrorMessage()}
		if res.RollbackErr != nil {
			out.RollbackError = res.RollbackErr.Error()
		}
		if err := logger.JSON(out); err != nil {
			return err
		}
	} else {
		printMigrateResult(logger, res)
	}

	if !res.Success {
		return fmt.Errorf("migration %s -> %s failed (%s)", res.FromVersion, res.ToVersion, res.State)
	}
	return nil
}

func printMigrateResult(logger output.LoggerInterface, res *migration.Result) {
	switch res.State {
	case migration.StateNoOpComplete:
		logger.Success("Document is already at version %s", res.FromVersion)
	case migration.StateDryRunComplete:
		logger.Info("Dry run: %s -> %s", res.FromVersion, res.ToVersion)
		for i, id := range res.AppliedMigrations {
			logger.Println("  %d. %s", i+1, id)
		}
	case migration.StateSucceeded:
		logger.Success("Migrated %s -> %s (%d steps)", res.FromVersion, res.ToVersion, len(res.AppliedMigrations))
		if res.BackupPath != "" {
			logger.Println("Backup: %s", res.BackupPath)
		}
	default:
		logger.PrintRunError(&output.RunErrorInfo{
			FromVersion: res.FromVersion,
			ToVersion:   res.ToVersion,
			State:       string(res.State),
			BackupPath:  res.BackupPath,
			Err:         res.Err,
			RollbackErr: res.RollbackErr,
		})
	}
}
