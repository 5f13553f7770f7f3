package manage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/backup"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
)

var rollbackForce bool

// rollbackOutput is the JSON form of a rollback.
type rollbackOutput struct {
	Backup  string `json:"backup"`
	Version string `json:"version"`
}

// NewRollbackCmd creates the rollback command.
func NewRollbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback [backup]",
		Short: "Restore the state document from a backup",
		Long: `Restore the state document from a backup. Without an argument the newest
backup is used.

Examples:
  # Restore the newest backup
  checklist-migrator rollback

  # Restore a specific backup without confirmation
  checklist-migrator rollback state_20240101T000000.000000000Z_0.1.0_pre-1.0.0.bak --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRollback,
	}
	cmd.Flags().BoolVarP(&rollbackForce, "force", "f", false,
		"Restore without confirmation")
	return cmd
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	container := shared.GetAppContainer()

	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	h, err := container.Backups().Find(ctx, name)
	if err != nil {
		if backup.IsNotFound(err) && name == "" {
			return fmt.Errorf("no backups found in %s", container.Backups().Dir())
		}
		return err
	}
	if name == "" && !rollbackForce && output.IsInteractive() {
		if h, err = selectBackup(cmd, container.Backups()); err != nil {
			return err
		}
	}

	if !rollbackForce {
		ok, err := shared.GetPrompter().Confirm(fmt.Sprintf("Restore %s (version %s)", filepath.Base(h.Path), h.Version))
		if err != nil {
			if errors.Is(err, output.ErrNotInteractive) {
				return fmt.Errorf("refusing to overwrite the state document without confirmation; use --force")
			}
			return err
		}
		if !ok {
			output.DefaultLogger.Info("Rollback cancelled")
			return nil
		}
	}

	runner, err := container.Runner()
	if err != nil {
		return err
	}
	if err := runner.Rollback(ctx, h); err != nil {
		return err
	}

	if shared.GetJSONMode() {
		return output.DefaultLogger.JSON(rollbackOutput{Backup: h.Path, Version: h.Version})
	}
	output.DefaultLogger.Success("Restored %s from %s", runner.Config().DocumentPath, filepath.Base(h.Path))
	return nil
}

// selectBackup lets the user pick one of the stored backups.
func selectBackup(cmd *cobra.Command, backups *backup.Manager) (*backup.Handle, error) {
	list, err := backups.ListBackups(cmd.Context())
	if err != nil {
		return nil, err
	}
	items := make([]string, len(list))
	for i, b := range list {
		items[i] = fmt.Sprintf("%s  (version %s, %s)", filepath.Base(b.Path), b.Version, b.Label)
	}
	idx, err := shared.GetPrompter().SelectFromList("Select a backup to restore", items)
	if err != nil {
		return nil, err
	}
	return list[idx], nil
}
