// Package manage provides the backup and recovery commands.
package manage

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
)

// NewBackupsCmd creates the backups command.
func NewBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backups",
		Aliases: []string{"backup"},
		Short:   "List state document backups",
		Long: `List the backups taken before migrations, newest first.

Examples:
  # List backups
  checklist-migrator backups

  # List backups as JSON
  checklist-migrator backups --json`,
		RunE: runBackups,
	}
	return cmd
}

func runBackups(cmd *cobra.Command, args []string) error {
	backups, err := shared.GetAppContainer().Backups().ListBackups(cmd.Context())
	if err != nil {
		return err
	}

	logger := output.DefaultLogger
	if shared.GetJSONMode() {
		return logger.JSON(backups)
	}
	if len(backups) == 0 {
		logger.Info("No backups found")
		return nil
	}

	tw := tabwriter.NewWriter(logger.Writer(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tLABEL\tCREATED\tSIZE")
	for _, b := range backups {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			filepath.Base(b.Path), b.Version, b.Label, b.CreatedAt.Local().Format(time.DateTime), b.SizeBytes)
	}
	return tw.Flush()
}
