// Package core provides the main checklist-migrator commands.
package core

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state document's version and pending migrations",
		Long: `Show the version of the state document and the migrations needed to
bring it to the current version.

Examples:
  # Show status
  checklist-migrator status

  # Show status as JSON
  checklist-migrator status --json`,
		RunE: runStatus,
	}
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	runner, err := shared.GetAppContainer().Runner()
	if err != nil {
		return err
	}
	st, err := runner.CheckStatus(cmd.Context())
	if err != nil {
		return err
	}

	logger := output.DefaultLogger
	if shared.GetJSONMode() {
		return logger.JSON(st)
	}

	state := "present"
	if !st.Exists {
		state = "missing"
	}
	logger.Bold("Document: %s (%s)", st.DocumentPath, state)
	if st.DetectedBy != "" {
		logger.Println("Version:  %s (detected by %s)", st.CurrentVersion, st.DetectedBy)
	} else {
		logger.Println("Version:  %s", st.CurrentVersion)
	}
	logger.Println("Latest:   %s", st.LatestVersion)

	if !st.NeedsMigration {
		logger.Success("Up to date")
		return nil
	}
	if len(st.AvailableMigrations) == 0 {
		logger.Warn("No migration path to %s", st.LatestVersion)
		return nil
	}
	logger.Println("")
	logger.Cyan("Pending migrations:")
	for i, m := range st.AvailableMigrations {
		line := fmt.Sprintf("  %d. %s (%s -> %s)", i+1, m.ID, m.From, m.To)
		if m.Description != "" {
			line += ": " + m.Description
		}
		logger.Println("%s", line)
	}
	return nil
}
