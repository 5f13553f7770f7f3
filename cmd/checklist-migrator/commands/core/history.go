package core

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/output"
)

var historyPruneFailed bool

// historyEntry is the JSON form of a migration record.
type historyEntry struct {
	ID             string    `json:"id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	AppliedAt      time.Time `json:"appliedAt"`
	Success        bool      `json:"success"`
	ChangesSummary string    `json:"changesSummary,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	Checksum       string    `json:"checksum,omitempty"`
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the migrations recorded in the state document",
		Long: `Show the migration records stored in the state document, oldest first.

Examples:
  # Show migration history
  checklist-migrator history

  # Drop records of failed attempts
  checklist-migrator history --prune-failed`,
		RunE: runHistory,
	}
	cmd.Flags().BoolVar(&historyPruneFailed, "prune-failed", false,
		"Remove records of failed migration attempts")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runner, err := shared.GetAppContainer().Runner()
	if err != nil {
		return err
	}
	keeper := runner.Records()
	path := runner.Config().DocumentPath
	logger := output.DefaultLogger

	if historyPruneFailed {
		removed, err := keeper.PruneFailedAt(ctx, path)
		if err != nil {
			return err
		}
		if !shared.GetJSONMode() {
			logger.Success("Removed %d failed record(s)", removed)
		}
	}

	doc, err := keeper.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	records := keeper.History(doc)

	if shared.GetJSONMode() {
		entries := make([]historyEntry, 0, len(records))
		for _, r := range records {
			entries = append(entries, toHistoryEntry(r))
		}
		return logger.JSON(entries)
	}

	if len(records) == 0 {
		logger.Info("No migrations recorded")
		return nil
	}
	tw := tabwriter.NewWriter(logger.Writer(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFROM\tTO\tAPPLIED\tRESULT")
	for _, r := range records {
		result := "ok"
		if r.Failed() {
			result = "failed: " + r.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.From, r.To, r.AppliedAt.Format(time.RFC3339), result)
	}
	return tw.Flush()
}

func toHistoryEntry(r document.MigrationRecord) historyEntry {
	return historyEntry{
		ID:             r.ID,
		From:           r.From,
		To:             r.To,
		AppliedAt:      r.AppliedAt,
		Success:        r.Success,
		ChangesSummary: r.ChangesSummary,
		ErrorMessage:   r.ErrorMessage,
		Checksum:       r.Checksum,
	}
}
