package core

import (
	"fmt"

	goversion "github.com/caarlos0/go-version"
	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/checklist-migrator/cmd/checklist-migrator/shared"
	"github.com/altuslabsxyz/checklist-migrator/internal"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/migrations"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Show version information including build details and the document version this build writes.",
		RunE:  runVersion,
	}

	return cmd
}

// buildInfo returns the version details, overriding what the Go build info
// reports with the ldflags values when they were set.
func buildInfo() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("checklist-migrator",
			"Upgrades persisted checklist state to the current schema version.",
			"https://github.com/altuslabsxyz/checklist-migrator"),
		func(i *goversion.Info) {
			i.GitVersion = internal.Version
			if internal.GitCommit != "unknown" {
				i.GitCommit = internal.GitCommit
			}
			if internal.BuildDate != "unknown" {
				i.BuildDate = internal.BuildDate
			}
		},
	)
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := buildInfo()
	out := cmd.OutOrStdout()

	if shared.GetJSONMode() {
		data, err := info.JSONString()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, data)
		return nil
	}

	fmt.Fprint(out, info.String())
	fmt.Fprintf(out, "DocumentVersion: %s\n", migrations.LatestVersion)
	return nil
}
