package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const separatorWidth = 60

func separator(c *color.Color) string {
	return c.Sprint(strings.Repeat("─", separatorWidth))
}

// RunErrorInfo describes a failed migration run for display.
type RunErrorInfo struct {
	FromVersion string
	ToVersion   string
	State       string
	BackupPath  string // Snapshot used for the rollback, if any
	Err         error
	RollbackErr error
}

// PrintRunError prints a framed summary of a failed run to the error writer.
func (l *Logger) PrintRunError(info *RunErrorInfo) {
	if l.jsonMode || info == nil {
		return
	}
	red := color.New(color.FgRed)
	w := l.errOut

	fmt.Fprintln(w, separator(red))
	red.Fprintf(w, "Migration %s -> %s failed (%s)\n", info.FromVersion, info.ToVersion, info.State)
	if info.Err != nil {
		fmt.Fprintf(w, "  cause:    %v\n", info.Err)
	}
	switch {
	case info.RollbackErr != nil:
		red.Fprintf(w, "  rollback: FAILED: %v\n", info.RollbackErr)
		fmt.Fprintf(w, "  restore manually from %s\n", info.BackupPath)
	case info.BackupPath != "":
		fmt.Fprintf(w, "  restored: %s\n", info.BackupPath)
	case info.State == "FailedNoBackup":
		color.New(color.FgYellow).Fprintln(w, "  no backup was taken; the document may be partially migrated")
	}
	fmt.Fprintln(w, separator(red))
}
