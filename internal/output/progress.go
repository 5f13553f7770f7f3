package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
)

// Progress renders migration events as [N/M] lines. It implements
// ports.EventSink.
type Progress struct {
	out      io.Writer
	jsonMode bool
	current  int
	total    int
}

// NewProgress creates a Progress writing to stdout.
func NewProgress() *Progress {
	return NewProgressWithWriter(os.Stdout)
}

// NewProgressWithWriter creates a Progress writing to w.
func NewProgressWithWriter(w io.Writer) *Progress {
	return &Progress{out: w}
}

// SetJSONMode enables JSON output mode (suppresses text output).
func (p *Progress) SetJSONMode(jsonMode bool) {
	p.jsonMode = jsonMode
}

// Current returns the last reported step.
func (p *Progress) Current() int {
	return p.current
}

// Total returns the total number of steps of the run.
func (p *Progress) Total() int {
	return p.total
}

// Emit implements ports.EventSink.
func (p *Progress) Emit(e ports.Event) {
	if e.Type == ports.EventProgress {
		p.current = e.CurrentStep
		p.total = e.TotalSteps
	}
	if p.jsonMode {
		return
	}

	switch e.Type {
	case ports.EventProgress:
		color.New(color.FgCyan).Fprintf(p.out, "[%d/%d] %s (%s -> %s) %d%%\n",
			e.CurrentStep, e.TotalSteps, e.MigrationID, e.From, e.To, e.Percentage)
	case ports.EventError:
		color.New(color.FgRed).Fprintf(p.out, "✗ %v\n", e.Err)
	case ports.EventRollbackStart:
		color.New(color.FgYellow).Fprintf(p.out, "Rolling back to %s...\n", e.BackupPath)
	case ports.EventRollbackComplete:
		color.New(color.FgYellow).Fprintf(p.out, "Restored document at version %s\n", e.To)
	default:
		fmt.Fprintf(p.out, "%s\n", e.Type)
	}
}

// Done prints a completion message.
func (p *Progress) Done(message string) {
	if p.jsonMode {
		return
	}
	color.New(color.FgGreen).Fprintf(p.out, "\n✓ %s\n", message)
}

var _ ports.EventSink = (*Progress)(nil)
