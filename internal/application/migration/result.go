package migration

import (
	domainMigration "github.com/altuslabsxyz/checklist-migrator/internal/domain/migration"
)

// State is a Runner state.
type State string

const (
	StateIdle              State = "Idle"
	StateDetectingVersions State = "DetectingVersions"
	StatePathResolved      State = "PathResolved"
	StateNoOpComplete      State = "NoOpComplete"
	StateDryRunComplete    State = "DryRunComplete"
	StateExecuting         State = "Executing"
	StateSucceeded         State = "Succeeded"
	StateRolledBack        State = "RolledBack"
	StateFailedNoBackup    State = "FailedNoBackup"

	// StateFailed is terminal for runs that fail before any step executes,
	// such as an unreadable document or an unreachable target.
	StateFailed State = "Failed"
)

// IsTerminal reports whether no further transition can follow s.
func (s State) IsTerminal() bool {
	switch s {
	case StateNoOpComplete, StateDryRunComplete, StateSucceeded,
		StateRolledBack, StateFailedNoBackup, StateFailed:
		return true
	}
	return false
}

// Result is the outcome of one Migrate call. It is never persisted.
type Result struct {
	RunID             string   `json:"runId"`
	Success           bool     `json:"success"`
	FromVersion       string   `json:"fromVersion"`
	ToVersion         string   `json:"toVersion"`
	AppliedMigrations []string `json:"appliedMigrations"`
	BackupPath        string   `json:"backupPath,omitempty"`
	DryRun            bool     `json:"dryRun,omitempty"`
	State             State    `json:"state"`

	// Err is the cause of a failed run, wrapped with from/to context.
	Err error `json:"-"`
	// RollbackErr is set when restoring the backup failed as well. It never
	// replaces Err.
	RollbackErr error `json:"-"`
}

// ErrorMessage returns the message of Err, or an empty string.
func (r *Result) ErrorMessage() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Status describes where a document stands relative to the runner's version.
type Status struct {
	DocumentPath        string                 `json:"documentPath"`
	Exists              bool                   `json:"exists"`
	CurrentVersion      string                 `json:"currentVersion"`
	DetectedBy          string                 `json:"detectedBy,omitempty"`
	LatestVersion       string                 `json:"latestVersion"`
	NeedsMigration      bool                   `json:"needsMigration"`
	AvailableMigrations []domainMigration.Info `json:"availableMigrations"`
}
