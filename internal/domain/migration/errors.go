package migration

import (
	"errors"
	"fmt"
)

// Planning errors.
var (
	ErrNoPathFound        = errors.New("no migration path found")
	ErrBackwardMigration  = errors.New("backward migration is not supported")
	ErrDuplicateMigration = errors.New("migration already registered")
)

// Manifest defects. These indicate a bug in the shipped migration definitions.
var (
	ErrInvalidMigrationDefinition = errors.New("invalid migration definition")
	ErrBrokenChain                = errors.New("migration path is not continuous")
)

// Precondition failures detected immediately before a step runs.
var (
	ErrAlreadyApplied     = errors.New("migration already applied")
	ErrVersionMismatch    = errors.New("document version does not match migration source")
	ErrPrerequisiteNotMet = errors.New("migration prerequisite not met")
)

// Failures caused by a migration's own logic.
var (
	ErrTransformFailed = errors.New("migration transform failed")
	ErrMalformedOutput = errors.New("migration produced malformed output")
	ErrSelfCheckFailed = errors.New("migration self-check failed")
)

// ErrCancelled is returned when the context is cancelled between steps.
var ErrCancelled = errors.New("migration cancelled")

// MigrationError carries the identity of the step that failed.
type MigrationError struct {
	Operation   string
	MigrationID string
	From        string
	To          string
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s (%s -> %s) %s: %v", e.MigrationID, e.From, e.To, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// stepError wraps err with the identity of m.
func stepError(op string, m *Migration, err error) *MigrationError {
	return &MigrationError{
		Operation:   op,
		MigrationID: m.Label(),
		From:        m.From.String(),
		To:          m.To.String(),
		Err:         err,
	}
}

// StepError wraps err with the identity of m. Used by executors outside this package.
func StepError(op string, m *Migration, err error) error {
	return stepError(op, m, err)
}

// IsManifestDefect reports whether err stems from malformed migration definitions.
func IsManifestDefect(err error) bool {
	return errors.Is(err, ErrInvalidMigrationDefinition) || errors.Is(err, ErrBrokenChain)
}
