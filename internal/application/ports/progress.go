// Package ports defines the interfaces the migration use cases require from
// the infrastructure layer (Ports and Adapters).
package ports

// EventType names a migration lifecycle event.
type EventType string

const (
	// EventProgress is emitted before each migration step runs.
	EventProgress EventType = "progress"
	// EventError is emitted before a failed run returns.
	EventError EventType = "error"
	// EventRollbackStart is emitted before a backup is written back.
	EventRollbackStart EventType = "rollback:start"
	// EventRollbackComplete is emitted after the backup was written back.
	EventRollbackComplete EventType = "rollback:complete"
)

// Event is a single observation of a migration run.
// Only the fields relevant to Type are set.
type Event struct {
	Type  EventType
	RunID string

	// Progress fields.
	CurrentStep int
	TotalSteps  int
	MigrationID string
	Percentage  int

	From       string
	To         string
	BackupPath string
	Err        error
}

// EventSink receives migration events. Events are delivered synchronously, in
// order, on the goroutine running the migration.
type EventSink interface {
	Emit(event Event)
}

// EventFunc is a simple function adapter for EventSink.
type EventFunc func(event Event)

// Emit implements EventSink.
func (f EventFunc) Emit(event Event) {
	if f != nil {
		f(event)
	}
}

// NilEventSink discards every event.
var NilEventSink EventSink = EventFunc(nil)

// Multi fans events out to every sink in order.
func Multi(sinks ...EventSink) EventSink {
	return EventFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}
