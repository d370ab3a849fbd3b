package minirunner

import "time"

// EventType classifies a job lifecycle notification.
type EventType string

const (
	EventLaunched  EventType = "launched"
	EventSkipped   EventType = "skipped"
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
	EventAborted   EventType = "aborted"
	EventCompleted EventType = "completed"
)

// Event is a job lifecycle notification delivered to the run callback.
// EventCompleted carries an empty job name and fires once, after every job
// is terminal.
type Event struct {
	Type   EventType
	Job    string
	Time   time.Time
	Detail string
}

// Callback receives lifecycle events synchronously from the scheduler
// loop. Callbacks must return quickly; a slow callback stalls polling.
type Callback func(Event)
