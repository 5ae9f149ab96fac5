package services

import (
	"time"

	"github.com/taskhive/taskhive/internal/models"

	"github.com/gofrs/uuid"
)

type EventType string

const (
	EventTaskCreated  EventType = "task_created"
	EventTaskUpdated  EventType = "task_updated"
	EventTaskDeleted  EventType = "task_deleted"
	EventTaskAssigned EventType = "task_assigned"
	EventTimerStarted EventType = "timer_started"
	EventTimerStopped EventType = "timer_stopped"
)

// Event describes a state change produced by the services. Exactly one
// of Task or Entry is set, depending on the event type.
type Event struct {
	Type  EventType         `json:"type"`
	Task  *models.Task      `json:"task,omitempty"`
	Entry *models.TimeEntry `json:"entry,omitempty"`
	Actor uuid.UUID         `json:"actor"`
	At    time.Time         `json:"at"`
}

// Sink receives service events. Implementations must not block; slow
// consumers should buffer internally.
type Sink interface {
	Publish(event Event)
}

// publish is nil-safe so services can run without a dispatcher wired,
// as they do in most tests.
func publish(sink Sink, event Event) {
	if sink == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	sink.Publish(event)
}
