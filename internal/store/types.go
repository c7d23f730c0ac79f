package store

import (
	"time"

	"github.com/lu123321/counseling-app/internal/model"
	"github.com/lu123321/counseling-app/internal/recurrence"
)

// EventInput carries the fields for creating a new event. The store
// assigns the ID.
type EventInput struct {
	Title        string
	EventType    model.EventType
	StartAt      time.Time
	EndAt        time.Time
	Location     string
	Description  string
	Color        string
	RemindPolicy model.ReminderPolicy
	Recurrence   *recurrence.Rule
	ClientID     *int64
	SessionID    *int64
	// ClientFacing declares that the event is tied to a client visit,
	// making ClientID mandatory for consultation events.
	ClientFacing bool
}

// EventPatch carries a partial update; nil fields are left unchanged.
// Validation runs against the merged result.
type EventPatch struct {
	Title        *string
	EventType    *model.EventType
	StartAt      *time.Time
	EndAt        *time.Time
	Location     *string
	Description  *string
	Color        *string
	Status       *model.EventStatus
	RemindPolicy *model.ReminderPolicy
	// ReminderFired is set by the notification collaborator after a
	// reminder has been dispatched for the current occurrence.
	ReminderFired *bool
	Recurrence    *recurrence.Rule
	// ClearRecurrence turns a recurring event back into a single
	// occurrence. Ignored when Recurrence is set.
	ClearRecurrence bool
	ClientID        *int64
	// ClearClient unlinks the event from its client. Ignored when
	// ClientID is set.
	ClearClient bool
	SessionID   *int64
}
