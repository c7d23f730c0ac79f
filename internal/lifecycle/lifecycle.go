package lifecycle

import (
	"context"
	"fmt"
	"log"

	"github.com/lu123321/counseling-app/internal/apperr"
	"github.com/lu123321/counseling-app/internal/model"
	"github.com/lu123321/counseling-app/internal/store"
)

// SessionFinalizer is the session collaborator notified when a
// consultation event completes. The manager never writes session
// fields directly.
type SessionFinalizer interface {
	FinalizeSession(ctx context.Context, sessionID int64) error
}

// Manager validates and applies event status transitions, including
// side effects on linked sessions.
type Manager struct {
	store    store.EventStore
	sessions SessionFinalizer
}

// NewManager creates a lifecycle manager. sessions may be nil when no
// session collaborator is wired, in which case completion side effects
// are skipped.
func NewManager(s store.EventStore, sessions SessionFinalizer) *Manager {
	return &Manager{store: s, sessions: sessions}
}

// allowed maps each status to the set of states it may move into.
// Completed and Cancelled are terminal.
var allowed = map[model.EventStatus][]model.EventStatus{
	model.StatusPending:    {model.StatusInProgress, model.StatusCompleted, model.StatusCancelled},
	model.StatusInProgress: {model.StatusCompleted, model.StatusCancelled},
}

// Transition moves the event into target. Moving into the current
// state is a no-op success; moving out of a terminal state fails with
// an InvalidTransitionError.
func (m *Manager) Transition(ctx context.Context, id int64, target model.EventStatus) (*model.Event, error) {
	if !target.Valid() {
		return nil, &apperr.ValidationError{Field: "status", Value: int(target), Reason: "unknown status"}
	}

	event, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if event.Status == target {
		return event, nil
	}
	if !transitionAllowed(event.Status, target) {
		return nil, &apperr.InvalidTransitionError{From: event.Status.String(), To: target.String()}
	}

	updated, err := m.store.Update(ctx, id, store.EventPatch{Status: &target})
	if err != nil {
		return nil, err
	}

	if target == model.StatusCompleted && updated.EventType == model.TypeConsultation && updated.SessionID != nil {
		if m.sessions == nil {
			log.Printf("Warning: event %d completed with linked session %d but no session collaborator is wired", id, *updated.SessionID)
			return updated, nil
		}
		if err := m.sessions.FinalizeSession(ctx, *updated.SessionID); err != nil {
			return nil, fmt.Errorf("finalize session %d for event %d: %w", *updated.SessionID, id, err)
		}
	}
	return updated, nil
}

func transitionAllowed(from, to model.EventStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
