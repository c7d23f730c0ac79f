package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lu123321/counseling-app/internal/apperr"
	"github.com/lu123321/counseling-app/internal/db"
	"github.com/lu123321/counseling-app/internal/model"
	"github.com/lu123321/counseling-app/internal/store"
)

type fakeFinalizer struct {
	finalized []int64
	err       error
}

func (f *fakeFinalizer) FinalizeSession(ctx context.Context, sessionID int64) error {
	if f.err != nil {
		return f.err
	}
	f.finalized = append(f.finalized, sessionID)
	return nil
}

func newTestStore(t *testing.T) store.EventStore {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return store.NewGormStore(gormDB)
}

func createEvent(t *testing.T, s store.EventStore, input store.EventInput) *model.Event {
	t.Helper()
	if input.Title == "" {
		input.Title = "status test"
	}
	if input.EventType == 0 {
		input.EventType = model.TypeOther
	}
	if input.StartAt.IsZero() {
		input.StartAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		input.EndAt = input.StartAt.Add(time.Hour)
	}
	event, err := s.Create(context.Background(), input)
	require.NoError(t, err)
	return event
}

func TestTransitionTable(t *testing.T) {
	testCases := []struct {
		name            string
		target          model.EventStatus
		expected        model.EventStatus
		expectInvalid   bool
		expectBadStatus bool
	}{
		{name: "pending to in progress", target: model.StatusInProgress, expected: model.StatusInProgress},
		{name: "pending to completed", target: model.StatusCompleted, expected: model.StatusCompleted},
		{name: "pending to cancelled", target: model.StatusCancelled, expected: model.StatusCancelled},
		{name: "same state is a no-op", target: model.StatusPending, expected: model.StatusPending},
		{name: "unknown status rejected", target: 9, expectBadStatus: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t)
			m := NewManager(s, &fakeFinalizer{})
			event := createEvent(t, s, store.EventInput{})

			updated, err := m.Transition(context.Background(), event.ID, tc.target)

			if tc.expectBadStatus {
				var verr *apperr.ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			if tc.expectInvalid {
				var terr *apperr.InvalidTransitionError
				require.ErrorAs(t, err, &terr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, updated.Status)
		})
	}
}

func TestTransitionTerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []model.EventStatus{model.StatusCompleted, model.StatusCancelled} {
		t.Run(terminal.String(), func(t *testing.T) {
			s := newTestStore(t)
			m := NewManager(s, &fakeFinalizer{})
			event := createEvent(t, s, store.EventInput{})

			_, err := m.Transition(context.Background(), event.ID, terminal)
			require.NoError(t, err)

			_, err = m.Transition(context.Background(), event.ID, model.StatusPending)
			var terr *apperr.InvalidTransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, terminal.String(), terr.From)

			// The record keeps the terminal state.
			got, err := s.Get(context.Background(), event.ID)
			require.NoError(t, err)
			assert.Equal(t, terminal, got.Status)
		})
	}
}

func TestTransitionNotFound(t *testing.T) {
	m := NewManager(newTestStore(t), &fakeFinalizer{})

	_, err := m.Transition(context.Background(), 404, model.StatusCompleted)
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestTransitionCompletionFinalizesSession(t *testing.T) {
	s := newTestStore(t)
	finalizer := &fakeFinalizer{}
	m := NewManager(s, finalizer)

	clientID := int64(1)
	sessionID := int64(42)
	event := createEvent(t, s, store.EventInput{
		Title:     "咨询",
		EventType: model.TypeConsultation,
		StartAt:   time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
		EndAt:     time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		ClientID:  &clientID,
		SessionID: &sessionID,
	})

	updated, err := m.Transition(context.Background(), event.ID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.Equal(t, []int64{sessionID}, finalizer.finalized)
}

func TestTransitionCompletionSkipsSideEffect(t *testing.T) {
	t.Run("non-consultation", func(t *testing.T) {
		s := newTestStore(t)
		finalizer := &fakeFinalizer{}
		m := NewManager(s, finalizer)
		event := createEvent(t, s, store.EventInput{EventType: model.TypeMeeting})

		_, err := m.Transition(context.Background(), event.ID, model.StatusCompleted)
		require.NoError(t, err)
		assert.Empty(t, finalizer.finalized)
	})

	t.Run("consultation without session link", func(t *testing.T) {
		s := newTestStore(t)
		finalizer := &fakeFinalizer{}
		m := NewManager(s, finalizer)
		clientID := int64(1)
		event := createEvent(t, s, store.EventInput{
			Title:     "咨询",
			EventType: model.TypeConsultation,
			ClientID:  &clientID,
		})

		_, err := m.Transition(context.Background(), event.ID, model.StatusCompleted)
		require.NoError(t, err)
		assert.Empty(t, finalizer.finalized)
	})

	t.Run("cancellation never finalizes", func(t *testing.T) {
		s := newTestStore(t)
		finalizer := &fakeFinalizer{}
		m := NewManager(s, finalizer)
		clientID := int64(1)
		sessionID := int64(7)
		event := createEvent(t, s, store.EventInput{
			Title:     "咨询",
			EventType: model.TypeConsultation,
			ClientID:  &clientID,
			SessionID: &sessionID,
		})

		_, err := m.Transition(context.Background(), event.ID, model.StatusCancelled)
		require.NoError(t, err)
		assert.Empty(t, finalizer.finalized)
	})
}

func TestTransitionFinalizerFailureSurfaces(t *testing.T) {
	s := newTestStore(t)
	finalizer := &fakeFinalizer{err: fmt.Errorf("session store down")}
	m := NewManager(s, finalizer)

	clientID := int64(1)
	sessionID := int64(5)
	event := createEvent(t, s, store.EventInput{
		Title:     "咨询",
		EventType: model.TypeConsultation,
		ClientID:  &clientID,
		SessionID: &sessionID,
	})

	_, err := m.Transition(context.Background(), event.ID, model.StatusCompleted)
	require.Error(t, err)
	assert.ErrorContains(t, err, "session store down")
}
