package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lu123321/counseling-app/internal/apperr"
	"github.com/lu123321/counseling-app/internal/model"
	"github.com/lu123321/counseling-app/internal/recurrence"
)

// EventStore defines the persistence operations over event records.
// Events are the only persisted truth of the calendar engine; derived
// views are always recomputed from what this interface returns.
type EventStore interface {
	DB() *gorm.DB
	Create(ctx context.Context, input EventInput) (*model.Event, error)
	Update(ctx context.Context, id int64, patch EventPatch) (*model.Event, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.Event, error)
	// ListInRange returns every event whose occurrences could intersect
	// the inclusive window. Callers run the recurrence expander on the
	// result; nothing is pre-expanded.
	ListInRange(ctx context.Context, windowStart, windowEnd time.Time) ([]model.Event, error)
}

// gormStore implements EventStore using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed event store.
func NewGormStore(db *gorm.DB) EventStore {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

func (s *gormStore) Create(ctx context.Context, input EventInput) (*model.Event, error) {
	event := &model.Event{
		Title:        input.Title,
		EventType:    input.EventType,
		StartAt:      input.StartAt,
		EndAt:        input.EndAt,
		Location:     input.Location,
		Description:  input.Description,
		Color:        input.Color,
		Status:       model.StatusPending,
		RemindPolicy: input.RemindPolicy,
		ClientID:     input.ClientID,
		SessionID:    input.SessionID,
	}
	if event.RemindPolicy == 0 {
		event.RemindPolicy = model.RemindNone
	}
	applyRule(event, input.Recurrence)

	if err := validate(event, input.ClientFacing); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, &apperr.StorageError{Op: "create event", Err: err}
	}
	return event, nil
}

func (s *gormStore) Update(ctx context.Context, id int64, patch EventPatch) (*model.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merge(event, patch)

	// Updates keep the client-facing requirement an existing link implies.
	if err := validate(event, event.ClientID != nil); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(event).Error; err != nil {
		return nil, &apperr.StorageError{Op: "update event", Err: err}
	}
	return event, nil
}

// Delete removes an event and, implicitly, all of its derived
// occurrences. Deleting a nonexistent id is a no-op success since
// views may be recomputed after the record is already gone.
func (s *gormStore) Delete(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&model.Event{}, id).Error; err != nil {
		return &apperr.StorageError{Op: "delete event", Err: err}
	}
	return nil
}

func (s *gormStore) Get(ctx context.Context, id int64) (*model.Event, error) {
	var event model.Event
	err := s.db.WithContext(ctx).First(&event, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.NotFoundError{Resource: "event", ID: id}
	}
	if err != nil {
		return nil, &apperr.StorageError{Op: "get event", Err: err}
	}
	return &event, nil
}

func (s *gormStore) ListInRange(ctx context.Context, windowStart, windowEnd time.Time) ([]model.Event, error) {
	windowEndExcl := windowEnd.AddDate(0, 0, 1)

	var events []model.Event
	err := s.db.WithContext(ctx).
		Where(
			s.db.Where("recur_frequency = ?", "").Where("start_at < ? AND end_at > ?", windowEndExcl, windowStart).
				Or(s.db.Where("recur_frequency <> ?", "").Where("start_at < ? AND (recur_until IS NULL OR recur_until >= ?)", windowEndExcl, windowStart.AddDate(0, 0, -1))),
		).
		Order("start_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, &apperr.StorageError{Op: "list events in range", Err: err}
	}
	return events, nil
}

func applyRule(event *model.Event, rule *recurrence.Rule) {
	if rule == nil {
		event.RecurFrequency = ""
		event.RecurWeekdays = ""
		event.RecurMonthDay = 0
		event.RecurUntil = nil
		return
	}
	event.RecurFrequency = string(rule.Frequency)
	event.RecurWeekdays = model.WeekdaysCSV(rule.Weekdays)
	event.RecurMonthDay = rule.MonthDay
	event.RecurUntil = rule.Until
}

func merge(event *model.Event, patch EventPatch) {
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.EventType != nil {
		event.EventType = *patch.EventType
	}
	if patch.StartAt != nil {
		event.StartAt = *patch.StartAt
	}
	if patch.EndAt != nil {
		event.EndAt = *patch.EndAt
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Color != nil {
		event.Color = *patch.Color
	}
	if patch.Status != nil {
		event.Status = *patch.Status
	}
	if patch.RemindPolicy != nil {
		event.RemindPolicy = *patch.RemindPolicy
	}
	if patch.ReminderFired != nil {
		event.ReminderFired = *patch.ReminderFired
	}
	if patch.Recurrence != nil {
		applyRule(event, patch.Recurrence)
	} else if patch.ClearRecurrence {
		applyRule(event, nil)
	}
	if patch.ClientID != nil {
		event.ClientID = patch.ClientID
	} else if patch.ClearClient {
		event.ClientID = nil
	}
	if patch.SessionID != nil {
		event.SessionID = patch.SessionID
	}
}

// validate checks the invariants of a merged event record.
func validate(event *model.Event, clientFacing bool) error {
	if event.Title == "" {
		return &apperr.ValidationError{Field: "title", Value: event.Title, Reason: "title is required"}
	}
	if !event.EventType.Valid() {
		return &apperr.ValidationError{Field: "scheduleType", Value: int(event.EventType), Reason: "unknown event type"}
	}
	if !event.EndAt.After(event.StartAt) {
		return &apperr.ValidationError{Field: "endTime", Value: event.EndAt, Reason: "must be after start time"}
	}
	if !event.Status.Valid() {
		return &apperr.ValidationError{Field: "status", Value: int(event.Status), Reason: "unknown status"}
	}
	if !event.RemindPolicy.Valid() {
		return &apperr.ValidationError{Field: "remindType", Value: int(event.RemindPolicy), Reason: "unknown reminder policy"}
	}
	if event.Recurring() {
		switch recurrence.Frequency(event.RecurFrequency) {
		case recurrence.FreqDaily:
		case recurrence.FreqWeekly:
			if len(model.ParseWeekdays(event.RecurWeekdays)) == 0 {
				return &apperr.ValidationError{Field: "recurringDays", Value: event.RecurWeekdays, Reason: "weekly recurrence requires at least one weekday"}
			}
		case recurrence.FreqMonthly:
			if event.RecurMonthDay < 1 || event.RecurMonthDay > 31 {
				return &apperr.ValidationError{Field: "recurringDayOfMonth", Value: event.RecurMonthDay, Reason: "day of month must be between 1 and 31"}
			}
		default:
			return &apperr.ValidationError{Field: "recurringType", Value: event.RecurFrequency, Reason: "unknown recurrence frequency"}
		}
	}
	if event.EventType == model.TypeConsultation && clientFacing && event.ClientID == nil {
		return &apperr.ValidationError{Field: "clientId", Value: nil, Reason: "client-facing consultation requires a linked client"}
	}
	if event.EventType != model.TypeConsultation && (event.ClientID != nil || event.SessionID != nil) {
		return &apperr.ValidationError{Field: "clientId", Value: event.ClientID, Reason: "client and session links are only valid for consultations"}
	}
	return nil
}
