package view

import (
	"context"
	"sort"
	"time"

	"github.com/lu123321/counseling-app/internal/calendar"
	"github.com/lu123321/counseling-app/internal/model"
	"github.com/lu123321/counseling-app/internal/recurrence"
	"github.com/lu123321/counseling-app/internal/store"
)

// TypeAll disables event-type filtering.
const TypeAll model.EventType = 0

// Occurrence is one concrete instance of an event projected onto a
// date, flattened with the fields the schedule screens display. It is
// derived on every request and never persisted.
type Occurrence struct {
	EventID         int64              `json:"eventId"`
	Title           string             `json:"title"`
	EventType       model.EventType    `json:"scheduleType"`
	Status          model.EventStatus  `json:"status"`
	Date            string             `json:"date"`
	StartAt         time.Time          `json:"startTime"`
	EndAt           time.Time          `json:"endTime"`
	DurationMinutes int                `json:"duration"`
	Location        string             `json:"location,omitempty"`
	Color           string             `json:"color,omitempty"`
	Recurring       bool               `json:"isRecurring"`
	ClientID        *int64             `json:"clientId,omitempty"`
	// ClientName is filled by the presentation layer through the client
	// directory; the view service itself never reads client records.
	ClientName string `json:"clientName,omitempty"`
	SessionID  *int64 `json:"sessionId,omitempty"`
}

// Service composes the grid builder, the event store and the
// recurrence expander into the month and day views the presentation
// layer consumes.
type Service struct {
	store store.EventStore
	loc   *time.Location
}

// NewService creates a view service operating in the practice timezone.
func NewService(s store.EventStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: s, loc: loc}
}

// MonthView returns the 42-cell grid for the month with occurrence
// counts folded in. Counts cover the full grid window, overhang days
// included. Recomputed from the store on every call; two calls with no
// intervening writes yield identical output.
func (s *Service) MonthView(ctx context.Context, year int, month time.Month, typeFilter model.EventType, now time.Time) ([]calendar.Day, error) {
	grid := calendar.BuildGrid(year, month, now.In(s.loc))
	windowStart := grid[0].Date
	windowEnd := grid[calendar.GridSize-1].Date

	occurrences, err := s.expandWindow(ctx, windowStart, windowEnd, typeFilter)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, occ := range occurrences {
		counts[occ.Date]++
	}
	for i := range grid {
		grid[i].OccurrenceCount = counts[grid[i].Date.Format("2006-01-02")]
	}
	return grid, nil
}

// DayView returns the occurrences falling on one date, ordered by
// start time ascending with event ID as the deterministic tie-breaker.
func (s *Service) DayView(ctx context.Context, date time.Time, typeFilter model.EventType) ([]Occurrence, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
	occurrences, err := s.expandWindow(ctx, day, day, typeFilter)
	if err != nil {
		return nil, err
	}
	if occurrences == nil {
		occurrences = []Occurrence{}
	}
	return occurrences, nil
}

func (s *Service) expandWindow(ctx context.Context, windowStart, windowEnd time.Time, typeFilter model.EventType) ([]Occurrence, error) {
	events, err := s.store.ListInRange(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	for i := range events {
		event := &events[i]
		if typeFilter != TypeAll && event.EventType != typeFilter {
			continue
		}
		expanded, err := recurrence.Expand(event.Recurrence(), event.StartAt.In(s.loc), event.EndAt.In(s.loc), windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		for _, occ := range expanded {
			out = append(out, flatten(event, occ))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].EventID < out[j].EventID
	})
	return out, nil
}

func flatten(event *model.Event, occ recurrence.Occurrence) Occurrence {
	return Occurrence{
		EventID:         event.ID,
		Title:           event.Title,
		EventType:       event.EventType,
		Status:          event.Status,
		Date:            occ.Date.Format("2006-01-02"),
		StartAt:         occ.Start,
		EndAt:           occ.End,
		DurationMinutes: int(occ.End.Sub(occ.Start).Minutes()),
		Location:        event.Location,
		Color:           event.Color,
		Recurring:       event.Recurring(),
		ClientID:        event.ClientID,
		SessionID:       event.SessionID,
	}
}
