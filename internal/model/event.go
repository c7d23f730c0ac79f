package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/lu123321/counseling-app/internal/recurrence"
)

// EventType classifies a schedule entry. Values match the numeric codes
// used by the mini-program client.
type EventType int

const (
	TypeConsultation  EventType = 1
	TypeSupervision   EventType = 2
	TypeReportWriting EventType = 3
	TypeTraining      EventType = 4
	TypeMeeting       EventType = 5
	TypeRest          EventType = 6
	TypeOther         EventType = 7
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t >= TypeConsultation && t <= TypeOther
}

func (t EventType) String() string {
	switch t {
	case TypeConsultation:
		return "consultation"
	case TypeSupervision:
		return "supervision"
	case TypeReportWriting:
		return "report_writing"
	case TypeTraining:
		return "training"
	case TypeMeeting:
		return "meeting"
	case TypeRest:
		return "rest"
	case TypeOther:
		return "other"
	}
	return "unknown"
}

// EventStatus is the lifecycle state of an event.
type EventStatus int

const (
	StatusPending    EventStatus = 1
	StatusCompleted  EventStatus = 2
	StatusCancelled  EventStatus = 3
	StatusInProgress EventStatus = 4
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	return s >= StatusPending && s <= StatusInProgress
}

// Terminal reports whether no further transitions are allowed out of s.
func (s EventStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s EventStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusInProgress:
		return "in_progress"
	}
	return "unknown"
}

// ReminderPolicy is the lead-time rule for reminder notifications.
// Values match the remind type codes of the mini-program client.
type ReminderPolicy int

const (
	RemindNone      ReminderPolicy = 1
	RemindAtStart   ReminderPolicy = 2
	RemindMinutes5  ReminderPolicy = 3
	RemindMinutes15 ReminderPolicy = 4
	RemindMinutes30 ReminderPolicy = 5
	RemindHour1     ReminderPolicy = 6
	RemindDay1      ReminderPolicy = 7
)

// Lead returns how long before an occurrence start the reminder fires.
// ok is false when the policy never fires.
func (p ReminderPolicy) Lead() (lead time.Duration, ok bool) {
	switch p {
	case RemindAtStart:
		return 0, true
	case RemindMinutes5:
		return 5 * time.Minute, true
	case RemindMinutes15:
		return 15 * time.Minute, true
	case RemindMinutes30:
		return 30 * time.Minute, true
	case RemindHour1:
		return time.Hour, true
	case RemindDay1:
		return 24 * time.Hour, true
	}
	return 0, false
}

// Valid reports whether p is a known reminder policy.
func (p ReminderPolicy) Valid() bool {
	return p >= RemindNone && p <= RemindDay1
}

// Event is a persisted schedule entry, possibly recurring. It is the
// single source of truth for everything the calendar displays; derived
// occurrences are never stored.
type Event struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	Title       string      `gorm:"size:256;not null" json:"title"`
	EventType   EventType   `gorm:"not null;index" json:"scheduleType"`
	StartAt     time.Time   `gorm:"not null;index" json:"startTime"`
	EndAt       time.Time   `gorm:"not null" json:"endTime"`
	Location    string      `gorm:"size:256" json:"location,omitempty"`
	Description string      `gorm:"size:2048" json:"description,omitempty"`
	Color       string      `gorm:"size:16" json:"color,omitempty"`
	Status      EventStatus `gorm:"not null;default:1" json:"status"`

	RemindPolicy  ReminderPolicy `gorm:"not null;default:1" json:"remindType"`
	ReminderFired bool           `gorm:"not null;default:false" json:"reminderFired"`

	// Recurrence rule columns; an empty frequency means a single occurrence.
	RecurFrequency string     `gorm:"size:16" json:"recurringType,omitempty"`
	RecurWeekdays  string     `gorm:"size:32" json:"recurringDays,omitempty"`
	RecurMonthDay  int        `json:"recurringDayOfMonth,omitempty"`
	RecurUntil     *time.Time `json:"recurringEndDate,omitempty"`

	// Present only for consultation-type events.
	ClientID  *int64 `gorm:"index" json:"clientId,omitempty"`
	SessionID *int64 `gorm:"index" json:"sessionId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Recurring reports whether the event carries a recurrence rule.
func (e *Event) Recurring() bool { return e.RecurFrequency != "" }

// Recurrence maps the persisted rule columns onto a recurrence.Rule,
// or nil for a single-occurrence event.
func (e *Event) Recurrence() *recurrence.Rule {
	if !e.Recurring() {
		return nil
	}
	return &recurrence.Rule{
		Frequency: recurrence.Frequency(e.RecurFrequency),
		Weekdays:  ParseWeekdays(e.RecurWeekdays),
		MonthDay:  e.RecurMonthDay,
		Until:     e.RecurUntil,
	}
}

// WeekdaysCSV serializes a weekday set for the RecurWeekdays column,
// 0=Sunday through 6=Saturday.
func WeekdaysCSV(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

// ParseWeekdays is the inverse of WeekdaysCSV. Malformed entries are
// dropped rather than failing the read path.
func ParseWeekdays(csv string) []time.Weekday {
	if csv == "" {
		return nil
	}
	var days []time.Weekday
	for _, p := range strings.Split(csv, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, time.Weekday(n))
	}
	return days
}
