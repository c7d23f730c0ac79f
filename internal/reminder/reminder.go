package reminder

import (
	"time"

	"github.com/lu123321/counseling-app/internal/model"
)

// At returns the instant a reminder for the given policy fires relative
// to an occurrence start. ok is false for policies that never fire.
func At(policy model.ReminderPolicy, occurrenceStart time.Time) (t time.Time, ok bool) {
	lead, ok := policy.Lead()
	if !ok {
		return time.Time{}, false
	}
	return occurrenceStart.Add(-lead), true
}

// Next computes the next reminder-fire instant for one occurrence of an
// event, or reports none. A reminder is pending only while its fire
// instant is still in the future and no reminder has been dispatched
// for the occurrence. The scheduler never mutates state; the
// notification collaborator marks ReminderFired through the event store
// once it delivers.
func Next(event *model.Event, occurrenceStart, now time.Time) (t time.Time, ok bool) {
	if event.ReminderFired {
		return time.Time{}, false
	}
	t, ok = At(event.RemindPolicy, occurrenceStart)
	if !ok || !t.After(now) {
		return time.Time{}, false
	}
	return t, true
}

// Due reports whether a reminder should be dispatched right now: the
// fire instant has been reached, the occurrence is not yet over, and
// nothing has been dispatched for it. The window runs to the occurrence
// end rather than its start so an at-start reminder, whose fire instant
// equals the start, still goes out on the first scan after the
// occurrence begins. This is the predicate the periodic scanner
// evaluates.
func Due(event *model.Event, occurrenceStart, now time.Time) bool {
	if event.ReminderFired {
		return false
	}
	t, ok := At(event.RemindPolicy, occurrenceStart)
	if !ok || t.After(now) {
		return false
	}
	end := occurrenceStart.Add(event.EndAt.Sub(event.StartAt))
	return end.After(now)
}
