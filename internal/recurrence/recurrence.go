package recurrence

import (
	"time"

	"github.com/lu123321/counseling-app/internal/apperr"
)

// Frequency identifies the repetition pattern of a Rule.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// Rule describes how an event repeats. Exactly one variant applies,
// selected by Frequency: weekly rules carry a non-empty Weekdays set,
// monthly rules carry MonthDay.
type Rule struct {
	Frequency Frequency
	// Weekdays is the set of weekdays a weekly rule fires on.
	Weekdays []time.Weekday
	// MonthDay is the day of month (1-31) a monthly rule fires on.
	// Months shorter than MonthDay are skipped entirely.
	MonthDay int
	// Until is the inclusive last date occurrences may fall on.
	// Nil means unbounded; callers cap expansion to their window.
	Until *time.Time
}

// Occurrence is one concrete instance of an event within a window.
// Start carries the base event's time of day applied to Date; End
// preserves the base event's duration.
type Occurrence struct {
	Date  time.Time
	Start time.Time
	End   time.Time
}

// Expand projects a rule onto the inclusive date window
// [windowStart, windowEnd]. A nil rule yields the single base span if it
// intersects the window. The result is ordered ascending by date and is
// deterministic for identical inputs.
func Expand(rule *Rule, baseStart, baseEnd, windowStart, windowEnd time.Time) ([]Occurrence, error) {
	if !baseEnd.After(baseStart) {
		return nil, &apperr.ValidationError{Field: "endTime", Value: baseEnd, Reason: "must be after start time"}
	}
	if windowEnd.Before(windowStart) {
		return nil, &apperr.ValidationError{Field: "window", Value: windowStart, Reason: "window start is after window end"}
	}

	loc := baseStart.Location()
	winFrom := dateOf(windowStart.In(loc))
	winTo := dateOf(windowEnd.In(loc))

	if rule == nil {
		// Single occurrence: include it when the base span overlaps the window.
		if baseStart.Before(winTo.AddDate(0, 0, 1)) && baseEnd.After(winFrom) {
			return []Occurrence{{Date: dateOf(baseStart), Start: baseStart, End: baseEnd}}, nil
		}
		return nil, nil
	}

	// Occurrences never start before the base event's own first date,
	// and never after the rule's inclusive until date.
	from := winFrom
	if first := dateOf(baseStart); first.After(from) {
		from = first
	}
	to := winTo
	if rule.Until != nil {
		if until := dateOf(rule.Until.In(loc)); until.Before(to) {
			to = until
		}
	}
	if to.Before(from) {
		return nil, nil
	}

	duration := baseEnd.Sub(baseStart)
	hour, min, sec := baseStart.Clock()

	occurrenceAt := func(date time.Time) Occurrence {
		start := time.Date(date.Year(), date.Month(), date.Day(), hour, min, sec, 0, loc)
		return Occurrence{Date: date, Start: start, End: start.Add(duration)}
	}

	var out []Occurrence
	switch rule.Frequency {
	case FreqDaily:
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			out = append(out, occurrenceAt(d))
		}
	case FreqWeekly:
		if len(rule.Weekdays) == 0 {
			return nil, &apperr.ValidationError{Field: "weekDays", Value: rule.Weekdays, Reason: "weekly recurrence requires at least one weekday"}
		}
		days := weekdaySet(rule.Weekdays)
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if days[d.Weekday()] {
				out = append(out, occurrenceAt(d))
			}
		}
	case FreqMonthly:
		if rule.MonthDay < 1 || rule.MonthDay > 31 {
			return nil, &apperr.ValidationError{Field: "monthDay", Value: rule.MonthDay, Reason: "day of month must be between 1 and 31"}
		}
		for y, m := from.Year(), from.Month(); ; {
			if rule.MonthDay <= daysIn(y, m, loc) {
				d := time.Date(y, m, rule.MonthDay, 0, 0, 0, 0, loc)
				if d.After(to) {
					break
				}
				if !d.Before(from) {
					out = append(out, occurrenceAt(d))
				}
			} else if time.Date(y, m, 1, 0, 0, 0, 0, loc).After(to) {
				break
			}
			if m == time.December {
				y, m = y+1, time.January
			} else {
				m++
			}
		}
	default:
		return nil, &apperr.ValidationError{Field: "frequency", Value: string(rule.Frequency), Reason: "unknown recurrence frequency"}
	}
	return out, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func weekdaySet(days []time.Weekday) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}
