package calendar

import "time"

// GridSize is the fixed number of cells in a month grid: six full
// Sunday-first weeks, including overhang days of the adjacent months.
const GridSize = 42

// Day is one cell of a month grid.
type Day struct {
	Date            time.Time `json:"date"`
	DayOfMonth      int       `json:"day"`
	InTargetMonth   bool      `json:"isCurrentMonth"`
	IsToday         bool      `json:"isToday"`
	OccurrenceCount int       `json:"scheduleCount"`
}

// BuildGrid returns the 42-cell grid for the given month. The caller
// supplies "now" so today marking stays deterministic under test; the
// grid knows nothing about events and every OccurrenceCount starts at 0.
func BuildGrid(year int, month time.Month, now time.Time) []Day {
	loc := now.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	// Rewind to the Sunday on or before the 1st.
	start := first.AddDate(0, 0, -int(first.Weekday()))

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	grid := make([]Day, GridSize)
	for i := range grid {
		d := start.AddDate(0, 0, i)
		grid[i] = Day{
			Date:          d,
			DayOfMonth:    d.Day(),
			InTargetMonth: d.Month() == month && d.Year() == year,
			IsToday:       d.Equal(today),
		}
	}
	return grid
}
