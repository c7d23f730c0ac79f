package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lu123321/counseling-app/internal/model"
)

const dateLayout = "2006-01-02"

// Date parses a calendar date in the client's YYYY-MM-DD format,
// interpreted in the practice timezone.
func Date(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date %q: expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// Month parses year and month query parameters.
func Month(yearRaw, monthRaw string) (int, time.Month, error) {
	year, err := strconv.Atoi(strings.TrimSpace(yearRaw))
	if err != nil || year < 1 {
		return 0, 0, fmt.Errorf("unable to parse year %q", yearRaw)
	}
	month, err := strconv.Atoi(strings.TrimSpace(monthRaw))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("unable to parse month %q", monthRaw)
	}
	return year, time.Month(month), nil
}

// TypeFilter parses the schedule type filter parameter. Empty, "0" and
// "all" select every type.
func TypeFilter(raw string) (model.EventType, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0" || strings.EqualFold(s, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unable to parse type filter %q", raw)
	}
	t := model.EventType(n)
	if !t.Valid() {
		return 0, fmt.Errorf("unknown schedule type %d", n)
	}
	return t, nil
}
