// Package window computes calendar-day time windows in a given time zone,
// used to bound history queries to a single local day.
package window

import (
	"fmt"
	"time"
)

// DateLayout is the accepted date format.
const DateLayout = "2006-01-02"

// Window is a closed time interval in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// Day returns the window covering date (YYYY-MM-DD) from local midnight to
// the last nanosecond before the next local midnight. Days with a DST
// transition are 23 or 25 hours long.
func Day(date string, loc *time.Location) (Window, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid date: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	next := start.AddDate(0, 0, 1)
	return Window{
		Start: start.UTC(),
		End:   next.Add(-time.Nanosecond).UTC(),
	}, nil
}

// Today returns the window of the local day containing now.
func Today(now time.Time, loc *time.Location) Window {
	w, _ := Day(now.In(loc).Format(DateLayout), loc)
	return w
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
