package billing

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAnchorDay is returned when a billing anchor day falls outside 1..31.
var ErrInvalidAnchorDay = errors.New("billing anchor day must be within 1..31")

// Window is the half-open time interval [Start, End) of one billing cycle.
// It is derived from the meter's anchor day and the current instant, never
// persisted.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CurrentWindow computes the active billing cycle for the given anchor day at
// the instant now. The anchor day is interpreted as the utility's reading date
// each month; when a month is too short (the 31st in February) the final day
// of that month is used instead, so every month has exactly one well-defined
// cycle. The cycle ends one calendar month after it starts, clamped the same
// way.
func CurrentWindow(anchorDay int, now time.Time) (Window, error) {
	if anchorDay < 1 || anchorDay > 31 {
		return Window{}, fmt.Errorf("%w: got %d", ErrInvalidAnchorDay, anchorDay)
	}

	zone := now.Location()
	today := midnight(now)
	start := resolveCycleStart(today, anchorDay)
	end := plusOneMonth(start)

	return Window{Start: start.In(zone), End: end.In(zone)}, nil
}

func resolveCycleStart(today time.Time, anchorDay int) time.Time {
	anchorThisMonth := clampedDate(today.Year(), today.Month(), anchorDay, today.Location())
	if !anchorThisMonth.After(today) {
		return anchorThisMonth
	}
	prevYear, prevMonth := previousMonth(today.Year(), today.Month())
	return clampedDate(prevYear, prevMonth, anchorDay, today.Location())
}

// plusOneMonth adds a calendar month keeping the day-of-month, clamping to
// the target month's length. Go's AddDate would normalize Jan 31 + 1 month to
// Mar 2/3, which is not the billing semantics we want.
func plusOneMonth(d time.Time) time.Time {
	year, month := d.Year(), d.Month()
	if month == time.December {
		year, month = year+1, time.January
	} else {
		month++
	}
	return clampedDate(year, month, d.Day(), d.Location())
}

func previousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if max := daysInMonth(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
