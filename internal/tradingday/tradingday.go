// Package tradingday defines the calendar day used for daily risk counters.
// Crypto markets never close, so the only boundary is local midnight.
package tradingday

import (
	"fmt"
	"time"
)

// Today returns midnight of now's date in loc.
func Today(loc *time.Location, now time.Time) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// After reports whether b falls on a later calendar day than a in loc.
func After(loc *time.Location, a, b time.Time) bool {
	return Today(loc, b).After(Today(loc, a))
}

// Key returns the YYYY-MM-DD key of now's date in loc.
func Key(loc *time.Location, now time.Time) string {
	return Today(loc, now).Format("2006-01-02")
}

// NextReset returns the next midnight after now in loc.
func NextReset(loc *time.Location, now time.Time) time.Time {
	return Today(loc, now).AddDate(0, 0, 1)
}

// LoadLocation resolves a timezone name. "" and "Local" return time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
