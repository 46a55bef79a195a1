// Package timeutil supplies the simulated-time anchor and the
// business-hours predicate the generator consults throughout a run. All
// timestamps are UTC; the generator never interprets a local timezone
// (spec §4.3).
package timeutil

import "time"

// BusinessHours is a single, run-wide [Start, End) window, in UTC
// clock-of-day terms, applied uniformly regardless of which location an
// event occurs at (the spec explicitly excludes per-site calendrical
// realism beyond per-day scheduling).
type BusinessHours struct {
	Start time.Duration // offset from UTC midnight, e.g. 9*time.Hour
	End   time.Duration
}

// DefaultBusinessHours is 09:00-17:00 UTC, the window orchestrator.Run
// uses for every run (no configuration key changes it).
var DefaultBusinessHours = BusinessHours{Start: 9 * time.Hour, End: 17 * time.Hour}

// IsBusinessHours reports whether t's UTC clock-of-day falls within the
// window. The window is a consistent, implementation-defined predicate
// within a run, per spec §4.3; it does not model per-location hours.
func (b BusinessHours) IsBusinessHours(t time.Time) bool {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := t.Sub(midnight)
	return offset >= b.Start && offset < b.End
}

// StartOfDay returns the UTC midnight that begins t's calendar day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// AtClock returns the UTC instant on day's calendar date at the given
// clock-of-day offset from midnight.
func AtClock(day time.Time, offset time.Duration) time.Time {
	return StartOfDay(day).Add(offset)
}

// Clock is a simulated-time anchor: the current simulated day, set once by
// NewClock and stepped one calendar day at a time by Advance. It never
// reads wall-clock time (spec §4.4's "wall-clock time is never consulted
// during scheduling"). orchestrator.Run does not use Clock; it derives
// each day's anchor from its own start argument.
type Clock struct {
	day time.Time
}

// NewClock creates a Clock anchored at the given UTC start date (only the
// calendar date is significant; time-of-day is truncated to midnight).
func NewClock(start time.Time) *Clock {
	return &Clock{day: StartOfDay(start)}
}

// Day returns the current simulated calendar day (UTC midnight).
func (c *Clock) Day() time.Time { return c.day }

// Advance moves the simulated clock forward by one calendar day.
func (c *Clock) Advance() {
	c.day = c.day.AddDate(0, 0, 1)
}
