// Package timeutil provides the injected clock and calendar used by the
// progression engine. Day, week, and month boundaries are always computed
// against a configured location, never against the raw system clock, so
// streak and leaderboard-window decisions are identical no matter which
// process evaluates them.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Clock
// ═══════════════════════════════════════════════════════════════════════════

// Clock supplies the current time. Production code uses SystemClock; tests
// inject a FixedClock to pin "today".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now returns the current system time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.T
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now invokes the wrapped function.
func (f ClockFunc) Now() time.Time {
	return f()
}

// ═══════════════════════════════════════════════════════════════════════════
// Calendar
// ═══════════════════════════════════════════════════════════════════════════

// Calendar resolves calendar boundaries (day, ISO week, month) in a single
// configured location. All streak continuity and leaderboard-window math
// goes through one Calendar instance.
type Calendar struct {
	loc *time.Location
}

// NewCalendar creates a Calendar for the given location. A nil location
// defaults to UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// UTC returns a Calendar operating in UTC.
func UTC() Calendar {
	return NewCalendar(time.UTC)
}

// Location returns the calendar's location.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DateOf truncates a time to its calendar date (midnight) in the calendar's
// location.
func (c Calendar) DateOf(t time.Time) time.Time {
	local := t.In(c.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location())
}

// StartOfDay returns the start of the day (00:00:00) containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	return c.DateOf(t)
}

// EndOfDay returns the last nanosecond of the day containing t.
func (c Calendar) EndOfDay(t time.Time) time.Time {
	return c.DateOf(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfWeek returns Monday 00:00:00 of the ISO week containing t.
func (c Calendar) StartOfWeek(t time.Time) time.Time {
	day := c.DateOf(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// EndOfWeek returns the last nanosecond of the ISO week containing t.
func (c Calendar) EndOfWeek(t time.Time) time.Time {
	return c.StartOfWeek(t).AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// StartOfMonth returns the first day of the month containing t.
func (c Calendar) StartOfMonth(t time.Time) time.Time {
	local := t.In(c.Location())
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, c.Location())
}

// EndOfMonth returns the last nanosecond of the month containing t.
func (c Calendar) EndOfMonth(t time.Time) time.Time {
	return c.StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// IsSameDay checks whether two times fall on the same calendar date.
func (c Calendar) IsSameDay(t1, t2 time.Time) bool {
	a, b := t1.In(c.Location()), t2.In(c.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysBetween returns the number of whole calendar days from t1 to t2.
// Negative when t2 precedes t1. Both dates are re-anchored to UTC midnight
// before subtracting: local days shortened or stretched by a DST shift must
// still count as exactly one calendar day.
func (c Calendar) DaysBetween(t1, t2 time.Time) int {
	a := t1.In(c.Location())
	b := t2.In(c.Location())
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

// IsYesterdayOf checks whether candidate is exactly the day before reference.
func (c Calendar) IsYesterdayOf(candidate, reference time.Time) bool {
	return c.DaysBetween(candidate, reference) == 1
}

// ═══════════════════════════════════════════════════════════════════════════
// Window keys
// ═══════════════════════════════════════════════════════════════════════════

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatMonth is the month key format (YYYY-MM).
	FormatMonth = "2006-01"
)

// DateKey formats a time as its canonical date key (YYYY-MM-DD).
func (c Calendar) DateKey(t time.Time) string {
	return c.DateOf(t).Format(FormatDate)
}

// WeekKey formats a time as its ISO week key (e.g. "2026-W36").
func (c Calendar) WeekKey(t time.Time) string {
	year, week := t.In(c.Location()).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey formats a time as its month key (e.g. "2026-08").
func (c Calendar) MonthKey(t time.Time) string {
	return t.In(c.Location()).Format(FormatMonth)
}

// ParseDate parses a date key (YYYY-MM-DD) in the calendar's location.
func (c Calendar) ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, c.Location())
}
