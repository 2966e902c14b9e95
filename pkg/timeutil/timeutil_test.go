package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalendar_DayBoundaries(t *testing.T) {
	cal := UTC()
	ts := time.Date(2026, 8, 31, 17, 42, 9, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), cal.StartOfDay(ts))
	assert.True(t, cal.EndOfDay(ts).Before(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cal.IsSameDay(ts, cal.StartOfDay(ts)))
	assert.False(t, cal.IsSameDay(ts, ts.AddDate(0, 0, 1)))
}

func TestCalendar_WeekStartsMonday(t *testing.T) {
	cal := UTC()

	// 2026-08-31 is a Monday.
	monday := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 9, 6, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), cal.StartOfWeek(monday))
	assert.Equal(t, cal.StartOfWeek(monday), cal.StartOfWeek(sunday))
	assert.Equal(t, cal.WeekKey(monday), cal.WeekKey(sunday))
	assert.NotEqual(t, cal.WeekKey(sunday), cal.WeekKey(sunday.AddDate(0, 0, 1)))
}

func TestCalendar_DaysBetween(t *testing.T) {
	cal := UTC()

	tests := []struct {
		name string
		t1   time.Time
		t2   time.Time
		want int
	}{
		{"same day", time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC), 0},
		{"next day", time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC), time.Date(2026, 9, 1, 0, 30, 0, 0, time.UTC), 1},
		{"three days", time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC), 3},
		{"backwards", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.DaysBetween(tt.t1, tt.t2))
		})
	}
}

func TestCalendar_DaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	cal := NewCalendar(loc)

	// 2026-03-08 is the US spring-forward date (a 23-hour local day);
	// 2026-11-01 is fall-back (25 hours). Adjacent dates must still count
	// as one day in both directions.
	springA := time.Date(2026, 3, 8, 12, 0, 0, 0, loc)
	springB := time.Date(2026, 3, 9, 12, 0, 0, 0, loc)
	assert.Equal(t, 1, cal.DaysBetween(springA, springB))
	assert.Equal(t, -1, cal.DaysBetween(springB, springA))
	assert.True(t, cal.IsYesterdayOf(springA, springB))

	fallA := time.Date(2026, 11, 1, 12, 0, 0, 0, loc)
	fallB := time.Date(2026, 11, 2, 12, 0, 0, 0, loc)
	assert.Equal(t, 1, cal.DaysBetween(fallA, fallB))

	// A two-day span containing the transition stays a two-day span.
	assert.Equal(t, 2, cal.DaysBetween(springA, time.Date(2026, 3, 10, 0, 0, 0, 0, loc)))
}

func TestCalendar_WindowKeys(t *testing.T) {
	cal := UTC()
	ts := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-08-31", cal.DateKey(ts))
	assert.Equal(t, "2026-08", cal.MonthKey(ts))
	assert.Equal(t, "2026-W36", cal.WeekKey(ts))

	parsed, err := cal.ParseDate("2026-08-31")
	assert.NoError(t, err)
	assert.Equal(t, cal.DateOf(ts), parsed)
}

func TestFixedClock(t *testing.T) {
	instant := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var clock Clock = FixedClock{T: instant}

	assert.Equal(t, instant, clock.Now())
	assert.Equal(t, instant, clock.Now())
}
