package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

var (
	userA = shared.UserID("11111111-1111-4111-8111-111111111111")
	userB = shared.UserID("22222222-2222-4222-8222-222222222222")
	userC = shared.UserID("33333333-3333-4333-8333-333333333333")
)

func TestWindowKeyAt(t *testing.T) {
	cal := timeutil.UTC()
	// Monday of ISO week 36.
	at := time.Date(2026, time.August, 31, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-W36", WindowWeekly.KeyAt(cal, at))
	assert.Equal(t, "2026-08", WindowMonthly.KeyAt(cal, at))
	assert.Equal(t, "all", WindowAllTime.KeyAt(cal, at))

	// Crossing a boundary produces a fresh key, which is what resets the
	// window counter to zero.
	nextDay := time.Date(2026, time.September, 1, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, "2026-09", WindowMonthly.KeyAt(cal, nextDay))
	assert.Equal(t, "2026-W36", WindowWeekly.KeyAt(cal, nextDay), "Tuesday stays in the same ISO week")
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("weekly")
	require.NoError(t, err)
	assert.Equal(t, WindowWeekly, w)

	_, err = ParseWindow("daily")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestEntryIncrement(t *testing.T) {
	at := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)
	e := Entry{UserID: userA, Window: WindowWeekly, WindowKey: "2026-W36"}

	e.Increment(80, at)
	assert.Equal(t, 80, e.XPInWindow)
	assert.Equal(t, at, e.ReachedAt)

	e.Increment(0, at.Add(time.Hour))
	assert.Equal(t, 80, e.XPInWindow, "non-positive increments are ignored")
	assert.Equal(t, at, e.ReachedAt)
}

func TestRanked_DeterministicTotalOrder(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	entries := []Entry{
		{UserID: userA, XPInWindow: 100, ReachedAt: base.Add(2 * time.Hour)},
		{UserID: userB, XPInWindow: 250, ReachedAt: base},
		{UserID: userC, XPInWindow: 100, ReachedAt: base.Add(time.Hour)},
	}

	ranked := Ranked(entries)

	require.Len(t, ranked, 3)
	assert.Equal(t, userB, ranked[0].UserID)
	assert.Equal(t, Rank(1), ranked[0].Rank)
	// Tie on 100 XP: userC reached the total first.
	assert.Equal(t, userC, ranked[1].UserID)
	assert.Equal(t, userA, ranked[2].UserID)

	// Recomputation over the same data yields the same order.
	again := Ranked(entries)
	assert.Equal(t, ranked, again)
}

func TestRanked_FullTieFallsBackToUserID(t *testing.T) {
	at := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	entries := []Entry{
		{UserID: userB, XPInWindow: 50, ReachedAt: at},
		{UserID: userA, XPInWindow: 50, ReachedAt: at},
	}

	ranked := Ranked(entries)

	assert.Equal(t, userA, ranked[0].UserID)
	assert.Equal(t, userB, ranked[1].UserID)
}

func TestRanked_DoesNotMutateInput(t *testing.T) {
	entries := []Entry{
		{UserID: userA, XPInWindow: 10},
		{UserID: userB, XPInWindow: 20},
	}

	_ = Ranked(entries)

	assert.Equal(t, userA, entries[0].UserID, "input slice order is preserved")
	assert.Equal(t, Rank(0), entries[0].Rank)
}
