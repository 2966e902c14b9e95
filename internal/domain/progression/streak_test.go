package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

const testUserID = shared.UserID("5f3e8a92-1b4c-4d6e-9f0a-2c8b7d5e4a31")

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func newTestProgression() *UserProgression {
	return NewUserProgression(testUserID, day(2026, time.August, 1))
}

func TestAdvanceStreak_FirstActivity(t *testing.T) {
	cal := timeutil.UTC()
	p := newTestProgression()

	update := p.AdvanceStreak(cal, day(2026, time.August, 30))

	assert.True(t, update.Extended)
	assert.Equal(t, 1, p.StreakCurrent)
	assert.Equal(t, 1, p.StreakLongest)
}

func TestAdvanceStreak_SameDayIsNoOp(t *testing.T) {
	cal := timeutil.UTC()
	p := newTestProgression()
	p.AdvanceStreak(cal, day(2026, time.August, 30))

	update := p.AdvanceStreak(cal, day(2026, time.August, 30).Add(5*time.Hour))

	assert.False(t, update.Extended)
	assert.False(t, update.Reset)
	assert.Equal(t, 1, p.StreakCurrent)
}

func TestAdvanceStreak_ConsecutiveDayExtends(t *testing.T) {
	cal := timeutil.UTC()
	p := newTestProgression()
	p.StreakCurrent = 6
	p.StreakLongest = 6
	p.LastActiveDate = cal.DateOf(day(2026, time.August, 30))

	update := p.AdvanceStreak(cal, day(2026, time.August, 31))

	assert.True(t, update.Extended)
	assert.Equal(t, 7, p.StreakCurrent)
	assert.Equal(t, 7, p.StreakLongest, "longest must track current")
}

func TestAdvanceStreak_LongestIsPreservedWhenCurrentLower(t *testing.T) {
	cal := timeutil.UTC()
	p := newTestProgression()
	p.StreakCurrent = 2
	p.StreakLongest = 10
	p.LastActiveDate = cal.DateOf(day(2026, time.August, 30))

	p.AdvanceStreak(cal, day(2026, time.August, 31))

	assert.Equal(t, 3, p.StreakCurrent)
	assert.Equal(t, 10, p.StreakLongest)
}

func TestAdvanceStreak_GapFullyBridgedByFreezes(t *testing.T) {
	cal := timeutil.UTC()
	p := newTestProgression()
	p.StreakCurrent = 5
	p.StreakLongest = 5
	p.StreakFreezes = 3
	p.LastActiveDate = cal.DateOf(day(2026, time.August, 26))

	// Two missed days (27th, 28th), three freezes available.
	update := p.AdvanceStreak(cal, day(2026, time.August, 29))

	assert.True(t, update.Extended)
	assert.Equal(t, 2, update.FreezesConsumed)
	assert.Equal(t, []string{"2026-08-27", "2026-08-28"}, update.BridgedDates)
	assert.Equal(t, 6, p.StreakCurrent, "streak preserved and incremented for today")
	assert.Equal(t, 1, p.StreakFreezes)
}

func TestAdvanceStreak_InsufficientFreezesSpendThenFail(t *testing.T) {
	cal := timeutil.UTC()
	p := newTestProgression()
	p.StreakCurrent = 9
	p.StreakLongest = 9
	p.StreakFreezes = 1
	p.LastActiveDate = cal.DateOf(day(2026, time.August, 26))

	// Three-day gap (27th, 28th missed) with only one freeze: the freeze
	// is consumed in the attempt and the streak restarts.
	update := p.AdvanceStreak(cal, day(2026, time.August, 29))

	assert.True(t, update.Reset)
	assert.False(t, update.Extended)
	assert.Equal(t, 9, update.PreviousStreak)
	assert.Equal(t, 2, update.DaysMissed)
	assert.Equal(t, 1, update.FreezesConsumed)
	assert.Equal(t, 1, p.StreakCurrent)
	assert.Equal(t, 0, p.StreakFreezes)
	assert.Equal(t, 9, p.StreakLongest, "longest survives the reset")
}

func TestAdvanceStreak_ExplicitlyProtectedDayBridgesWithoutTokens(t *testing.T) {
	cal := timeutil.UTC()
	p := newTestProgression()
	p.StreakCurrent = 4
	p.StreakLongest = 4
	p.StreakFreezes = 1
	p.LastActiveDate = cal.DateOf(day(2026, time.August, 29))

	require.NoError(t, p.UseFreeze(cal, day(2026, time.August, 30)))
	require.Equal(t, 0, p.StreakFreezes)

	update := p.AdvanceStreak(cal, day(2026, time.August, 31))

	assert.True(t, update.Extended)
	assert.Equal(t, 0, update.FreezesConsumed, "the protected day was already paid for")
	assert.Equal(t, 5, p.StreakCurrent)
}

func TestUseFreeze(t *testing.T) {
	cal := timeutil.UTC()

	t.Run("consumes a token and protects the date", func(t *testing.T) {
		p := newTestProgression()
		p.StreakFreezes = 2

		err := p.UseFreeze(cal, day(2026, time.August, 30))

		require.NoError(t, err)
		assert.Equal(t, 1, p.StreakFreezes)
		assert.Contains(t, p.FrozenDates, "2026-08-30")
	})

	t.Run("same date twice is AlreadyProtected", func(t *testing.T) {
		p := newTestProgression()
		p.StreakFreezes = 2

		require.NoError(t, p.UseFreeze(cal, day(2026, time.August, 30)))
		err := p.UseFreeze(cal, day(2026, time.August, 30))

		assert.ErrorIs(t, err, shared.ErrDayAlreadyProtected)
		assert.Equal(t, 1, p.StreakFreezes, "no second token spent")
	})

	t.Run("zero tokens is NoFreezesAvailable", func(t *testing.T) {
		p := newTestProgression()
		p.StreakFreezes = 0

		err := p.UseFreeze(cal, day(2026, time.August, 30))

		assert.ErrorIs(t, err, shared.ErrNoFreezesAvailable)
	})
}

func TestStreakStateAt(t *testing.T) {
	cal := timeutil.UTC()
	now := day(2026, time.August, 31)

	tests := []struct {
		name  string
		setup func(p *UserProgression)
		want  StreakState
	}{
		{
			"never active",
			func(p *UserProgression) {},
			StreakNone,
		},
		{
			"active today",
			func(p *UserProgression) {
				p.StreakCurrent = 3
				p.LastActiveDate = cal.DateOf(now)
			},
			StreakActiveToday,
		},
		{
			"last active yesterday",
			func(p *UserProgression) {
				p.StreakCurrent = 3
				p.LastActiveDate = cal.DateOf(day(2026, time.August, 30))
			},
			StreakAtRisk,
		},
		{
			"unresolved two-day gap",
			func(p *UserProgression) {
				p.StreakCurrent = 3
				p.LastActiveDate = cal.DateOf(day(2026, time.August, 28))
			},
			StreakBroken,
		},
		{
			"gap covered by protected days",
			func(p *UserProgression) {
				p.StreakCurrent = 3
				p.LastActiveDate = cal.DateOf(day(2026, time.August, 29))
				p.FrozenDates = []string{"2026-08-30"}
			},
			StreakAtRisk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProgression()
			tt.setup(p)
			assert.Equal(t, tt.want, p.StreakStateAt(cal, now))
		})
	}
}
