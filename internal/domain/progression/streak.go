package progression

import (
	"time"

	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// Streak State Machine
// ═══════════════════════════════════════════════════════════════════════════

// StreakState is the derived state of a user's daily streak. It is computed
// purely from the stored LastActiveDate against an injected "today" — never
// from in-memory elapsed time — so every process derives the same state.
type StreakState int

const (
	// StreakNone means the user has no active streak.
	StreakNone StreakState = iota
	// StreakActiveToday means activity was already recorded today.
	StreakActiveToday
	// StreakAtRisk means the last activity was yesterday and today is
	// still open.
	StreakAtRisk
	// StreakBroken means a gap of two or more unprotected days has passed
	// without being resolved.
	StreakBroken
)

// String returns the string representation of the state.
func (s StreakState) String() string {
	switch s {
	case StreakNone:
		return "none"
	case StreakActiveToday:
		return "active_today"
	case StreakAtRisk:
		return "at_risk"
	case StreakBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// StreakUpdate describes what happened to the streak when activity was
// recorded.
type StreakUpdate struct {
	// Extended is true when the streak grew (including a fresh start).
	Extended bool

	// Reset is true when a gap could not be bridged and the streak
	// restarted at 1.
	Reset bool

	// PreviousStreak is the streak length before the update.
	PreviousStreak int

	// DaysMissed is the number of unprotected days in the gap.
	DaysMissed int

	// FreezesConsumed is how many freeze tokens this update spent.
	FreezesConsumed int

	// BridgedDates lists the date keys freezes protected during this
	// update, oldest first.
	BridgedDates []string
}

// StreakStateAt derives the streak state for the given instant.
func (p *UserProgression) StreakStateAt(cal timeutil.Calendar, now time.Time) StreakState {
	if p.LastActiveDate.IsZero() || p.StreakCurrent == 0 {
		return StreakNone
	}

	switch gap := cal.DaysBetween(p.LastActiveDate, now); {
	case gap <= 0:
		return StreakActiveToday
	case gap == 1:
		return StreakAtRisk
	default:
		if p.unprotectedMissedDays(cal, now) == 0 {
			// Every day in the gap is already freeze-protected.
			return StreakAtRisk
		}
		return StreakBroken
	}
}

// AdvanceStreak records activity for "now" and applies the streak
// transition. Gaps are bridged when freeze tokens cover every unprotected
// missed day; insufficient tokens are still consumed in the attempt and the
// streak resets to 1 (spend-then-fail).
func (p *UserProgression) AdvanceStreak(cal timeutil.Calendar, now time.Time) StreakUpdate {
	update := StreakUpdate{PreviousStreak: p.StreakCurrent}
	today := cal.DateOf(now)

	// First ever activity starts a streak of 1.
	if p.LastActiveDate.IsZero() || p.StreakCurrent == 0 {
		p.StreakCurrent = 1
		if p.StreakLongest < 1 {
			p.StreakLongest = 1
		}
		p.LastActiveDate = today
		update.Extended = true
		return update
	}

	gap := cal.DaysBetween(p.LastActiveDate, today)
	switch {
	case gap <= 0:
		// Already active today; nothing changes.
		return update

	case gap == 1:
		p.extendStreak(today)
		update.Extended = true
		return update

	default:
		missed := p.missedDates(cal, today)
		update.DaysMissed = len(missed)

		if len(missed) == 0 {
			// Gap fully covered by explicit freezes.
			p.extendStreak(today)
			update.Extended = true
			return update
		}

		if p.StreakFreezes >= len(missed) {
			p.StreakFreezes -= len(missed)
			p.FrozenDates = append(p.FrozenDates, missed...)
			p.extendStreak(today)
			update.Extended = true
			update.FreezesConsumed = len(missed)
			update.BridgedDates = missed
			return update
		}

		// Not enough freezes: spend what remains, streak restarts.
		update.FreezesConsumed = p.StreakFreezes
		p.StreakFreezes = 0
		p.StreakCurrent = 1
		p.LastActiveDate = today
		update.Reset = true
		return update
	}
}

// UseFreeze explicitly protects a calendar date with one freeze token. The
// operation is date-keyed idempotent: protecting the same date twice returns
// ErrDayAlreadyProtected without spending a second token.
func (p *UserProgression) UseFreeze(cal timeutil.Calendar, date time.Time) error {
	key := cal.DateKey(date)
	if p.isDateFrozen(key) {
		return shared.ErrDayAlreadyProtected
	}
	if p.StreakFreezes <= 0 {
		return shared.ErrNoFreezesAvailable
	}
	p.StreakFreezes--
	p.FrozenDates = append(p.FrozenDates, key)
	return nil
}

// extendStreak grows the streak by one day ending at today.
func (p *UserProgression) extendStreak(today time.Time) {
	p.StreakCurrent++
	if p.StreakCurrent > p.StreakLongest {
		p.StreakLongest = p.StreakCurrent
	}
	p.LastActiveDate = today
}

// missedDates returns the unprotected date keys strictly between
// LastActiveDate and today, oldest first.
func (p *UserProgression) missedDates(cal timeutil.Calendar, today time.Time) []string {
	var missed []string
	for d := cal.DateOf(p.LastActiveDate).AddDate(0, 0, 1); d.Before(cal.DateOf(today)); d = d.AddDate(0, 0, 1) {
		key := cal.DateKey(d)
		if !p.isDateFrozen(key) {
			missed = append(missed, key)
		}
	}
	return missed
}

func (p *UserProgression) unprotectedMissedDays(cal timeutil.Calendar, now time.Time) int {
	return len(p.missedDates(cal, cal.DateOf(now)))
}

func (p *UserProgression) isDateFrozen(key string) bool {
	for _, frozen := range p.FrozenDates {
		if frozen == key {
			return true
		}
	}
	return false
}
