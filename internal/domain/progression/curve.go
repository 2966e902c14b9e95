// Package progression contains the core user progression aggregate: total XP
// with its derived level, the daily streak state machine with freeze
// protection, and the atomic delta applied by the persistence layer.
package progression

import (
	"sort"
)

// ═══════════════════════════════════════════════════════════════════════════
// Level Curve
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a user level derived from total XP. Level is never stored
// authoritatively; it is always recomputed from TotalXP through the curve.
type Level int

const (
	// MinLevel is the starting level. Zero XP maps here.
	MinLevel Level = 1

	// MaxLevel caps the threshold table. XP beyond the last threshold
	// clamps to MaxLevel.
	MaxLevel Level = 100
)

// IsValid checks if the level is within the defined range.
func (l Level) IsValid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// levelThresholds[i] is the cumulative XP required to reach level i+1.
// Reaching level L costs 100*(L-1) XP on top of level L-1, so the cumulative
// threshold is 50*L*(L-1). Precomputed so lookups are a bounded binary
// search, never an open-ended loop.
var levelThresholds = buildThresholds()

func buildThresholds() []int {
	thresholds := make([]int, MaxLevel)
	for l := 1; l <= int(MaxLevel); l++ {
		thresholds[l-1] = 50 * l * (l - 1)
	}
	return thresholds
}

// XPRequiredForLevel returns the cumulative XP needed to reach the given
// level. Levels outside [MinLevel, MaxLevel] clamp to the nearest bound.
func XPRequiredForLevel(level Level) int {
	if level <= MinLevel {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelThresholds[level-1]
}

// LevelForXP returns the greatest level whose threshold does not exceed the
// given XP. Negative XP clamps to MinLevel.
func LevelForXP(totalXP int) Level {
	if totalXP <= 0 {
		return MinLevel
	}

	// First index whose threshold exceeds totalXP; the level before it is
	// the answer.
	idx := sort.SearchInts(levelThresholds, totalXP+1)
	if idx <= 0 {
		return MinLevel
	}
	if idx > int(MaxLevel) {
		return MaxLevel
	}
	return Level(idx)
}

// XPIntoCurrentLevel returns how much XP has been earned past the current
// level's threshold.
func XPIntoCurrentLevel(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP - XPRequiredForLevel(LevelForXP(totalXP))
}

// XPToNextLevel returns the XP still needed to reach the next level.
// Returns 0 at MaxLevel.
func XPToNextLevel(totalXP int) int {
	level := LevelForXP(totalXP)
	if level >= MaxLevel {
		return 0
	}
	return XPRequiredForLevel(level+1) - totalXP
}

// LevelProgress returns completion of the current level as a fraction in
// [0, 1]. Returns 1 at MaxLevel.
func LevelProgress(totalXP int) float64 {
	level := LevelForXP(totalXP)
	if level >= MaxLevel {
		return 1.0
	}
	span := XPRequiredForLevel(level+1) - XPRequiredForLevel(level)
	if span <= 0 {
		return 1.0
	}
	return float64(XPIntoCurrentLevel(totalXP)) / float64(span)
}
