package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPRequiredForLevel(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		want  int
	}{
		{"level 1 is free", 1, 0},
		{"level 2", 2, 100},
		{"level 3", 3, 300},
		{"level 4", 4, 600},
		{"level 10", 10, 4500},
		{"below minimum clamps to zero", 0, 0},
		{"above maximum clamps", MaxLevel + 50, XPRequiredForLevel(MaxLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, XPRequiredForLevel(tt.level))
		})
	}
}

func TestXPRequiredForLevel_StrictlyIncreasing(t *testing.T) {
	for l := MinLevel; l < MaxLevel; l++ {
		require.Less(t, XPRequiredForLevel(l), XPRequiredForLevel(l+1),
			"threshold must strictly increase from level %d to %d", l, l+1)
	}
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		name string
		xp   int
		want Level
	}{
		{"zero XP is level 1", 0, 1},
		{"negative XP clamps to level 1", -10, 1},
		{"just below level 2", 99, 1},
		{"exactly level 2 threshold", 100, 2},
		{"between levels", 240, 2},
		{"exactly level 3 threshold", 300, 3},
		{"past level 3", 320, 3},
		{"huge XP clamps to max level", 10_000_000, MaxLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelForXP(tt.xp))
		})
	}
}

func TestLevelForXP_RoundTrip(t *testing.T) {
	// levelForXP(xpRequiredForLevel(L)) == L for every defined level.
	for l := MinLevel; l <= MaxLevel; l++ {
		assert.Equal(t, l, LevelForXP(XPRequiredForLevel(l)), "round trip for level %d", l)
	}
}

func TestLevelForXP_MonotonicNonDecreasing(t *testing.T) {
	prev := LevelForXP(0)
	for xp := 1; xp <= XPRequiredForLevel(20); xp++ {
		cur := LevelForXP(xp)
		require.GreaterOrEqual(t, cur, prev, "level dropped at xp=%d", xp)
		prev = cur
	}
}

func TestXPIntoCurrentLevel(t *testing.T) {
	assert.Equal(t, 0, XPIntoCurrentLevel(0))
	assert.Equal(t, 40, XPIntoCurrentLevel(140)) // level 2 at 100
	assert.Equal(t, 20, XPIntoCurrentLevel(320)) // level 3 at 300
	assert.Equal(t, 0, XPIntoCurrentLevel(300))
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPToNextLevel(0))
	assert.Equal(t, 60, XPToNextLevel(240))
	assert.Equal(t, 280, XPToNextLevel(320))
	assert.Equal(t, 0, XPToNextLevel(XPRequiredForLevel(MaxLevel)))
}

func TestLevelProgress(t *testing.T) {
	assert.InDelta(t, 0.0, LevelProgress(0), 1e-9)
	assert.InDelta(t, 0.7, LevelProgress(240), 1e-9) // 140 of the 200 XP spanning level 2
	assert.InDelta(t, 1.0, LevelProgress(XPRequiredForLevel(MaxLevel)), 1e-9)
}
