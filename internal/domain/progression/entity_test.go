package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

func TestNewUserProgression(t *testing.T) {
	p := NewUserProgression(testUserID, day(2026, time.August, 1))

	assert.Equal(t, testUserID, p.UserID)
	assert.Equal(t, shared.XP(0), p.TotalXP)
	assert.Equal(t, Level(1), p.Level())
	assert.Equal(t, shared.Lives(DefaultMaxLives), p.Lives)
	assert.Equal(t, DefaultStartingFreezes, p.StreakFreezes)
	assert.Equal(t, int64(0), p.Version)
}

func TestAddXP(t *testing.T) {
	t.Run("reports level up", func(t *testing.T) {
		p := newTestProgression()
		p.TotalXP = 240

		leveledUp, err := p.AddXP(80)

		require.NoError(t, err)
		assert.True(t, leveledUp)
		assert.Equal(t, shared.XP(320), p.TotalXP)
		assert.Equal(t, Level(3), p.Level())
	})

	t.Run("no level up within a level", func(t *testing.T) {
		p := newTestProgression()
		p.TotalXP = 240

		leveledUp, err := p.AddXP(10)

		require.NoError(t, err)
		assert.False(t, leveledUp)
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		p := newTestProgression()
		p.TotalXP = 240

		_, err := p.AddXP(-50)

		assert.ErrorIs(t, err, shared.ErrNegativeValue)
		assert.Equal(t, shared.XP(240), p.TotalXP, "total XP is monotonic")
	})
}

func TestConsumeGems(t *testing.T) {
	t.Run("debits when affordable", func(t *testing.T) {
		p := newTestProgression()
		p.Gems = 60

		require.NoError(t, p.ConsumeGems(50))
		assert.Equal(t, shared.Gems(10), p.Gems)
	})

	t.Run("insufficient balance leaves it unchanged", func(t *testing.T) {
		p := newTestProgression()
		p.Gems = 30

		err := p.ConsumeGems(50)

		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		assert.Equal(t, shared.Gems(30), p.Gems)
	})
}

func TestCreditGems(t *testing.T) {
	p := newTestProgression()
	p.Gems = 5

	require.NoError(t, p.CreditGems(25))
	assert.Equal(t, shared.Gems(30), p.Gems)

	err := p.CreditGems(-1)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestLives(t *testing.T) {
	p := newTestProgression()

	require.NoError(t, p.SpendLife())
	require.NoError(t, p.SpendLife())
	assert.Equal(t, shared.Lives(DefaultMaxLives-2), p.Lives)

	p.AddLives(10)
	assert.Equal(t, p.MaxLives, p.Lives, "lives are capped at MaxLives")

	p.Lives = 0
	assert.ErrorIs(t, p.SpendLife(), shared.ErrNoLivesLeft)

	p.RefillLives()
	assert.Equal(t, p.MaxLives, p.Lives)
}

func TestRecordQuiz(t *testing.T) {
	p := newTestProgression()

	p.RecordQuiz([]bool{true, true, true})
	p.RecordQuiz([]bool{true, false, true})

	assert.Equal(t, 6, p.TotalQuestions)
	assert.Equal(t, 1, p.PerfectQuizzes)
}

func TestAccuracyOver(t *testing.T) {
	p := newTestProgression()
	p.RecordQuiz([]bool{true, true, false, true})

	accuracy, ok := p.AccuracyOver(4)
	require.True(t, ok)
	assert.InDelta(t, 0.75, accuracy, 1e-9)

	_, ok = p.AccuracyOver(5)
	assert.False(t, ok, "not enough answers recorded for the window")
}

func TestRecentAnswersWindowIsBounded(t *testing.T) {
	p := newTestProgression()
	for i := 0; i < 30; i++ {
		p.RecordQuiz([]bool{true, true, true, true, true})
	}

	assert.Len(t, p.RecentAnswers, maxRecentAnswers)
	assert.Equal(t, 150, p.TotalQuestions, "lifetime counter keeps growing")
}
