package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

const testUserID = shared.UserID("5f3e8a92-1b4c-4d6e-9f0a-2c8b7d5e4a31")

var testTime = time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)

func TestProgressStateMachine(t *testing.T) {
	p := NewProgress(testUserID, "daily-xp-2026-08-31")
	require.Equal(t, StateNotStarted, p.State())

	justCompleted := p.Advance(30, 100)
	assert.False(t, justCompleted)
	assert.Equal(t, StateInProgress, p.State())

	justCompleted = p.Advance(80, 100)
	assert.True(t, justCompleted, "crossing the target reports completion")

	require.NoError(t, p.Complete(testTime))
	assert.Equal(t, StateCompleted, p.State())

	require.NoError(t, p.Claim(testTime.Add(time.Minute)))
	assert.Equal(t, StateClaimed, p.State())
}

func TestProgress_CompleteTwice(t *testing.T) {
	p := NewProgress(testUserID, "daily-xp-2026-08-31")
	p.Advance(100, 100)
	require.NoError(t, p.Complete(testTime))

	err := p.Complete(testTime.Add(time.Hour))

	assert.ErrorIs(t, err, shared.ErrChallengeAlreadyCompleted)
	assert.Equal(t, testTime, p.CompletedAt, "first completion timestamp is preserved")
}

func TestProgress_Claim(t *testing.T) {
	t.Run("claim before completion", func(t *testing.T) {
		p := NewProgress(testUserID, "c1")
		p.Advance(10, 100)

		assert.ErrorIs(t, p.Claim(testTime), shared.ErrChallengeNotCompleted)
	})

	t.Run("claim twice", func(t *testing.T) {
		p := NewProgress(testUserID, "c1")
		p.Advance(100, 100)
		require.NoError(t, p.Complete(testTime))
		require.NoError(t, p.Claim(testTime))

		assert.ErrorIs(t, p.Claim(testTime), shared.ErrChallengeAlreadyClaimed)
	})
}

func TestProgress_AdvanceAfterCompletionIsIgnored(t *testing.T) {
	p := NewProgress(testUserID, "c1")
	p.Advance(100, 100)
	require.NoError(t, p.Complete(testTime))

	justCompleted := p.Advance(50, 100)

	assert.False(t, justCompleted)
	assert.Equal(t, 100, p.Current)
}

func TestCatalog(t *testing.T) {
	cat := NewCatalogWith([]DailyChallenge{
		{ID: "xp-0831", ValidDate: "2026-08-31", Requirement: RequirementEarnXP, Target: 100, Rewards: Rewards{XP: 20, Gems: 5}},
		{ID: "quiz-0831", ValidDate: "2026-08-31", Requirement: RequirementAnswerQuestions, Target: 20, Rewards: Rewards{Gems: 10, Lives: 1}},
		{ID: "xp-0901", ValidDate: "2026-09-01", Requirement: RequirementEarnXP, Target: 100},
	})

	t.Run("for date", func(t *testing.T) {
		today := cat.ForDate("2026-08-31")
		require.Len(t, today, 2)
		assert.Equal(t, "xp-0831", today[0].ID)
	})

	t.Run("find", func(t *testing.T) {
		ch, err := cat.Find("quiz-0831")
		require.NoError(t, err)
		assert.Equal(t, 20, ch.Target)

		_, err = cat.Find("nope")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("date validity", func(t *testing.T) {
		ch, err := cat.Find("xp-0901")
		require.NoError(t, err)
		assert.True(t, ch.IsValidOn("2026-09-01"))
		assert.False(t, ch.IsValidOn("2026-08-31"))
	})
}
