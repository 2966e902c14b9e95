package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/achievement"
	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/progression"
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

const testUserID = shared.UserID("5f3e8a92-1b4c-4d6e-9f0a-2c8b7d5e4a31")

var testTime = time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)

func newStoredUser(t *testing.T, store *Store) *progression.UserProgression {
	t.Helper()
	p := progression.NewUserProgression(testUserID, testTime)
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

func TestCreateAndFind(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Find(ctx, testUserID)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	created := newStoredUser(t, store)

	err = store.Create(ctx, created)
	assert.ErrorIs(t, err, shared.ErrUserAlreadyExists)

	found, err := store.Find(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, found.UserID)

	// Find returns a copy: mutating it must not leak into the store.
	found.StreakCurrent = 99
	again, err := store.Find(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.StreakCurrent)
}

func TestApplyDeltaVersionGuard(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	newStoredUser(t, store)

	first, err := store.Find(ctx, testUserID)
	require.NoError(t, err)
	second, err := store.Find(ctx, testUserID)
	require.NoError(t, err)

	_, err = first.AddXP(80)
	require.NoError(t, err)
	require.NoError(t, store.ApplyDelta(ctx, first, &progression.Delta{}))
	assert.Equal(t, int64(1), first.Version)

	// The second loader still holds version 0 and must lose.
	_, err = second.AddXP(40)
	require.NoError(t, err)
	err = store.ApplyDelta(ctx, second, &progression.Delta{})
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)

	stored, err := store.Find(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.TotalXP.Int())
}

func TestApplyDeltaWritesSideRows(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	p := newStoredUser(t, store)

	require.NoError(t, p.CreditGems(25))
	entry, err := economy.NewLedgerEntry(testUserID, 25, economy.ReasonAchievementReward, 25, testTime)
	require.NoError(t, err)

	delta := &progression.Delta{
		LedgerEntries: []economy.LedgerEntry{entry},
		AchievementGrants: []achievement.UserAchievement{
			{UserID: testUserID, AchievementID: "xp_300", EarnedAt: testTime},
		},
		WindowIncrements: []progression.WindowIncrement{
			{Window: leaderboard.WindowWeekly, WindowKey: "2026-W36", Amount: 80, At: testTime},
		},
	}
	require.NoError(t, store.ApplyDelta(ctx, p, delta))

	balance, err := store.BalanceFromLedger(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 25, balance)

	earned, err := store.EarnedIDs(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, earned["xp_300"])

	entries, err := store.Entries(ctx, leaderboard.WindowWeekly, "2026-W36")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 80, entries[0].XPInWindow)
}

func TestGrantIsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	p := newStoredUser(t, store)

	grant := achievement.UserAchievement{UserID: testUserID, AchievementID: "streak_7", EarnedAt: testTime}
	require.NoError(t, store.ApplyDelta(ctx, p, &progression.Delta{
		AchievementGrants: []achievement.UserAchievement{grant},
	}))
	require.NoError(t, store.ApplyDelta(ctx, p, &progression.Delta{
		AchievementGrants: []achievement.UserAchievement{grant},
	}))

	earned, err := store.ListEarned(ctx, testUserID)
	require.NoError(t, err)
	assert.Len(t, earned, 1)
}

func TestTopRanksEntries(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	userA := shared.UserID("1a000000-0000-4000-8000-000000000001")
	userB := shared.UserID("1b000000-0000-4000-8000-000000000002")

	for i, id := range []shared.UserID{userA, userB} {
		p := progression.NewUserProgression(id, testTime)
		require.NoError(t, store.Create(ctx, p))
		require.NoError(t, store.ApplyDelta(ctx, p, &progression.Delta{
			WindowIncrements: []progression.WindowIncrement{
				{Window: leaderboard.WindowWeekly, WindowKey: "2026-W36", Amount: 50 * (i + 1), At: testTime},
			},
		}))
	}

	top, err := store.Top(ctx, leaderboard.WindowWeekly, "2026-W36", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, userB, top[0].UserID)
	assert.Equal(t, leaderboard.Rank(1), top[0].Rank)
	assert.Equal(t, userA, top[1].UserID)

	top, err = store.Top(ctx, leaderboard.WindowWeekly, "2026-W36", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
