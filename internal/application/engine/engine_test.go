package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/achievement"
	"github.com/studyhub/progression-engine/internal/domain/challenge"
	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/progression"
	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/internal/infrastructure/persistence/memory"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

const testUserID = shared.UserID("5f3e8a92-1b4c-4d6e-9f0a-2c8b7d5e4a31")

// testClock is a settable clock shared between the test and the engine.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	engine *Engine
	store  *memory.Store
	clock  *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)}
	store := memory.NewStore()

	achievements := achievement.NewCatalogWith([]achievement.Achievement{
		{ID: "xp_300", Requirement: achievement.MinTotalXP{Value: 300}, GemReward: 10},
		{ID: "streak_3", Requirement: achievement.MinStreak{Value: 3}, XPReward: 20},
	})
	items := economy.NewItemCatalogWith([]economy.StoreItem{
		{ID: "streak_freeze", CostGems: 50, Effect: economy.EffectStreakFreeze, Amount: 1},
		{ID: "life_refill", CostGems: 30, Effect: economy.EffectLifeRefill},
	})
	challenges := challenge.NewCatalogWith([]challenge.DailyChallenge{
		{ID: "xp-0831", ValidDate: "2026-08-31", Requirement: challenge.RequirementEarnXP, Target: 100,
			Rewards: challenge.Rewards{XP: 20, Gems: 5, Lives: 1}},
	})

	eng := New(Config{
		Store:              store,
		Achievements:       store,
		Challenges:         store,
		Boards:             store,
		AchievementCatalog: achievements,
		ItemCatalog:        items,
		ChallengeCatalog:   challenges,
		Clock:              clock,
		Calendar:           timeutil.UTC(),
	})

	return &fixture{engine: eng, store: store, clock: clock}
}

// seedUser creates a progression row with the given XP and gem balance. Gems
// are funded through an admin_adjustment ledger entry so the cached balance
// and the ledger sum agree from the start.
func (f *fixture) seedUser(t *testing.T, userID shared.UserID, xp, gems int) {
	t.Helper()
	now := f.clock.Now()
	p := progression.NewUserProgression(userID, now)
	p.TotalXP = shared.XP(xp)
	require.NoError(t, f.store.Create(context.Background(), p))

	if gems > 0 {
		require.NoError(t, p.CreditGems(gems))
		entry, err := economy.NewLedgerEntry(userID, gems, economy.ReasonAdminAdjustment, p.Gems.Int(), now)
		require.NoError(t, err)
		require.NoError(t, f.store.ApplyDelta(context.Background(), p, &progression.Delta{
			LedgerEntries: []economy.LedgerEntry{entry},
		}))
	}
}

func TestGetProgression_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.GetProgression(context.Background(), testUserID)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordActivity_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 240, 0)

	result, err := f.engine.RecordActivity(context.Background(), testUserID, 80, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	assert.Equal(t, 320, result.NewXP)
	assert.Equal(t, 3, result.NewLevel, "320 XP crosses the 300 XP level-3 threshold")
	assert.True(t, result.LeveledUp)
	assert.Equal(t, []string{"xp_300"}, result.NewlyUnlocked, "the 300 XP achievement newly holds")
	assert.Equal(t, 10, result.NewBalance, "gem reward credited with the grant")

	snap, err := f.engine.GetProgression(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, 320, snap.TotalXP)
	assert.Equal(t, 1, snap.StreakCurrent)
	assert.Equal(t, progression.StreakActiveToday, snap.StreakState)
}

func TestRecordActivity_RepeatScanNeverDoublePays(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 240, 0)
	ctx := context.Background()

	first, err := f.engine.RecordActivity(ctx, testUserID, 80, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)
	require.Equal(t, []string{"xp_300"}, first.NewlyUnlocked)

	// Identical stats, another scan: nothing new, nothing re-paid.
	second, err := f.engine.RecordActivity(ctx, testUserID, 0, ActivityMeta{Source: "lesson_finished"})
	require.NoError(t, err)
	assert.Empty(t, second.NewlyUnlocked)
	assert.Equal(t, 10, second.NewBalance, "gem reward applied exactly once")

	earned, err := f.store.ListEarned(ctx, testUserID)
	require.NoError(t, err)
	assert.Len(t, earned, 1, "one grant row despite two scans")

	balance, err := f.store.BalanceFromLedger(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance, "ledger agrees with the cached balance")
}

func TestRecordActivity_StreakIncrement(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 0)
	ctx := context.Background()

	_, err := f.engine.RecordActivity(ctx, testUserID, 10, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().AddDate(0, 0, 1))
	result, err := f.engine.RecordActivity(ctx, testUserID, 10, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	assert.True(t, result.Streak.Extended)
	snap, err := f.engine.GetProgression(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.StreakCurrent)
	assert.Equal(t, 2, snap.StreakLongest)
}

func TestRecordActivity_ThreeDayGapWithOneFreeze(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 0)
	ctx := context.Background()

	p, err := f.store.Find(ctx, testUserID)
	require.NoError(t, err)
	p.StreakCurrent = 5
	p.StreakLongest = 5
	p.StreakFreezes = 1
	p.LastActiveDate = time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.ApplyDelta(ctx, p, nil))

	// Three-day gap with a single freeze: spend-then-fail.
	result, err := f.engine.RecordActivity(ctx, testUserID, 10, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	assert.True(t, result.Streak.Reset)
	assert.Equal(t, 1, result.Streak.FreezesConsumed)

	snap, err := f.engine.GetProgression(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.StreakCurrent)
	assert.Equal(t, 0, snap.StreakFreezes)
}

func TestUseStreakFreeze_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 0)
	ctx := context.Background()
	date := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)

	result, err := f.engine.UseStreakFreeze(ctx, testUserID, date)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30", result.ProtectedDate)
	assert.Equal(t, progression.DefaultStartingFreezes-1, result.FreezesLeft)

	_, err = f.engine.UseStreakFreeze(ctx, testUserID, date)
	assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 30)
	ctx := context.Background()

	_, err := f.engine.Purchase(ctx, testUserID, "streak_freeze", 50)

	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	snap, err := f.engine.GetProgression(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 30, snap.Gems, "failed purchase leaves the balance unchanged")
}

func TestPurchase_CostMismatchRejected(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 100)

	_, err := f.engine.Purchase(context.Background(), testUserID, "streak_freeze", 1)

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestPurchase_ConcurrentOverdraw(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 60)
	ctx := context.Background()

	seeded, err := f.store.BalanceFromLedger(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 60, seeded, "seed funds flow through the ledger")

	// Two concurrent 50-gem purchases against a balance of 60: exactly one
	// may succeed.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Purchase(ctx, testUserID, "streak_freeze", 50)
		}(i)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case shared.IsConflict(err):
			t.Fatalf("conflict leaked through the retry budget: %v", err)
		default:
			require.ErrorIs(t, err, shared.ErrInsufficientFunds)
			insufficient++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	snap, err := f.engine.GetProgression(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Gems, "final balance is 60 - 50, never negative")

	balance, err := f.store.BalanceFromLedger(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance)
}

func TestCompleteChallenge(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 0)
	ctx := context.Background()

	result, err := f.engine.CompleteChallenge(ctx, testUserID, "xp-0831")
	require.NoError(t, err)
	assert.Equal(t, 20, result.NewXP)
	assert.Equal(t, 5, result.NewBalance)

	// Second completion pays nothing.
	_, err = f.engine.CompleteChallenge(ctx, testUserID, "xp-0831")
	assert.ErrorIs(t, err, shared.ErrChallengeAlreadyCompleted)

	snap, err := f.engine.GetProgression(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 20, snap.TotalXP)
	assert.Equal(t, 5, snap.Gems, "reward credited exactly once")
}

func TestCompleteChallenge_WrongDate(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 0)
	f.clock.Set(time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC))

	_, err := f.engine.CompleteChallenge(context.Background(), testUserID, "xp-0831")

	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCompleteChallenge_UnknownChallenge(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CompleteChallenge(context.Background(), testUserID, "nope")

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetLeaderboard_WeeklyWindowReset(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 0)
	ctx := context.Background()

	// Sunday of ISO week 36.
	f.clock.Set(time.Date(2026, time.September, 6, 12, 0, 0, 0, time.UTC))
	_, err := f.engine.RecordActivity(ctx, testUserID, 120, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	weekly, err := f.engine.GetLeaderboard(ctx, leaderboard.WindowWeekly, 10)
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, 120, weekly[0].XPInWindow)

	// Monday of ISO week 37: a fresh weekly window with nothing in it yet.
	f.clock.Set(time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC))
	weekly, err = f.engine.GetLeaderboard(ctx, leaderboard.WindowWeekly, 10)
	require.NoError(t, err)
	assert.Empty(t, weekly, "weekly counter starts at zero in the new window")

	// The monotonic total and the all-time window are unaffected.
	snap, err := f.engine.GetProgression(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 120, snap.TotalXP)

	allTime, err := f.engine.GetLeaderboard(ctx, leaderboard.WindowAllTime, 10)
	require.NoError(t, err)
	require.Len(t, allTime, 1)
	assert.Equal(t, 120, allTime[0].XPInWindow)
}

func TestGetLeaderboard_DeterministicRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userB := shared.UserID("22222222-2222-4222-8222-222222222222")
	f.seedUser(t, testUserID, 0, 0)
	f.seedUser(t, userB, 0, 0)

	_, err := f.engine.RecordActivity(ctx, testUserID, 100, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(time.Hour))
	_, err = f.engine.RecordActivity(ctx, userB, 100, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	top, err := f.engine.GetLeaderboard(ctx, leaderboard.WindowWeekly, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, testUserID, top[0].UserID, "tie broken by who reached the total first")
	assert.Equal(t, leaderboard.Rank(1), top[0].Rank)
	assert.Equal(t, leaderboard.Rank(2), top[1].Rank)
}

func TestGetLeaderboard_UnknownWindow(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.GetLeaderboard(context.Background(), leaderboard.Window("daily"), 10)

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRecordActivity_CreatesUserOnFirstActivity(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.RecordActivity(context.Background(), testUserID, 40, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	assert.Equal(t, 40, result.NewXP)
	assert.True(t, result.Streak.Extended, "first activity starts a streak of 1")
}

func TestRecordActivity_AdvancesChallengeCounters(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testUserID, 0, 0)
	ctx := context.Background()

	_, err := f.engine.RecordActivity(ctx, testUserID, 60, ActivityMeta{Source: "quiz_completed"})
	require.NoError(t, err)

	prog, err := f.store.FindProgress(ctx, testUserID, "xp-0831")
	require.NoError(t, err)
	assert.Equal(t, 60, prog.Current)
	assert.Equal(t, challenge.StateInProgress, prog.State())
}

func TestRecordActivity_RejectsNegativeXP(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.RecordActivity(context.Background(), testUserID, -5, ActivityMeta{})

	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}
