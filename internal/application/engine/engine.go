// Package engine composes the domain components into the progression
// facade: activity recording, streak freezes, purchases, challenge
// completion, and leaderboard reads. Every mutation is load → pure domain
// transition → achievement scan → one atomic delta write; optimistic
// version conflicts are retried transparently within a bounded budget.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/studyhub/progression-engine/internal/domain/achievement"
	"github.com/studyhub/progression-engine/internal/domain/challenge"
	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/progression"
	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/pkg/circuitbreaker"
	"github.com/studyhub/progression-engine/pkg/logger"
	"github.com/studyhub/progression-engine/pkg/retry"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// Engine
// ═══════════════════════════════════════════════════════════════════════════

// Config wires the engine's collaborators. Everything is injected: one
// engine per process or test, no package-level state.
type Config struct {
	Store        progression.Repository
	Achievements achievement.Repository
	Challenges   challenge.Repository
	Boards       leaderboard.Repository

	// BoardCache is optional. When set, leaderboard reads try it first
	// behind the circuit breaker and fall back to Boards.
	BoardCache leaderboard.Cache

	AchievementCatalog achievement.Catalog
	ItemCatalog        economy.ItemCatalog
	ChallengeCatalog   challenge.Catalog

	Clock     timeutil.Clock
	Calendar  timeutil.Calendar
	Publisher shared.EventPublisher
	Logger    *logger.Logger

	// Retry bounds the transparent optimistic-conflict retries. Zero
	// value falls back to retry.DefaultConfig.
	Retry retry.Config
}

// Engine is the progression facade. Safe for concurrent use; per-user
// serialization comes from the store's version guard, not from locks here.
type Engine struct {
	store        progression.Repository
	achievements achievement.Repository
	challenges   challenge.Repository
	boards       leaderboard.Repository
	boardCache   leaderboard.Cache
	cacheBreaker *circuitbreaker.CircuitBreaker

	achievementCatalog achievement.Catalog
	itemCatalog        economy.ItemCatalog
	challengeCatalog   challenge.Catalog
	evaluator          *achievement.Evaluator

	clock     timeutil.Clock
	cal       timeutil.Calendar
	publisher shared.EventPublisher
	log       *logger.Logger
	retryCfg  retry.Config
}

// New creates an engine from the given configuration.
func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = shared.NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	cfg.Retry.RetryIf = shared.IsConflict

	return &Engine{
		store:              cfg.Store,
		achievements:       cfg.Achievements,
		challenges:         cfg.Challenges,
		boards:             cfg.Boards,
		boardCache:         cfg.BoardCache,
		cacheBreaker:       circuitbreaker.New(circuitbreaker.DefaultConfig("leaderboard-cache")),
		achievementCatalog: cfg.AchievementCatalog,
		itemCatalog:        cfg.ItemCatalog,
		challengeCatalog:   cfg.ChallengeCatalog,
		evaluator:          achievement.NewEvaluator(cfg.AchievementCatalog),
		clock:              cfg.Clock,
		cal:                cfg.Calendar,
		publisher:          cfg.Publisher,
		log:                cfg.Logger.With(logger.Component("engine")),
		retryCfg:           cfg.Retry,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Results
// ═══════════════════════════════════════════════════════════════════════════

// Snapshot is the read model returned by GetProgression.
type Snapshot struct {
	UserID        shared.UserID
	TotalXP       int
	Level         int
	XPIntoLevel   int
	XPToNextLevel int
	Gems          int
	Lives         int
	MaxLives      int
	StreakCurrent int
	StreakLongest int
	StreakFreezes int
	StreakState   progression.StreakState
}

// ActivityMeta describes the activity behind an XP gain.
type ActivityMeta struct {
	// Source classifies the activity ("quiz_completed", "lesson_finished").
	Source string

	// Answers holds per-question correctness when the activity was a
	// quiz. Feeds question stats and accuracy requirements.
	Answers []bool
}

// ActivityResult is the delta RecordActivity reports back for display.
type ActivityResult struct {
	NewXP         int
	NewLevel      int
	LeveledUp     bool
	NewlyUnlocked []string
	NewBalance    int
	Streak        progression.StreakUpdate
}

// FreezeResult reports the streak state after an explicit freeze.
type FreezeResult struct {
	ProtectedDate string
	FreezesLeft   int
}

// PurchaseResult reports the balance after a purchase.
type PurchaseResult struct {
	ItemID        string
	RemainingGems int
}

// ChallengeResult reports the rewards granted for a completed challenge.
type ChallengeResult struct {
	ChallengeID   string
	Rewards       challenge.Rewards
	NewXP         int
	LeveledUp     bool
	NewlyUnlocked []string
	NewBalance    int
}

// ═══════════════════════════════════════════════════════════════════════════
// Operations
// ═══════════════════════════════════════════════════════════════════════════

// GetProgression returns the user's progression snapshot with the streak
// state derived lazily against the current date.
func (e *Engine) GetProgression(ctx context.Context, userID shared.UserID) (*Snapshot, error) {
	p, err := e.store.Find(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalXP := p.TotalXP.Int()
	return &Snapshot{
		UserID:        p.UserID,
		TotalXP:       totalXP,
		Level:         p.Level().Int(),
		XPIntoLevel:   progression.XPIntoCurrentLevel(totalXP),
		XPToNextLevel: progression.XPToNextLevel(totalXP),
		Gems:          p.Gems.Int(),
		Lives:         p.Lives.Int(),
		MaxLives:      p.MaxLives.Int(),
		StreakCurrent: p.StreakCurrent,
		StreakLongest: p.StreakLongest,
		StreakFreezes: p.StreakFreezes,
		StreakState:   p.StreakStateAt(e.cal, e.clock.Now()),
	}, nil
}

// RecordActivity applies an XP gain: streak transition, XP and level, quiz
// stats, challenge counters, window increments, and the achievement scan —
// all persisted as one delta.
func (e *Engine) RecordActivity(ctx context.Context, userID shared.UserID, xpGained int, meta ActivityMeta) (*ActivityResult, error) {
	if xpGained < 0 {
		return nil, shared.ErrXPDecrease
	}

	var result *ActivityResult
	err := e.mutate(ctx, userID, true, func(p *progression.UserProgression, delta *progression.Delta, earned map[string]bool) error {
		now := e.clock.Now()

		streak := p.AdvanceStreak(e.cal, now)
		e.emitStreakEvents(delta, p, streak, now)

		oldXP := p.TotalXP.Int()
		oldLevel := p.Level()
		leveledUp, err := p.AddXP(xpGained)
		if err != nil {
			return err
		}
		if xpGained > 0 {
			delta.XPHistory = append(delta.XPHistory,
				progression.NewXPHistoryEntry(userID, oldXP, p.TotalXP.Int(), meta.Source, now))
			delta.AddEvent(shared.NewXPGainedEvent(userID.String(), xpGained, p.TotalXP.Int(), meta.Source, now))
		}
		if leveledUp {
			delta.AddEvent(shared.NewLevelUpEvent(userID.String(), oldLevel.Int(), p.Level().Int(), now))
		}

		if len(meta.Answers) > 0 {
			p.RecordQuiz(meta.Answers)
		}

		e.advanceChallenges(ctx, p, delta, xpGained, meta, now)
		e.incrementWindows(delta, xpGained, now)

		unlocked, err := e.grantNewAchievements(p, delta, earned, now)
		if err != nil {
			return err
		}

		result = &ActivityResult{
			NewXP:         p.TotalXP.Int(),
			NewLevel:      p.Level().Int(),
			LeveledUp:     leveledUp || p.Level() > oldLevel,
			NewlyUnlocked: unlocked,
			NewBalance:    p.Gems.Int(),
			Streak:        streak,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("activity recorded",
		logger.UserID(userID.String()),
		logger.XPAmount(xpGained),
		logger.LevelField(result.NewLevel),
	)
	return result, nil
}

// UseStreakFreeze explicitly protects a date with one freeze token.
// Idempotent per date: a repeat returns ErrDayAlreadyProtected.
func (e *Engine) UseStreakFreeze(ctx context.Context, userID shared.UserID, date time.Time) (*FreezeResult, error) {
	var result *FreezeResult
	err := e.mutate(ctx, userID, false, func(p *progression.UserProgression, delta *progression.Delta, _ map[string]bool) error {
		if err := p.UseFreeze(e.cal, date); err != nil {
			return err
		}
		key := e.cal.DateKey(date)
		delta.AddEvent(shared.NewStreakFrozenEvent(userID.String(), key, 1, p.StreakFreezes, e.clock.Now()))
		result = &FreezeResult{ProtectedDate: key, FreezesLeft: p.StreakFreezes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Purchase debits gems for a catalog item and applies its effect. The cost
// argument is cross-checked against the catalog; the catalog price is
// authoritative and a mismatch is rejected.
func (e *Engine) Purchase(ctx context.Context, userID shared.UserID, itemID string, cost int) (*PurchaseResult, error) {
	item, err := e.itemCatalog.Find(itemID)
	if err != nil {
		return nil, err
	}
	if cost != item.CostGems {
		return nil, shared.NewDomainError("economy", "Purchase", shared.ErrInvalidInput, "submitted cost does not match the catalog price")
	}

	var result *PurchaseResult
	err = e.mutate(ctx, userID, false, func(p *progression.UserProgression, delta *progression.Delta, _ map[string]bool) error {
		now := e.clock.Now()

		if err := p.ConsumeGems(item.CostGems); err != nil {
			return err
		}
		entry, err := economy.NewLedgerEntry(userID, -item.CostGems, economy.ReasonPurchase, p.Gems.Int(), now)
		if err != nil {
			return err
		}
		delta.LedgerEntries = append(delta.LedgerEntries, entry.WithItem(item.ID))
		delta.AddEvent(shared.NewGemsConsumedEvent(userID.String(), item.CostGems, p.Gems.Int(), string(economy.ReasonPurchase), item.ID, now))

		switch item.Effect {
		case economy.EffectStreakFreeze:
			p.AddFreezes(item.Amount)
		case economy.EffectLifeRefill:
			p.RefillLives()
		case economy.EffectXPBoost:
			oldXP := p.TotalXP.Int()
			if _, err := p.AddXP(item.Amount); err != nil {
				return err
			}
			delta.XPHistory = append(delta.XPHistory,
				progression.NewXPHistoryEntry(userID, oldXP, p.TotalXP.Int(), "xp_boost", now))
			e.incrementWindows(delta, item.Amount, now)
		}

		result = &PurchaseResult{ItemID: item.ID, RemainingGems: p.Gems.Int()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("item purchased",
		logger.UserID(userID.String()),
		logger.String("item_id", itemID),
		logger.GemAmount(item.CostGems),
	)
	return result, nil
}

// CompleteChallenge marks a daily challenge completed and grants its
// rewards in the same atomic delta. A repeat call returns
// ErrChallengeAlreadyCompleted and pays nothing.
func (e *Engine) CompleteChallenge(ctx context.Context, userID shared.UserID, challengeID string) (*ChallengeResult, error) {
	ch, err := e.challengeCatalog.Find(challengeID)
	if err != nil {
		return nil, err
	}

	var result *ChallengeResult
	err = e.mutate(ctx, userID, false, func(p *progression.UserProgression, delta *progression.Delta, earned map[string]bool) error {
		now := e.clock.Now()
		if !ch.IsValidOn(e.cal.DateKey(now)) {
			return shared.ErrChallengeWrongDate
		}

		prog, err := e.challenges.FindProgress(ctx, userID, challengeID)
		if shared.IsNotFound(err) {
			prog = challenge.NewProgress(userID, challengeID)
		} else if err != nil {
			return err
		}

		if prog.Current < ch.Target {
			prog.Current = ch.Target
		}
		if err := prog.Complete(now); err != nil {
			return err
		}
		if err := prog.Claim(now); err != nil {
			return err
		}
		delta.ChallengeUpdates = append(delta.ChallengeUpdates, prog)
		delta.AddEvent(shared.NewChallengeCompletedEvent(userID.String(), challengeID,
			ch.Rewards.XP, ch.Rewards.Gems, ch.Rewards.Lives, now))

		oldLevel := p.Level()
		if ch.Rewards.XP > 0 {
			oldXP := p.TotalXP.Int()
			if _, err := p.AddXP(ch.Rewards.XP); err != nil {
				return err
			}
			delta.XPHistory = append(delta.XPHistory,
				progression.NewXPHistoryEntry(userID, oldXP, p.TotalXP.Int(), "challenge_reward", now))
			e.incrementWindows(delta, ch.Rewards.XP, now)
		}
		if ch.Rewards.Gems > 0 {
			if err := e.creditGems(p, delta, ch.Rewards.Gems, economy.ReasonChallengeReward, now); err != nil {
				return err
			}
		}
		if ch.Rewards.Lives > 0 {
			p.AddLives(ch.Rewards.Lives)
		}

		unlocked, err := e.grantNewAchievements(p, delta, earned, now)
		if err != nil {
			return err
		}

		result = &ChallengeResult{
			ChallengeID:   challengeID,
			Rewards:       ch.Rewards,
			NewXP:         p.TotalXP.Int(),
			LeveledUp:     p.Level() > oldLevel,
			NewlyUnlocked: unlocked,
			NewBalance:    p.Gems.Int(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("challenge completed",
		logger.UserID(userID.String()),
		logger.ChallengeID(challengeID),
	)
	return result, nil
}

// GetLeaderboard returns the ranked top of the window containing "now".
// The cache is consulted first when wired; a tripped breaker or a miss
// falls back to the authoritative store.
func (e *Engine) GetLeaderboard(ctx context.Context, window leaderboard.Window, limit int) ([]leaderboard.Entry, error) {
	if !window.IsValid() {
		return nil, shared.ErrUnknownWindow
	}
	if limit <= 0 || limit > shared.MaxPageSize {
		limit = shared.DefaultPageSize
	}
	key := window.KeyAt(e.cal, e.clock.Now())

	if e.boardCache != nil {
		var cached []leaderboard.Entry
		var found bool
		err := e.cacheBreaker.Execute(ctx, func(ctx context.Context) error {
			var cacheErr error
			cached, found, cacheErr = e.boardCache.Top(ctx, window, key, limit)
			return cacheErr
		})
		if err == nil && found {
			return cached, nil
		}
		if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) && !errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			e.log.Warn("leaderboard cache read failed, falling back to store",
				logger.WindowKey(key), logger.Err(err))
		}
	}

	return e.boards.Top(ctx, window, key, limit)
}

// ═══════════════════════════════════════════════════════════════════════════
// Mutation Plumbing
// ═══════════════════════════════════════════════════════════════════════════

// mutateFn computes one mutation against a freshly loaded aggregate. It runs
// again from scratch on every optimistic-conflict retry.
type mutateFn func(p *progression.UserProgression, delta *progression.Delta, earned map[string]bool) error

// mutate is the single write path: load (or create), apply fn, persist the
// delta atomically, publish events after commit. Version conflicts retry
// within the configured budget; ErrConcurrentModification surfaces only
// once it is exhausted.
func (e *Engine) mutate(ctx context.Context, userID shared.UserID, createIfMissing bool, fn mutateFn) error {
	return retry.Do(ctx, e.retryCfg, func(ctx context.Context) error {
		p, err := e.store.Find(ctx, userID)
		if shared.IsNotFound(err) && createIfMissing {
			p = progression.NewUserProgression(userID, e.clock.Now())
			if err := e.store.Create(ctx, p); err != nil && !shared.IsAlreadyExists(err) {
				return err
			}
			// A concurrent creator may have won; re-read either way.
			p, err = e.store.Find(ctx, userID)
		}
		if err != nil {
			return err
		}

		earned, err := e.achievements.EarnedIDs(ctx, userID)
		if err != nil {
			return err
		}

		delta := &progression.Delta{}
		if err := fn(p, delta, earned); err != nil {
			return err
		}

		if err := e.store.ApplyDelta(ctx, p, delta); err != nil {
			return err
		}

		for _, event := range delta.Events {
			if err := e.publisher.Publish(event); err != nil {
				e.log.Warn("event publish failed",
					logger.String("event_type", string(event.EventType())),
					logger.Err(err))
			}
		}
		return nil
	})
}

// grantNewAchievements scans the stats snapshot and applies grants plus
// rewards into the delta. Rewards can themselves unlock further
// achievements, so the scan loops until a pass finds nothing new; the
// earned set makes each pass a no-op for anything already granted.
func (e *Engine) grantNewAchievements(p *progression.UserProgression, delta *progression.Delta, earned map[string]bool, now time.Time) ([]string, error) {
	var allUnlocked []string

	for {
		unlocked, err := e.evaluator.Scan(e.statsOf(p), earned)
		if err != nil {
			return nil, err
		}
		if len(unlocked) == 0 {
			return allUnlocked, nil
		}

		for _, id := range unlocked {
			a, err := e.achievementCatalog.Find(id)
			if err != nil {
				return nil, err
			}

			earned[id] = true
			allUnlocked = append(allUnlocked, id)
			delta.AchievementGrants = append(delta.AchievementGrants, achievement.UserAchievement{
				UserID:        p.UserID,
				AchievementID: id,
				EarnedAt:      now,
			})
			delta.AddEvent(shared.NewAchievementUnlockedEvent(p.UserID.String(), id, a.XPReward, a.GemReward, now))

			if a.XPReward > 0 {
				oldXP := p.TotalXP.Int()
				if _, err := p.AddXP(a.XPReward); err != nil {
					return nil, err
				}
				delta.XPHistory = append(delta.XPHistory,
					progression.NewXPHistoryEntry(p.UserID, oldXP, p.TotalXP.Int(), "achievement_reward", now))
				e.incrementWindows(delta, a.XPReward, now)
			}
			if a.GemReward > 0 {
				if err := e.creditGems(p, delta, a.GemReward, economy.ReasonAchievementReward, now); err != nil {
					return nil, err
				}
			}
		}
	}
}

// advanceChallenges bumps today's challenge counters for the activity. Only
// the counters move here; completion and rewards stay behind the explicit
// CompleteChallenge operation.
func (e *Engine) advanceChallenges(ctx context.Context, p *progression.UserProgression, delta *progression.Delta, xpGained int, meta ActivityMeta, now time.Time) {
	if e.challengeCatalog == nil {
		return
	}

	perfect := len(meta.Answers) > 0
	for _, correct := range meta.Answers {
		if !correct {
			perfect = false
			break
		}
	}

	for _, ch := range e.challengeCatalog.ForDate(e.cal.DateKey(now)) {
		amount := 0
		switch ch.Requirement {
		case challenge.RequirementEarnXP:
			amount = xpGained
		case challenge.RequirementAnswerQuestions:
			amount = len(meta.Answers)
		case challenge.RequirementPerfectQuiz:
			if perfect {
				amount = 1
			}
		}
		if amount <= 0 {
			continue
		}

		prog, err := e.challenges.FindProgress(ctx, p.UserID, ch.ID)
		if shared.IsNotFound(err) {
			prog = challenge.NewProgress(p.UserID, ch.ID)
		} else if err != nil {
			e.log.Warn("challenge progress read failed",
				logger.ChallengeID(ch.ID), logger.Err(err))
			continue
		}

		prog.Advance(amount, ch.Target)
		delta.ChallengeUpdates = append(delta.ChallengeUpdates, prog)
	}
}

// incrementWindows adds an XP gain to every leaderboard window counter.
func (e *Engine) incrementWindows(delta *progression.Delta, amount int, now time.Time) {
	if amount <= 0 {
		return
	}
	for _, w := range leaderboard.AllWindows() {
		delta.WindowIncrements = append(delta.WindowIncrements, progression.WindowIncrement{
			Window:    w,
			WindowKey: w.KeyAt(e.cal, now),
			Amount:    amount,
			At:        now,
		})
	}
}

// creditGems applies a credit to the aggregate and appends the matching
// ledger entry, keeping the cached balance and the ledger in lockstep.
func (e *Engine) creditGems(p *progression.UserProgression, delta *progression.Delta, amount int, reason economy.Reason, now time.Time) error {
	if err := p.CreditGems(amount); err != nil {
		return err
	}
	entry, err := economy.NewLedgerEntry(p.UserID, amount, reason, p.Gems.Int(), now)
	if err != nil {
		return err
	}
	delta.LedgerEntries = append(delta.LedgerEntries, entry)
	delta.AddEvent(shared.NewGemsCreditedEvent(p.UserID.String(), amount, p.Gems.Int(), string(reason), now))
	return nil
}

// emitStreakEvents translates a streak update into domain events.
func (e *Engine) emitStreakEvents(delta *progression.Delta, p *progression.UserProgression, streak progression.StreakUpdate, now time.Time) {
	switch {
	case streak.Reset:
		delta.AddEvent(shared.NewStreakBrokenEvent(p.UserID.String(),
			streak.PreviousStreak, streak.DaysMissed, streak.FreezesConsumed, now))
	case streak.Extended:
		if streak.FreezesConsumed > 0 {
			last := streak.BridgedDates[len(streak.BridgedDates)-1]
			delta.AddEvent(shared.NewStreakFrozenEvent(p.UserID.String(),
				last, streak.FreezesConsumed, p.StreakFreezes, now))
		}
		delta.AddEvent(shared.NewStreakExtendedEvent(p.UserID.String(),
			p.StreakCurrent, p.StreakLongest, now))
	}
}

// statsOf builds the immutable snapshot requirements are evaluated against.
func (e *Engine) statsOf(p *progression.UserProgression) achievement.Stats {
	return achievement.Stats{
		TotalXP:        p.TotalXP.Int(),
		Level:          p.Level().Int(),
		StreakCurrent:  p.StreakCurrent,
		TotalQuestions: p.TotalQuestions,
		PerfectQuizzes: p.PerfectQuizzes,
		RecentAnswers:  p.RecentAnswers,
	}
}
