package progression

import (
	"time"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// UserProgression Aggregate
// ═══════════════════════════════════════════════════════════════════════════

const (
	// DefaultMaxLives is the life cap for a fresh progression.
	DefaultMaxLives = 5

	// DefaultStartingFreezes is how many streak freezes a new user holds.
	DefaultStartingFreezes = 2

	// maxRecentAnswers bounds the per-user answer window kept for
	// accuracy-based achievement requirements.
	maxRecentAnswers = 100
)

// UserProgression is the per-user progression aggregate. All mutations flow
// through the engine and persist as one atomic delta; Version implements
// optimistic concurrency so concurrent writers for the same user cannot
// interleave read-modify-write cycles.
type UserProgression struct {
	// UserID identifies the owning user.
	UserID shared.UserID

	// TotalXP is the monotonic lifetime XP. It never decreases.
	TotalXP shared.XP

	// Gems is the cached gem balance. It must always equal the sum of the
	// user's ledger deltas; the two are written in the same transaction.
	Gems shared.Gems

	// Lives is the current consumable attempt counter.
	Lives shared.Lives

	// MaxLives caps life refills.
	MaxLives shared.Lives

	// StreakCurrent is the current consecutive-day streak.
	StreakCurrent int

	// StreakLongest is the best streak ever reached.
	StreakLongest int

	// StreakFreezes is the number of unused freeze tokens.
	StreakFreezes int

	// LastActiveDate is the calendar date of the last recorded activity.
	// Zero means the user has never been active.
	LastActiveDate time.Time

	// FrozenDates holds the date keys (YYYY-MM-DD) protected by a freeze,
	// either explicitly via UseFreeze or automatically while bridging a
	// gap. Used for UseFreeze idempotency and gap accounting.
	FrozenDates []string

	// TotalQuestions is the lifetime count of answered questions.
	TotalQuestions int

	// PerfectQuizzes is the lifetime count of quizzes finished without a
	// single wrong answer.
	PerfectQuizzes int

	// RecentAnswers records correctness of the most recent answers, newest
	// last, capped at maxRecentAnswers. Feeds windowed accuracy checks.
	RecentAnswers []bool

	// Version is the optimistic-concurrency token. The store increments it
	// on every successful write and rejects writes against a stale value.
	Version int64

	// CreatedAt is when the progression row was created.
	CreatedAt time.Time

	// UpdatedAt is when the progression row was last written.
	UpdatedAt time.Time
}

// NewUserProgression creates a fresh progression for a user.
func NewUserProgression(userID shared.UserID, now time.Time) *UserProgression {
	return &UserProgression{
		UserID:        userID,
		TotalXP:       0,
		Gems:          0,
		Lives:         DefaultMaxLives,
		MaxLives:      DefaultMaxLives,
		StreakFreezes: DefaultStartingFreezes,
		Version:       0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Level returns the level derived from TotalXP. Never stored independently.
func (p *UserProgression) Level() Level {
	return LevelForXP(p.TotalXP.Int())
}

// AddXP adds a non-negative XP amount and reports whether the derived level
// increased. Negative amounts are rejected: total XP is monotonic.
func (p *UserProgression) AddXP(amount int) (leveledUp bool, err error) {
	if amount < 0 {
		return false, shared.ErrXPDecrease
	}
	before := p.Level()
	p.TotalXP = p.TotalXP.Add(amount)
	return p.Level() > before, nil
}

// CreditGems adds gems to the balance. Crediting always succeeds.
func (p *UserProgression) CreditGems(amount int) error {
	if amount < 0 {
		return shared.NewDomainError("economy", "Credit", shared.ErrNegativeValue, "credit amount cannot be negative")
	}
	p.Gems = shared.Gems(p.Gems.Int() + amount)
	return nil
}

// ConsumeGems debits gems after an in-aggregate balance check. The check is
// race-free because the write is guarded by the version token: a concurrent
// consumer forces a conflict, a re-read, and a re-check.
func (p *UserProgression) ConsumeGems(amount int) error {
	if amount < 0 {
		return shared.NewDomainError("economy", "Consume", shared.ErrNegativeValue, "consume amount cannot be negative")
	}
	if !p.Gems.CanAfford(amount) {
		return shared.ErrInsufficientFunds
	}
	p.Gems = shared.Gems(p.Gems.Int() - amount)
	return nil
}

// SpendLife consumes one life.
func (p *UserProgression) SpendLife() error {
	if p.Lives <= 0 {
		return shared.ErrNoLivesLeft
	}
	p.Lives--
	return nil
}

// AddLives adds lives up to MaxLives.
func (p *UserProgression) AddLives(amount int) {
	if amount <= 0 {
		return
	}
	lives := shared.Lives(p.Lives.Int() + amount)
	if lives > p.MaxLives {
		lives = p.MaxLives
	}
	p.Lives = lives
}

// RefillLives restores lives to the cap.
func (p *UserProgression) RefillLives() {
	p.Lives = p.MaxLives
}

// AddFreezes adds streak freeze tokens.
func (p *UserProgression) AddFreezes(amount int) {
	if amount <= 0 {
		return
	}
	p.StreakFreezes += amount
}

// RecordQuiz updates lifetime quiz stats and the recent-answer window.
// answers holds per-question correctness for the quiz just finished.
func (p *UserProgression) RecordQuiz(answers []bool) {
	if len(answers) == 0 {
		return
	}
	p.TotalQuestions += len(answers)

	perfect := true
	for _, correct := range answers {
		if !correct {
			perfect = false
			break
		}
	}
	if perfect {
		p.PerfectQuizzes++
	}

	p.RecentAnswers = append(p.RecentAnswers, answers...)
	if len(p.RecentAnswers) > maxRecentAnswers {
		p.RecentAnswers = p.RecentAnswers[len(p.RecentAnswers)-maxRecentAnswers:]
	}
}

// AccuracyOver returns the accuracy over the most recent windowSize answers.
// ok is false when fewer than windowSize answers have been recorded.
func (p *UserProgression) AccuracyOver(windowSize int) (accuracy float64, ok bool) {
	if windowSize <= 0 || len(p.RecentAnswers) < windowSize {
		return 0, false
	}
	window := p.RecentAnswers[len(p.RecentAnswers)-windowSize:]
	correct := 0
	for _, c := range window {
		if c {
			correct++
		}
	}
	return float64(correct) / float64(windowSize), true
}
