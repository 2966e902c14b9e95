// Package challenge models calendar-scoped daily challenges and the per-user
// completion/reward cycle. A challenge is valid for exactly one date;
// progress moves NotStarted → InProgress → Completed → Claimed at most once
// per (user, challenge) pair.
package challenge

import (
	"time"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Daily Challenge Catalog
// ═══════════════════════════════════════════════════════════════════════════

// RequirementType classifies what a challenge counts.
type RequirementType string

const (
	RequirementEarnXP          RequirementType = "earn_xp"
	RequirementAnswerQuestions RequirementType = "answer_questions"
	RequirementPerfectQuiz     RequirementType = "perfect_quiz"
)

// Rewards is what completing a challenge grants. Completion and reward grant
// commit in one atomic delta.
type Rewards struct {
	XP    int
	Gems  int
	Lives int
}

// DailyChallenge is a catalog entry scoped to a single calendar date.
type DailyChallenge struct {
	ID string

	// ValidDate is the date key (YYYY-MM-DD) the challenge belongs to.
	ValidDate string

	Title string

	// Requirement counts toward Target.
	Requirement RequirementType
	Target      int

	Rewards Rewards
}

// IsValidOn checks whether the challenge belongs to the given date key.
func (c DailyChallenge) IsValidOn(dateKey string) bool {
	return c.ValidDate == dateKey
}

// Catalog is a read-only source of daily challenge definitions.
type Catalog interface {
	// ForDate returns the challenges valid on the given date key.
	ForDate(dateKey string) []DailyChallenge

	// Find returns the challenge with the given id.
	Find(id string) (DailyChallenge, error)
}

type staticCatalog struct {
	ordered []DailyChallenge
	byID    map[string]DailyChallenge
}

// NewCatalogWith returns a catalog over the given challenges. Production
// wiring generates a rotating set per date; tests pin explicit entries.
func NewCatalogWith(challenges []DailyChallenge) Catalog {
	byID := make(map[string]DailyChallenge, len(challenges))
	for _, c := range challenges {
		byID[c.ID] = c
	}
	return &staticCatalog{ordered: challenges, byID: byID}
}

// ForDate implements Catalog.
func (c *staticCatalog) ForDate(dateKey string) []DailyChallenge {
	var out []DailyChallenge
	for _, ch := range c.ordered {
		if ch.IsValidOn(dateKey) {
			out = append(out, ch)
		}
	}
	return out
}

// Find implements Catalog.
func (c *staticCatalog) Find(id string) (DailyChallenge, error) {
	ch, ok := c.byID[id]
	if !ok {
		return DailyChallenge{}, shared.ErrChallengeNotFound
	}
	return ch, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Per-User Progress State Machine
// ═══════════════════════════════════════════════════════════════════════════

// State is the progress state of a (user, challenge) pair.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCompleted
	StateClaimed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// Progress tracks a user's advance through one daily challenge.
type Progress struct {
	UserID      shared.UserID
	ChallengeID string

	// Current counts toward the challenge target.
	Current int

	CompletedAt time.Time
	ClaimedAt   time.Time
}

// NewProgress creates an empty progress row.
func NewProgress(userID shared.UserID, challengeID string) *Progress {
	return &Progress{UserID: userID, ChallengeID: challengeID}
}

// State derives the current state.
func (p *Progress) State() State {
	switch {
	case !p.ClaimedAt.IsZero():
		return StateClaimed
	case !p.CompletedAt.IsZero():
		return StateCompleted
	case p.Current > 0:
		return StateInProgress
	default:
		return StateNotStarted
	}
}

// IsCompleted reports whether completion has been recorded.
func (p *Progress) IsCompleted() bool {
	return !p.CompletedAt.IsZero()
}

// Advance adds to the progress counter and reports whether the target was
// just reached. Completed challenges ignore further progress.
func (p *Progress) Advance(amount, target int) (justCompleted bool) {
	if amount <= 0 || p.IsCompleted() {
		return false
	}
	p.Current += amount
	return p.Current >= target
}

// Complete records completion. Completing twice is rejected so rewards can
// never be granted more than once.
func (p *Progress) Complete(at time.Time) error {
	if p.IsCompleted() {
		return shared.ErrChallengeAlreadyCompleted
	}
	p.CompletedAt = at
	return nil
}

// Claim records the reward claim. Requires prior completion; claiming twice
// is rejected.
func (p *Progress) Claim(at time.Time) error {
	if !p.IsCompleted() {
		return shared.ErrChallengeNotCompleted
	}
	if !p.ClaimedAt.IsZero() {
		return shared.ErrChallengeAlreadyClaimed
	}
	p.ClaimedAt = at
	return nil
}
