// Package achievement defines the static achievement catalog, the sealed
// requirement variants, and the evaluator that decides which achievements a
// stats snapshot unlocks. Granting itself is idempotent at the persistence
// layer: user_achievements is unique on (user_id, achievement_id).
package achievement

import (
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Requirements (sealed variant set)
// ═══════════════════════════════════════════════════════════════════════════

// Requirement is the predicate gating an achievement. The variant set is
// closed: Evaluate switches exhaustively over these types and rejects
// anything else, so requirements can never degrade into stringly-typed data.
type Requirement interface {
	isRequirement()
}

// MinTotalXP unlocks at a lifetime XP total.
type MinTotalXP struct {
	Value int
}

// MinLevel unlocks at a derived level.
type MinLevel struct {
	Value int
}

// MinStreak unlocks at a current-streak length.
type MinStreak struct {
	Value int
}

// MinQuestions unlocks at a lifetime answered-question count.
type MinQuestions struct {
	Value int
}

// MinPerfectQuizzes unlocks at a lifetime count of flawless quizzes.
type MinPerfectQuizzes struct {
	Value int
}

// AccuracyOverWindow unlocks when accuracy over the most recent WindowSize
// answers reaches Threshold. Locked until the window is full.
type AccuracyOverWindow struct {
	Threshold  float64
	WindowSize int
}

func (MinTotalXP) isRequirement()         {}
func (MinLevel) isRequirement()           {}
func (MinStreak) isRequirement()          {}
func (MinQuestions) isRequirement()       {}
func (MinPerfectQuizzes) isRequirement()  {}
func (AccuracyOverWindow) isRequirement() {}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Catalog
// ═══════════════════════════════════════════════════════════════════════════

// Category groups achievements for display.
type Category string

const (
	CategoryProgress Category = "progress"
	CategoryStreak   Category = "streak"
	CategoryMastery  Category = "mastery"
)

// Rarity indicates how hard an achievement is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Achievement is a static catalog entry. The catalog lives in code and is
// read-only at runtime.
type Achievement struct {
	ID          string
	Category    Category
	Title       string
	Description string
	Requirement Requirement
	XPReward    int
	GemReward   int
	Rarity      Rarity
}

// Catalog is a read-only source of achievement definitions.
type Catalog interface {
	// All returns every achievement in a stable order.
	All() []Achievement

	// Find returns the achievement with the given id.
	Find(id string) (Achievement, error)
}

// staticCatalog serves the built-in definitions.
type staticCatalog struct {
	ordered []Achievement
	byID    map[string]Achievement
}

// NewCatalog returns the built-in achievement catalog.
func NewCatalog() Catalog {
	return newStaticCatalog(definitions())
}

// NewCatalogWith returns a catalog over the given definitions. Tests use it
// to pin a small, predictable set.
func NewCatalogWith(achievements []Achievement) Catalog {
	return newStaticCatalog(achievements)
}

func newStaticCatalog(achievements []Achievement) *staticCatalog {
	byID := make(map[string]Achievement, len(achievements))
	for _, a := range achievements {
		byID[a.ID] = a
	}
	return &staticCatalog{ordered: achievements, byID: byID}
}

// All implements Catalog.
func (c *staticCatalog) All() []Achievement {
	out := make([]Achievement, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Find implements Catalog.
func (c *staticCatalog) Find(id string) (Achievement, error) {
	a, ok := c.byID[id]
	if !ok {
		return Achievement{}, shared.ErrAchievementNotFound
	}
	return a, nil
}

// definitions returns the built-in achievement set.
func definitions() []Achievement {
	return []Achievement{
		{ID: "xp_300", Category: CategoryProgress, Title: "Warming Up", Description: "Earn 300 XP", Requirement: MinTotalXP{Value: 300}, XPReward: 0, GemReward: 10, Rarity: RarityCommon},
		{ID: "xp_1000", Category: CategoryProgress, Title: "Committed", Description: "Earn 1,000 XP", Requirement: MinTotalXP{Value: 1000}, XPReward: 0, GemReward: 25, Rarity: RarityCommon},
		{ID: "xp_10000", Category: CategoryProgress, Title: "Scholar", Description: "Earn 10,000 XP", Requirement: MinTotalXP{Value: 10000}, XPReward: 0, GemReward: 100, Rarity: RarityRare},
		{ID: "level_5", Category: CategoryProgress, Title: "Apprentice", Description: "Reach level 5", Requirement: MinLevel{Value: 5}, XPReward: 50, GemReward: 20, Rarity: RarityCommon},
		{ID: "level_10", Category: CategoryProgress, Title: "Journeyman", Description: "Reach level 10", Requirement: MinLevel{Value: 10}, XPReward: 100, GemReward: 50, Rarity: RarityRare},
		{ID: "level_25", Category: CategoryProgress, Title: "Master", Description: "Reach level 25", Requirement: MinLevel{Value: 25}, XPReward: 250, GemReward: 150, Rarity: RarityEpic},
		{ID: "streak_7", Category: CategoryStreak, Title: "Week of Fire", Description: "Keep a 7-day streak", Requirement: MinStreak{Value: 7}, XPReward: 50, GemReward: 15, Rarity: RarityCommon},
		{ID: "streak_30", Category: CategoryStreak, Title: "Iron Will", Description: "Keep a 30-day streak", Requirement: MinStreak{Value: 30}, XPReward: 200, GemReward: 75, Rarity: RarityEpic},
		{ID: "streak_100", Category: CategoryStreak, Title: "Unstoppable", Description: "Keep a 100-day streak", Requirement: MinStreak{Value: 100}, XPReward: 500, GemReward: 250, Rarity: RarityLegendary},
		{ID: "questions_100", Category: CategoryMastery, Title: "Curious Mind", Description: "Answer 100 questions", Requirement: MinQuestions{Value: 100}, XPReward: 50, GemReward: 15, Rarity: RarityCommon},
		{ID: "questions_1000", Category: CategoryMastery, Title: "Quiz Machine", Description: "Answer 1,000 questions", Requirement: MinQuestions{Value: 1000}, XPReward: 200, GemReward: 75, Rarity: RarityRare},
		{ID: "perfect_10", Category: CategoryMastery, Title: "Perfectionist", Description: "Finish 10 quizzes without a mistake", Requirement: MinPerfectQuizzes{Value: 10}, XPReward: 100, GemReward: 40, Rarity: RarityRare},
		{ID: "sharpshooter", Category: CategoryMastery, Title: "Sharpshooter", Description: "Hit 90% accuracy over your last 50 answers", Requirement: AccuracyOverWindow{Threshold: 0.9, WindowSize: 50}, XPReward: 150, GemReward: 60, Rarity: RarityEpic},
	}
}
