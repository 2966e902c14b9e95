package challenge

import (
	"fmt"
	"hash/fnv"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Rotating Catalog
// ═══════════════════════════════════════════════════════════════════════════

// challengeTemplate is a definition the rotating catalog stamps onto a
// concrete date.
type challengeTemplate struct {
	slug        string
	title       string
	requirement RequirementType

	// targets to rotate through; the date hash picks one.
	targets []int

	rewards Rewards
}

var rotatingTemplates = []challengeTemplate{
	{
		slug:        "daily-xp",
		title:       "Earn your daily XP",
		requirement: RequirementEarnXP,
		targets:     []int{50, 80, 120},
		rewards:     Rewards{XP: 20, Gems: 5},
	},
	{
		slug:        "question-grind",
		title:       "Answer questions",
		requirement: RequirementAnswerQuestions,
		targets:     []int{10, 15, 25},
		rewards:     Rewards{XP: 15, Gems: 5},
	},
	{
		slug:        "flawless",
		title:       "Finish a perfect quiz",
		requirement: RequirementPerfectQuiz,
		targets:     []int{1},
		rewards:     Rewards{XP: 30, Gems: 10, Lives: 1},
	},
}

// rotatingCatalog generates the day's challenges deterministically from
// the date key, so every instance of the service agrees on the catalog
// without any storage.
type rotatingCatalog struct {
	templates []challengeTemplate
}

// NewRotatingCatalog returns the production catalog: a fixed template set
// stamped onto each date, with targets varied by a hash of the date.
func NewRotatingCatalog() Catalog {
	return &rotatingCatalog{templates: rotatingTemplates}
}

// ForDate implements Catalog.
func (c *rotatingCatalog) ForDate(dateKey string) []DailyChallenge {
	out := make([]DailyChallenge, 0, len(c.templates))
	for _, tmpl := range c.templates {
		out = append(out, tmpl.instantiate(dateKey))
	}
	return out
}

// Find implements Catalog. Rotating ids look like "daily-xp-2026-08-31":
// the trailing ten characters are the date key.
func (c *rotatingCatalog) Find(id string) (DailyChallenge, error) {
	const dateKeyLen = 10
	if len(id) < dateKeyLen+2 {
		return DailyChallenge{}, shared.ErrChallengeNotFound
	}

	dateKey := id[len(id)-dateKeyLen:]
	slug := id[:len(id)-dateKeyLen-1]

	for _, tmpl := range c.templates {
		if tmpl.slug == slug {
			return tmpl.instantiate(dateKey), nil
		}
	}
	return DailyChallenge{}, shared.ErrChallengeNotFound
}

func (t challengeTemplate) instantiate(dateKey string) DailyChallenge {
	return DailyChallenge{
		ID:          fmt.Sprintf("%s-%s", t.slug, dateKey),
		ValidDate:   dateKey,
		Title:       t.title,
		Requirement: t.requirement,
		Target:      t.targets[dateBucket(dateKey)%len(t.targets)],
		Rewards:     t.rewards,
	}
}

// dateBucket maps a date key to a stable small number.
func dateBucket(dateKey string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(dateKey))
	return int(h.Sum32() % 64)
}
