package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

func TestRotatingCatalogForDate(t *testing.T) {
	catalog := NewRotatingCatalog()

	challenges := catalog.ForDate("2026-08-31")
	require.Len(t, challenges, 3)

	seen := make(map[RequirementType]bool)
	for _, c := range challenges {
		assert.Equal(t, "2026-08-31", c.ValidDate)
		assert.True(t, c.IsValidOn("2026-08-31"))
		assert.Greater(t, c.Target, 0)
		seen[c.Requirement] = true
	}
	assert.True(t, seen[RequirementEarnXP])
	assert.True(t, seen[RequirementAnswerQuestions])
	assert.True(t, seen[RequirementPerfectQuiz])
}

func TestRotatingCatalogDeterministic(t *testing.T) {
	a := NewRotatingCatalog().ForDate("2026-08-31")
	b := NewRotatingCatalog().ForDate("2026-08-31")
	assert.Equal(t, a, b, "the same date always yields the same challenges")

	next := NewRotatingCatalog().ForDate("2026-09-01")
	require.Len(t, next, len(a))
	for i := range next {
		assert.NotEqual(t, a[i].ID, next[i].ID, "ids are scoped to the date")
	}
}

func TestRotatingCatalogFind(t *testing.T) {
	catalog := NewRotatingCatalog()

	forDate := catalog.ForDate("2026-08-31")
	for _, want := range forDate {
		got, err := catalog.Find(want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := catalog.Find("unknown-slug-2026-08-31")
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)

	_, err = catalog.Find("short")
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)
}
