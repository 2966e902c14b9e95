package achievement

import (
	"context"
	"time"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// UserAchievement records one earned achievement. The (UserID,
// AchievementID) pair is unique; inserting an existing pair is a no-op, not
// an error, which is what makes granting idempotent under retries.
type UserAchievement struct {
	UserID        shared.UserID
	AchievementID string
	EarnedAt      time.Time
}

// Repository reads earned achievements. Writes happen only through the
// progression delta so reward application and the grant row commit together.
type Repository interface {
	// ListEarned returns every achievement the user has earned, oldest
	// first.
	ListEarned(ctx context.Context, userID shared.UserID) ([]UserAchievement, error)

	// EarnedIDs returns the earned achievement ids as a set.
	EarnedIDs(ctx context.Context, userID shared.UserID) (map[string]bool, error)
}
