package challenge

import (
	"context"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// Repository reads per-user challenge progress. Writes happen only through
// the progression delta so completion and reward grant commit together.
type Repository interface {
	// FindProgress returns the progress row for a (user, challenge) pair.
	// Returns shared.ErrNotFound when the user has not started it.
	FindProgress(ctx context.Context, userID shared.UserID, challengeID string) (*Progress, error)

	// ListProgress returns all progress rows the user has for the given
	// challenge ids.
	ListProgress(ctx context.Context, userID shared.UserID, challengeIDs []string) ([]*Progress, error)
}
