package progression

import (
	"context"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// Repository persists the progression aggregate. Implementations live in the
// infrastructure layer (PostgreSQL, in-memory).
type Repository interface {
	// Find loads a user's progression. Returns shared.ErrNotFound when
	// the user has no row yet.
	Find(ctx context.Context, userID shared.UserID) (*UserProgression, error)

	// Create inserts a fresh progression. Returns shared.ErrAlreadyExists
	// when a row is present.
	Create(ctx context.Context, p *UserProgression) error

	// ApplyDelta writes the mutated aggregate and every side row in the
	// delta as one atomic unit, guarded by the aggregate's Version: when
	// the stored version no longer matches, nothing is written and
	// shared.ErrConcurrentModification is returned so the caller can
	// re-read and retry. On success the aggregate's Version is advanced
	// in place.
	ApplyDelta(ctx context.Context, p *UserProgression, delta *Delta) error

	// ListXPHistory returns the user's XP change records, newest first.
	ListXPHistory(ctx context.Context, userID shared.UserID, page shared.Pagination) ([]XPHistoryEntry, error)
}
