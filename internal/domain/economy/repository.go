package economy

import (
	"context"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// Repository reads the gem ledger. Appends happen only through the
// progression delta so the cached balance and the entry commit together.
type Repository interface {
	// ListEntries returns the user's ledger entries, oldest first.
	ListEntries(ctx context.Context, userID shared.UserID, page shared.Pagination) ([]LedgerEntry, error)

	// BalanceFromLedger recomputes the balance as the sum of all deltas.
	// Used by the audit job to cross-check the cached balance.
	BalanceFromLedger(ctx context.Context, userID shared.UserID) (int, error)

	// UserIDs returns every user present in the ledger. Feeds the audit
	// sweep.
	UserIDs(ctx context.Context) ([]shared.UserID, error)
}
