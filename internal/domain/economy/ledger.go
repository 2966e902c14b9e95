// Package economy models the gem currency: an append-only signed ledger with
// reason codes, and the store item catalog purchases are validated against.
// The cached balance on the progression aggregate is derived state; the
// ledger is the source of truth and the two are written in one transaction.
package economy

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Ledger
// ═══════════════════════════════════════════════════════════════════════════

// Reason classifies a ledger entry.
type Reason string

const (
	ReasonPurchase          Reason = "purchase"
	ReasonAchievementReward Reason = "achievement_reward"
	ReasonChallengeReward   Reason = "challenge_reward"
	ReasonAdminAdjustment   Reason = "admin_adjustment"
	ReasonConsumption       Reason = "consumption"
)

// IsValid checks the reason is one of the known codes.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonPurchase, ReasonAchievementReward, ReasonChallengeReward,
		ReasonAdminAdjustment, ReasonConsumption:
		return true
	}
	return false
}

// LedgerEntry is one immutable balance change. Entries are only ever
// appended; corrections are new entries with ReasonAdminAdjustment.
type LedgerEntry struct {
	// ID uniquely identifies the entry.
	ID string

	// UserID is the owner of the balance.
	UserID shared.UserID

	// Delta is the signed change. Never zero.
	Delta int

	// Reason classifies the change.
	Reason Reason

	// BalanceAfter is the balance immediately after applying Delta.
	BalanceAfter int

	// ItemID references the purchased store item, when Reason is
	// purchase or consumption.
	ItemID string

	// CreatedAt is when the entry was written.
	CreatedAt time.Time
}

// NewLedgerEntry builds a validated ledger entry.
func NewLedgerEntry(userID shared.UserID, delta int, reason Reason, balanceAfter int, createdAt time.Time) (LedgerEntry, error) {
	if delta == 0 {
		return LedgerEntry{}, shared.ErrInvalidLedgerDelta
	}
	if !reason.IsValid() {
		return LedgerEntry{}, shared.NewDomainError("economy", "NewLedgerEntry", shared.ErrInvalidInput, "unknown ledger reason "+string(reason))
	}
	if balanceAfter < 0 {
		return LedgerEntry{}, shared.NewDomainError("economy", "NewLedgerEntry", shared.ErrNegativeValue, "ledger balance cannot go negative")
	}
	return LedgerEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		Delta:        delta,
		Reason:       reason,
		BalanceAfter: balanceAfter,
		CreatedAt:    createdAt,
	}, nil
}

// WithItem attaches the store item the entry relates to.
func (e LedgerEntry) WithItem(itemID string) LedgerEntry {
	e.ItemID = itemID
	return e
}

// SumDeltas folds a slice of entries into the balance they imply. The audit
// job compares this against the cached balance to detect drift.
func SumDeltas(entries []LedgerEntry) int {
	sum := 0
	for _, e := range entries {
		sum += e.Delta
	}
	return sum
}
