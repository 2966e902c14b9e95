package progression

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/progression-engine/internal/domain/achievement"
	"github.com/studyhub/progression-engine/internal/domain/challenge"
	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Atomic Mutation Delta
// ═══════════════════════════════════════════════════════════════════════════

// WindowIncrement adds XP to one leaderboard window counter.
type WindowIncrement struct {
	Window    leaderboard.Window
	WindowKey string
	Amount    int
	At        time.Time
}

// XPHistoryEntry records one XP change. The same append-only pattern as the
// gem ledger, applied to XP; feeds windowed stats and audits.
type XPHistoryEntry struct {
	ID        string
	UserID    shared.UserID
	OldXP     int
	NewXP     int
	Delta     int
	Reason    string
	CreatedAt time.Time
}

// NewXPHistoryEntry builds an XP history record.
func NewXPHistoryEntry(userID shared.UserID, oldXP, newXP int, reason string, at time.Time) XPHistoryEntry {
	return XPHistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		OldXP:     oldXP,
		NewXP:     newXP,
		Delta:     newXP - oldXP,
		Reason:    reason,
		CreatedAt: at,
	}
}

// Delta is everything one engine operation changed besides the aggregate
// itself. The store applies the aggregate write and every side row in a
// single transaction, so a partially applied mutation is never observable:
// either the XP, the grant rows, the ledger appends, and the window
// increments all land, or none do.
type Delta struct {
	// LedgerEntries are gem ledger appends, in order.
	LedgerEntries []economy.LedgerEntry

	// AchievementGrants are earned-achievement inserts. The store writes
	// them idempotently (unique on user_id + achievement_id, conflicts
	// ignored).
	AchievementGrants []achievement.UserAchievement

	// ChallengeUpdates are per-user challenge progress upserts.
	ChallengeUpdates []*challenge.Progress

	// WindowIncrements bump leaderboard window counters.
	WindowIncrements []WindowIncrement

	// XPHistory are XP change records.
	XPHistory []XPHistoryEntry

	// Events are published after the delta commits, never before.
	Events []shared.Event
}

// IsEmpty reports whether the delta carries no side rows.
func (d *Delta) IsEmpty() bool {
	return d == nil ||
		(len(d.LedgerEntries) == 0 &&
			len(d.AchievementGrants) == 0 &&
			len(d.ChallengeUpdates) == 0 &&
			len(d.WindowIncrements) == 0 &&
			len(d.XPHistory) == 0)
}

// AddEvent appends a domain event to publish after commit.
func (d *Delta) AddEvent(event shared.Event) {
	d.Events = append(d.Events, event)
}
