package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-engine/internal/domain/achievement"
	"github.com/studyhub/progression-engine/internal/domain/challenge"
	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// ListEarned returns every achievement the user has earned, oldest first.
func (r *AchievementRepository) ListEarned(ctx context.Context, userID shared.UserID) ([]achievement.UserAchievement, error) {
	query := `
		SELECT user_id, achievement_id, earned_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY earned_at ASC, achievement_id ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query earned achievements: %w", err)
	}
	defer rows.Close()

	var earned []achievement.UserAchievement
	for rows.Next() {
		var ua achievement.UserAchievement
		var uid string
		if err := rows.Scan(&uid, &ua.AchievementID, &ua.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement row: %w", err)
		}
		ua.UserID = shared.UserID(uid)
		earned = append(earned, ua)
	}
	return earned, rows.Err()
}

// EarnedIDs returns the earned achievement ids as a set.
func (r *AchievementRepository) EarnedIDs(ctx context.Context, userID shared.UserID) (map[string]bool, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT achievement_id FROM user_achievements WHERE user_id = $1`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query earned ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan achievement id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// GEM LEDGER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements economy.Repository for PostgreSQL.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// ListEntries returns the user's ledger entries, oldest first.
func (r *LedgerRepository) ListEntries(ctx context.Context, userID shared.UserID, page shared.Pagination) ([]economy.LedgerEntry, error) {
	query := `
		SELECT id, user_id, delta, reason, balance_after, COALESCE(item_id, ''), created_at
		FROM gem_ledger
		WHERE user_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []economy.LedgerEntry
	for rows.Next() {
		var e economy.LedgerEntry
		var uid, reason string
		if err := rows.Scan(&e.ID, &uid, &e.Delta, &reason, &e.BalanceAfter, &e.ItemID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		e.UserID = shared.UserID(uid)
		e.Reason = economy.Reason(reason)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// BalanceFromLedger recomputes the balance as the sum of all deltas.
func (r *LedgerRepository) BalanceFromLedger(ctx context.Context, userID shared.UserID) (int, error) {
	var balance int
	err := r.conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM gem_ledger WHERE user_id = $1`,
		userID.String()).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger deltas: %w", err)
	}
	return balance, nil
}

// UserIDs returns every user present in the ledger.
func (r *LedgerRepository) UserIDs(ctx context.Context) ([]shared.UserID, error) {
	rows, err := r.conn.Query(ctx, `SELECT DISTINCT user_id FROM gem_ledger ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger users: %w", err)
	}
	defer rows.Close()

	var ids []shared.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, shared.UserID(id))
	}
	return ids, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeRepository implements challenge.Repository for PostgreSQL.
type ChallengeRepository struct {
	conn *Connection
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(conn *Connection) *ChallengeRepository {
	return &ChallengeRepository{conn: conn}
}

// FindProgress returns the progress row for a (user, challenge) pair.
func (r *ChallengeRepository) FindProgress(ctx context.Context, userID shared.UserID, challengeID string) (*challenge.Progress, error) {
	query := `
		SELECT user_id, challenge_id, progress, completed_at, claimed_at
		FROM user_daily_challenges
		WHERE user_id = $1 AND challenge_id = $2
	`

	var p challenge.Progress
	var uid string
	var completedAt, claimedAt *time.Time
	err := r.conn.QueryRow(ctx, query, userID.String(), challengeID).
		Scan(&uid, &p.ChallengeID, &p.Current, &completedAt, &claimedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to scan challenge progress: %w", err)
	}

	p.UserID = shared.UserID(uid)
	if completedAt != nil {
		p.CompletedAt = *completedAt
	}
	if claimedAt != nil {
		p.ClaimedAt = *claimedAt
	}
	return &p, nil
}

// ListProgress returns all progress rows the user has for the given ids.
func (r *ChallengeRepository) ListProgress(ctx context.Context, userID shared.UserID, challengeIDs []string) ([]*challenge.Progress, error) {
	if len(challengeIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT user_id, challenge_id, progress, completed_at, claimed_at
		FROM user_daily_challenges
		WHERE user_id = $1 AND challenge_id = ANY($2)
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), challengeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge progress: %w", err)
	}
	defer rows.Close()

	var out []*challenge.Progress
	for rows.Next() {
		var p challenge.Progress
		var uid string
		var completedAt, claimedAt *time.Time
		if err := rows.Scan(&uid, &p.ChallengeID, &p.Current, &completedAt, &claimedAt); err != nil {
			return nil, fmt.Errorf("failed to scan challenge row: %w", err)
		}
		p.UserID = shared.UserID(uid)
		if completedAt != nil {
			p.CompletedAt = *completedAt
		}
		if claimedAt != nil {
			p.ClaimedAt = *claimedAt
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
