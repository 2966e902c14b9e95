package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/studyhub/progression-engine/internal/domain/progression"
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionRepository implements progression.Repository for PostgreSQL.
type ProgressionRepository struct {
	conn *Connection
}

// NewProgressionRepository creates a new ProgressionRepository.
func NewProgressionRepository(conn *Connection) *ProgressionRepository {
	return &ProgressionRepository{conn: conn}
}

const progressionColumns = `
	user_id, total_xp, gems, lives, max_lives,
	streak_current, streak_longest, streak_freezes,
	last_active_date, frozen_dates, total_questions, perfect_quizzes,
	recent_answers, version, created_at, updated_at
`

// Find loads a user's progression.
func (r *ProgressionRepository) Find(ctx context.Context, userID shared.UserID) (*progression.UserProgression, error) {
	query := `SELECT ` + progressionColumns + ` FROM user_progressions WHERE user_id = $1`

	row := r.conn.QueryRow(ctx, query, userID.String())
	return scanProgression(row)
}

// Create inserts a fresh progression row.
func (r *ProgressionRepository) Create(ctx context.Context, p *progression.UserProgression) error {
	query := `
		INSERT INTO user_progressions (` + progressionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.conn.Exec(ctx, query,
		p.UserID.String(),
		p.TotalXP.Int(),
		p.Gems.Int(),
		p.Lives.Int(),
		p.MaxLives.Int(),
		p.StreakCurrent,
		p.StreakLongest,
		p.StreakFreezes,
		nullableDate(p.LastActiveDate),
		p.FrozenDates,
		p.TotalQuestions,
		p.PerfectQuizzes,
		p.RecentAnswers,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create progression: %w", err)
	}

	return nil
}

// ApplyDelta writes the mutated aggregate and every side row in one
// transaction. The UPDATE is version-guarded: zero affected rows means a
// concurrent writer won and nothing in the transaction commits.
func (r *ProgressionRepository) ApplyDelta(ctx context.Context, p *progression.UserProgression, delta *progression.Delta) error {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE user_progressions SET
				total_xp = $1, gems = $2, lives = $3, max_lives = $4,
				streak_current = $5, streak_longest = $6, streak_freezes = $7,
				last_active_date = $8, frozen_dates = $9,
				total_questions = $10, perfect_quizzes = $11, recent_answers = $12,
				version = version + 1, updated_at = NOW()
			WHERE user_id = $13 AND version = $14
		`,
			p.TotalXP.Int(),
			p.Gems.Int(),
			p.Lives.Int(),
			p.MaxLives.Int(),
			p.StreakCurrent,
			p.StreakLongest,
			p.StreakFreezes,
			nullableDate(p.LastActiveDate),
			p.FrozenDates,
			p.TotalQuestions,
			p.PerfectQuizzes,
			p.RecentAnswers,
			p.UserID.String(),
			p.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update progression: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrConcurrentModification
		}

		if delta == nil {
			return nil
		}

		for _, entry := range delta.LedgerEntries {
			_, err := tx.Exec(ctx, `
				INSERT INTO gem_ledger (id, user_id, delta, reason, balance_after, item_id, created_at)
				VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
			`, entry.ID, entry.UserID.String(), entry.Delta, string(entry.Reason),
				entry.BalanceAfter, entry.ItemID, entry.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to append ledger entry: %w", err)
			}
		}

		for _, grant := range delta.AchievementGrants {
			// Unique on (user_id, achievement_id): a duplicate grant
			// is a no-op, which keeps reward application idempotent.
			_, err := tx.Exec(ctx, `
				INSERT INTO user_achievements (user_id, achievement_id, earned_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, achievement_id) DO NOTHING
			`, grant.UserID.String(), grant.AchievementID, grant.EarnedAt)
			if err != nil {
				return fmt.Errorf("failed to grant achievement: %w", err)
			}
		}

		for _, prog := range delta.ChallengeUpdates {
			_, err := tx.Exec(ctx, `
				INSERT INTO user_daily_challenges (user_id, challenge_id, progress, completed_at, claimed_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, challenge_id) DO UPDATE SET
					progress = EXCLUDED.progress,
					completed_at = COALESCE(user_daily_challenges.completed_at, EXCLUDED.completed_at),
					claimed_at = COALESCE(user_daily_challenges.claimed_at, EXCLUDED.claimed_at)
			`, prog.UserID.String(), prog.ChallengeID, prog.Current,
				nullableTime(prog.CompletedAt), nullableTime(prog.ClaimedAt))
			if err != nil {
				return fmt.Errorf("failed to upsert challenge progress: %w", err)
			}
		}

		for _, inc := range delta.WindowIncrements {
			_, err := tx.Exec(ctx, `
				INSERT INTO leaderboard_counters (user_id, window_type, window_key, xp_in_window, reached_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, window_type, window_key) DO UPDATE SET
					xp_in_window = leaderboard_counters.xp_in_window + EXCLUDED.xp_in_window,
					reached_at = EXCLUDED.reached_at
			`, p.UserID.String(), string(inc.Window), inc.WindowKey, inc.Amount, inc.At)
			if err != nil {
				return fmt.Errorf("failed to increment window counter: %w", err)
			}
		}

		for _, entry := range delta.XPHistory {
			_, err := tx.Exec(ctx, `
				INSERT INTO xp_history (id, user_id, old_xp, new_xp, delta, reason, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, entry.ID, entry.UserID.String(), entry.OldXP, entry.NewXP,
				entry.Delta, entry.Reason, entry.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to append xp history: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	p.Version++
	return nil
}

// ListXPHistory returns the user's XP change records, newest first.
func (r *ProgressionRepository) ListXPHistory(ctx context.Context, userID shared.UserID, page shared.Pagination) ([]progression.XPHistoryEntry, error) {
	query := `
		SELECT id, user_id, old_xp, new_xp, delta, reason, created_at
		FROM xp_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query xp history: %w", err)
	}
	defer rows.Close()

	var entries []progression.XPHistoryEntry
	for rows.Next() {
		var e progression.XPHistoryEntry
		var uid string
		if err := rows.Scan(&e.ID, &uid, &e.OldXP, &e.NewXP, &e.Delta, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan xp history row: %w", err)
		}
		e.UserID = shared.UserID(uid)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanProgression(row pgx.Row) (*progression.UserProgression, error) {
	var p progression.UserProgression
	var uid string
	var totalXP, gems, lives, maxLives int
	var lastActive *time.Time

	err := row.Scan(
		&uid,
		&totalXP,
		&gems,
		&lives,
		&maxLives,
		&p.StreakCurrent,
		&p.StreakLongest,
		&p.StreakFreezes,
		&lastActive,
		&p.FrozenDates,
		&p.TotalQuestions,
		&p.PerfectQuizzes,
		&p.RecentAnswers,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan progression: %w", err)
	}

	p.UserID = shared.UserID(uid)
	p.TotalXP = shared.XP(totalXP)
	p.Gems = shared.Gems(gems)
	p.Lives = shared.Lives(lives)
	p.MaxLives = shared.Lives(maxLives)
	if lastActive != nil {
		p.LastActiveDate = *lastActive
	}
	return &p, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
