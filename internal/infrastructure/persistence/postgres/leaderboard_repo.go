package postgres

import (
	"context"
	"fmt"

	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository for PostgreSQL.
// The ORDER BY mirrors leaderboard.Ranked exactly, so the database and the
// in-process ranking agree on the total order.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// Top returns the first limit entries of the window with ranks assigned.
func (r *LeaderboardRepository) Top(ctx context.Context, window leaderboard.Window, windowKey string, limit int) ([]leaderboard.Entry, error) {
	query := `
		SELECT user_id, window_type, window_key, xp_in_window, reached_at
		FROM leaderboard_counters
		WHERE window_type = $1 AND window_key = $2
		ORDER BY xp_in_window DESC, reached_at ASC, user_id ASC
		LIMIT $3
	`

	entries, err := r.queryEntries(ctx, query, string(window), windowKey, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = leaderboard.Rank(i + 1)
	}
	return entries, nil
}

// Entries returns all entries of the window without ranking.
func (r *LeaderboardRepository) Entries(ctx context.Context, window leaderboard.Window, windowKey string) ([]leaderboard.Entry, error) {
	query := `
		SELECT user_id, window_type, window_key, xp_in_window, reached_at
		FROM leaderboard_counters
		WHERE window_type = $1 AND window_key = $2
	`

	return r.queryEntries(ctx, query, string(window), windowKey)
}

func (r *LeaderboardRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]leaderboard.Entry, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard counters: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	for rows.Next() {
		var e leaderboard.Entry
		var uid, windowType string
		if err := rows.Scan(&uid, &windowType, &e.WindowKey, &e.XPInWindow, &e.ReachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.UserID = shared.UserID(uid)
		e.Window = leaderboard.Window(windowType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
