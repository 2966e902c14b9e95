// Package jobs contains implementations of scheduled jobs for the
// progression engine.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD CACHE JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardCacheJob refreshes the Redis leaderboard cache from the
// authoritative PostgreSQL counters. Only the currently active key of each
// window is rebuilt: past windows are frozen and expire out of the cache on
// their own.
type RebuildLeaderboardCacheJob struct {
	boards   leaderboard.Repository
	cache    leaderboard.Cache
	clock    timeutil.Clock
	calendar timeutil.Calendar
	logger   *slog.Logger
	timeout  time.Duration

	lastStats atomic.Value // *RebuildStats
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	WindowsProcessed int
	EntriesCached    int
	Errors           int
}

// NewRebuildLeaderboardCacheJob creates the rebuild job.
func NewRebuildLeaderboardCacheJob(
	boards leaderboard.Repository,
	cache leaderboard.Cache,
	clock timeutil.Clock,
	calendar timeutil.Calendar,
	logger *slog.Logger,
) *RebuildLeaderboardCacheJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RebuildLeaderboardCacheJob{
		boards:   boards,
		cache:    cache,
		clock:    clock,
		calendar: calendar,
		logger:   logger,
		timeout:  2 * time.Minute,
	}
}

// Name implements scheduler.Job.
func (j *RebuildLeaderboardCacheJob) Name() string {
	return "rebuild_leaderboard_cache"
}

// Description implements scheduler.Job.
func (j *RebuildLeaderboardCacheJob) Description() string {
	return "refreshes the Redis leaderboard cache from authoritative window counters"
}

// Run implements scheduler.Job.
func (j *RebuildLeaderboardCacheJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	now := j.clock.Now()
	stats := &RebuildStats{StartedAt: now}
	var errs []error

	for _, window := range leaderboard.AllWindows() {
		key := window.KeyAt(j.calendar, now)

		entries, err := j.boards.Entries(ctx, window, key)
		if err != nil {
			stats.Errors++
			errs = append(errs, fmt.Errorf("load %s/%s: %w", window, key, err))
			continue
		}

		ranked := leaderboard.Ranked(entries)
		if err := j.cache.Rebuild(ctx, window, key, ranked); err != nil {
			stats.Errors++
			errs = append(errs, fmt.Errorf("rebuild %s/%s: %w", window, key, err))
			continue
		}

		stats.WindowsProcessed++
		stats.EntriesCached += len(ranked)

		j.logger.Debug("leaderboard window cached",
			"window", string(window),
			"window_key", key,
			"entries", len(ranked),
		)
	}

	stats.CompletedAt = j.clock.Now()
	j.lastStats.Store(stats)

	j.logger.Info("leaderboard cache rebuilt",
		"windows", stats.WindowsProcessed,
		"entries", stats.EntriesCached,
		"errors", stats.Errors,
	)

	return errors.Join(errs...)
}

// LastStats returns statistics from the most recent run, or nil.
func (j *RebuildLeaderboardCacheJob) LastStats() *RebuildStats {
	stats, _ := j.lastStats.Load().(*RebuildStats)
	return stats
}
