package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT GEM LEDGER JOB
// ══════════════════════════════════════════════════════════════════════════════

// AuditGemLedgerJob recomputes every user's gem balance from the ledger and
// compares it against the cached balance on the progression aggregate. The
// two are written in the same transaction, so any drift means a bug or
// manual data surgery; the job reports it, it does not repair it.
type AuditGemLedgerJob struct {
	ledger economy.Repository
	store  progression.Repository
	logger *slog.Logger

	lastStats atomic.Value // *AuditStats
}

// AuditStats contains statistics from an audit run.
type AuditStats struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	UsersAudited int
	DriftsFound  int
	Errors       int
}

// NewAuditGemLedgerJob creates the audit job.
func NewAuditGemLedgerJob(ledger economy.Repository, store progression.Repository, logger *slog.Logger) *AuditGemLedgerJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditGemLedgerJob{
		ledger: ledger,
		store:  store,
		logger: logger,
	}
}

// Name implements scheduler.Job.
func (j *AuditGemLedgerJob) Name() string {
	return "audit_gem_ledger"
}

// Description implements scheduler.Job.
func (j *AuditGemLedgerJob) Description() string {
	return "verifies cached gem balances against the sum of ledger deltas"
}

// Run implements scheduler.Job.
func (j *AuditGemLedgerJob) Run(ctx context.Context) error {
	stats := &AuditStats{StartedAt: time.Now()}

	userIDs, err := j.ledger.UserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list ledger users: %w", err)
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fromLedger, err := j.ledger.BalanceFromLedger(ctx, userID)
		if err != nil {
			stats.Errors++
			j.logger.Warn("failed to sum ledger", "user_id", userID.String(), "error", err)
			continue
		}

		p, err := j.store.Find(ctx, userID)
		if err != nil {
			stats.Errors++
			j.logger.Warn("failed to load progression", "user_id", userID.String(), "error", err)
			continue
		}

		stats.UsersAudited++
		if p.Gems.Int() != fromLedger {
			stats.DriftsFound++
			j.logger.Error("gem balance drift detected",
				"user_id", userID.String(),
				"cached_balance", p.Gems.Int(),
				"ledger_balance", fromLedger,
			)
		}
	}

	stats.CompletedAt = time.Now()
	j.lastStats.Store(stats)

	j.logger.Info("gem ledger audit finished",
		"users", stats.UsersAudited,
		"drifts", stats.DriftsFound,
		"errors", stats.Errors,
	)

	return nil
}

// LastStats returns statistics from the most recent run, or nil.
func (j *AuditGemLedgerJob) LastStats() *AuditStats {
	stats, _ := j.lastStats.Load().(*AuditStats)
	return stats
}
