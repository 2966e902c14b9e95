// Package memory provides an in-memory implementation of every repository
// interface. It backs tests and single-node development runs and mirrors
// the transactional guarantees of the Postgres store: a delta applies
// atomically under the owning user's lock, and writes are rejected on a
// version mismatch.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/studyhub/progression-engine/internal/domain/achievement"
	"github.com/studyhub/progression-engine/internal/domain/challenge"
	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/progression"
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// Store holds all progression state in process memory. Safe for concurrent
// use: map access is guarded by mu, and per-user writes serialize on a
// per-user mutex so different users never contend.
type Store struct {
	mu        sync.RWMutex
	userLocks map[shared.UserID]*sync.Mutex

	progressions map[shared.UserID]*progression.UserProgression
	ledger       map[shared.UserID][]economy.LedgerEntry
	earned       map[shared.UserID]map[string]achievement.UserAchievement
	challenges   map[shared.UserID]map[string]*challenge.Progress
	windows      map[windowKey]*leaderboard.Entry
	xpHistory    map[shared.UserID][]progression.XPHistoryEntry
}

type windowKey struct {
	userID shared.UserID
	window leaderboard.Window
	key    string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		userLocks:    make(map[shared.UserID]*sync.Mutex),
		progressions: make(map[shared.UserID]*progression.UserProgression),
		ledger:       make(map[shared.UserID][]economy.LedgerEntry),
		earned:       make(map[shared.UserID]map[string]achievement.UserAchievement),
		challenges:   make(map[shared.UserID]map[string]*challenge.Progress),
		windows:      make(map[windowKey]*leaderboard.Entry),
		xpHistory:    make(map[shared.UserID][]progression.XPHistoryEntry),
	}
}

func (s *Store) lockFor(userID shared.UserID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// ═══════════════════════════════════════════════════════════════════════════
// progression.Repository
// ═══════════════════════════════════════════════════════════════════════════

// Find implements progression.Repository.
func (s *Store) Find(_ context.Context, userID shared.UserID) (*progression.UserProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progressions[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return cloneProgression(p), nil
}

// Create implements progression.Repository.
func (s *Store) Create(_ context.Context, p *progression.UserProgression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progressions[p.UserID]; ok {
		return shared.ErrUserAlreadyExists
	}
	s.progressions[p.UserID] = cloneProgression(p)
	return nil
}

// ApplyDelta implements progression.Repository. The whole delta lands under
// the user's lock; a version mismatch writes nothing.
func (s *Store) ApplyDelta(_ context.Context, p *progression.UserProgression, delta *progression.Delta) error {
	lock := s.lockFor(p.UserID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.progressions[p.UserID]
	if !ok {
		return shared.ErrUserNotFound
	}
	if stored.Version != p.Version {
		return shared.ErrConcurrentModification
	}

	p.Version++
	s.progressions[p.UserID] = cloneProgression(p)

	if delta == nil {
		return nil
	}

	s.ledger[p.UserID] = append(s.ledger[p.UserID], delta.LedgerEntries...)

	for _, grant := range delta.AchievementGrants {
		byID, ok := s.earned[grant.UserID]
		if !ok {
			byID = make(map[string]achievement.UserAchievement)
			s.earned[grant.UserID] = byID
		}
		// Unique on (user, achievement): an existing grant stays as is.
		if _, exists := byID[grant.AchievementID]; !exists {
			byID[grant.AchievementID] = grant
		}
	}

	for _, prog := range delta.ChallengeUpdates {
		byID, ok := s.challenges[prog.UserID]
		if !ok {
			byID = make(map[string]*challenge.Progress)
			s.challenges[prog.UserID] = byID
		}
		clone := *prog
		byID[prog.ChallengeID] = &clone
	}

	for _, inc := range delta.WindowIncrements {
		key := windowKey{userID: p.UserID, window: inc.Window, key: inc.WindowKey}
		entry, ok := s.windows[key]
		if !ok {
			entry = &leaderboard.Entry{
				UserID:    p.UserID,
				Window:    inc.Window,
				WindowKey: inc.WindowKey,
			}
			s.windows[key] = entry
		}
		entry.Increment(inc.Amount, inc.At)
	}

	s.xpHistory[p.UserID] = append(s.xpHistory[p.UserID], delta.XPHistory...)
	return nil
}

// ListXPHistory implements progression.Repository.
func (s *Store) ListXPHistory(_ context.Context, userID shared.UserID, page shared.Pagination) ([]progression.XPHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.xpHistory[userID]
	// Newest first.
	out := make([]progression.XPHistoryEntry, len(history))
	for i, e := range history {
		out[len(history)-1-i] = e
	}
	return paginate(out, page), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// achievement.Repository
// ═══════════════════════════════════════════════════════════════════════════

// ListEarned implements achievement.Repository.
func (s *Store) ListEarned(_ context.Context, userID shared.UserID) ([]achievement.UserAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.earned[userID]
	out := make([]achievement.UserAchievement, 0, len(byID))
	for _, ua := range byID {
		out = append(out, ua)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EarnedAt.Equal(out[j].EarnedAt) {
			return out[i].EarnedAt.Before(out[j].EarnedAt)
		}
		return out[i].AchievementID < out[j].AchievementID
	})
	return out, nil
}

// EarnedIDs implements achievement.Repository.
func (s *Store) EarnedIDs(_ context.Context, userID shared.UserID) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]bool, len(s.earned[userID]))
	for id := range s.earned[userID] {
		ids[id] = true
	}
	return ids, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// challenge.Repository
// ═══════════════════════════════════════════════════════════════════════════

// FindProgress implements challenge.Repository.
func (s *Store) FindProgress(_ context.Context, userID shared.UserID, challengeID string) (*challenge.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prog, ok := s.challenges[userID][challengeID]
	if !ok {
		return nil, shared.ErrChallengeNotFound
	}
	clone := *prog
	return &clone, nil
}

// ListProgress implements challenge.Repository.
func (s *Store) ListProgress(_ context.Context, userID shared.UserID, challengeIDs []string) ([]*challenge.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*challenge.Progress
	for _, id := range challengeIDs {
		if prog, ok := s.challenges[userID][id]; ok {
			clone := *prog
			out = append(out, &clone)
		}
	}
	return out, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// economy.Repository
// ═══════════════════════════════════════════════════════════════════════════

// ListEntries implements economy.Repository.
func (s *Store) ListEntries(_ context.Context, userID shared.UserID, page shared.Pagination) ([]economy.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.ledger[userID]
	out := make([]economy.LedgerEntry, len(entries))
	copy(out, entries)
	return paginate(out, page), nil
}

// BalanceFromLedger implements economy.Repository.
func (s *Store) BalanceFromLedger(_ context.Context, userID shared.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return economy.SumDeltas(s.ledger[userID]), nil
}

// UserIDs implements economy.Repository.
func (s *Store) UserIDs(_ context.Context) ([]shared.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]shared.UserID, 0, len(s.ledger))
	for id := range s.ledger {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// leaderboard.Repository
// ═══════════════════════════════════════════════════════════════════════════

// Top implements leaderboard.Repository.
func (s *Store) Top(ctx context.Context, window leaderboard.Window, key string, limit int) ([]leaderboard.Entry, error) {
	entries, err := s.Entries(ctx, window, key)
	if err != nil {
		return nil, err
	}
	ranked := leaderboard.Ranked(entries)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Entries implements leaderboard.Repository.
func (s *Store) Entries(_ context.Context, window leaderboard.Window, key string) ([]leaderboard.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []leaderboard.Entry
	for wk, entry := range s.windows {
		if wk.window == window && wk.key == key {
			out = append(out, *entry)
		}
	}
	return out, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Helpers
// ═══════════════════════════════════════════════════════════════════════════

func cloneProgression(p *progression.UserProgression) *progression.UserProgression {
	clone := *p
	clone.FrozenDates = append([]string(nil), p.FrozenDates...)
	clone.RecentAnswers = append([]bool(nil), p.RecentAnswers...)
	return &clone
}

func paginate[T any](items []T, page shared.Pagination) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return nil
	}
	end := offset + page.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
