package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements leaderboard.Cache using Redis Sorted Sets.
//
// Architecture:
//   - Sorted Set "leaderboard:xp:{window}:{key}" stores userID -> XPInWindow
//   - Hash "leaderboard:info:{window}:{key}" stores userID -> entry JSON
//
// The sorted set gives O(log N + M) top queries; the hash carries the
// fields a score cannot (ReachedAt). Members pulled from the set are
// re-ranked through leaderboard.Ranked before returning, so ties resolve
// exactly as the authoritative store resolves them.
type LeaderboardCache struct {
	cache *Cache
}

// Key patterns for leaderboard cache.
const (
	// keyLeaderboardXP is the sorted set for XP rankings.
	keyLeaderboardXP = "leaderboard:xp:"

	// keyLeaderboardInfo is the hash for entry details.
	keyLeaderboardInfo = "leaderboard:info:"
)

// cachedEntry is the JSON shape stored in the info hash.
type cachedEntry struct {
	UserID     string    `json:"user_id"`
	XPInWindow int       `json:"xp_in_window"`
	ReachedAt  time.Time `json:"reached_at"`
}

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

func windowSuffix(window leaderboard.Window, windowKey string) string {
	return string(window) + ":" + windowKey
}

// ══════════════════════════════════════════════════════════════════════════════
// READ OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Top reads the top of a window from the cache. found == false means the
// window has never been built (or has expired); an empty-but-built window
// reports found == true with no entries.
func (l *LeaderboardCache) Top(ctx context.Context, window leaderboard.Window, windowKey string, limit int) ([]leaderboard.Entry, bool, error) {
	suffix := windowSuffix(window, windowKey)
	infoKey := keyLeaderboardInfo + suffix

	exists, err := l.cache.Client().Exists(ctx, infoKey).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to probe leaderboard cache: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	// Over-fetch slightly so a tie straddling the cut line cannot push a
	// correctly ranked entry out before re-ranking.
	fetch := int64(limit) * 2
	members, err := l.cache.Client().ZRevRange(ctx, keyLeaderboardXP+suffix, 0, fetch-1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read leaderboard zset: %w", err)
	}
	if len(members) == 0 {
		return nil, true, nil
	}

	raw, err := l.cache.Client().HMGet(ctx, infoKey, members...).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read leaderboard hash: %w", err)
	}

	entries := make([]leaderboard.Entry, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			// Set and hash disagree: a rebuild is in flight. Treat as
			// a miss and let the caller fall back to the store.
			return nil, false, nil
		}

		var ce cachedEntry
		if err := json.Unmarshal([]byte(s), &ce); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}

		entries = append(entries, leaderboard.Entry{
			UserID:     shared.UserID(ce.UserID),
			Window:     window,
			WindowKey:  windowKey,
			XPInWindow: ce.XPInWindow,
			ReachedAt:  ce.ReachedAt,
		})
	}

	ranked := leaderboard.Ranked(entries)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, true, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Rebuild atomically replaces the window's cached data with entries from
// the authoritative store.
func (l *LeaderboardCache) Rebuild(ctx context.Context, window leaderboard.Window, windowKey string, entries []leaderboard.Entry) error {
	suffix := windowSuffix(window, windowKey)
	xpKey := keyLeaderboardXP + suffix
	infoKey := keyLeaderboardInfo + suffix

	zMembers := make([]redis.Z, 0, len(entries))
	hashData := make(map[string]interface{}, len(entries))

	for _, e := range entries {
		data, err := json.Marshal(cachedEntry{
			UserID:     e.UserID.String(),
			XPInWindow: e.XPInWindow,
			ReachedAt:  e.ReachedAt,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}

		zMembers = append(zMembers, redis.Z{
			Score:  float64(e.XPInWindow),
			Member: e.UserID.String(),
		})
		hashData[e.UserID.String()] = data
	}

	// TxPipeline keeps delete-and-refill atomic so readers never observe
	// a half-built window.
	pipe := l.cache.Client().TxPipeline()
	pipe.Del(ctx, xpKey, infoKey)
	if len(zMembers) > 0 {
		pipe.ZAdd(ctx, xpKey, zMembers...)
		pipe.HSet(ctx, infoKey, hashData)
	} else {
		// An empty window is still "built": keep a marker field so Top
		// can tell empty apart from missing.
		pipe.HSet(ctx, infoKey, "_built", "1")
	}
	pipe.Expire(ctx, xpKey, TTLLeaderboardCache)
	pipe.Expire(ctx, infoKey, TTLLeaderboardCache)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard cache: %w", err)
	}
	return nil
}

// Invalidate drops the window's cached data.
func (l *LeaderboardCache) Invalidate(ctx context.Context, window leaderboard.Window, windowKey string) error {
	suffix := windowSuffix(window, windowKey)
	if err := l.cache.Client().Del(ctx, keyLeaderboardXP+suffix, keyLeaderboardInfo+suffix).Err(); err != nil {
		return fmt.Errorf("failed to invalidate leaderboard cache: %w", err)
	}
	return nil
}
