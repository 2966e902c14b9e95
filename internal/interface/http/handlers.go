package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/studyhub/progression-engine/internal/application/engine"
	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Progression Engine API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":      "/health",
			"progression": "/api/v1/users/{id}/progression",
			"activity":    "/api/v1/users/{id}/activity",
			"leaderboard": "/api/v1/leaderboard/{window}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// progressionResponse is the wire shape of an engine snapshot.
type progressionResponse struct {
	UserID        string `json:"user_id"`
	TotalXP       int    `json:"total_xp"`
	Level         int    `json:"level"`
	XPIntoLevel   int    `json:"xp_into_level"`
	XPToNextLevel int    `json:"xp_to_next_level"`
	Gems          int    `json:"gems"`
	Lives         int    `json:"lives"`
	MaxLives      int    `json:"max_lives"`
	StreakCurrent int    `json:"streak_current"`
	StreakLongest int    `json:"streak_longest"`
	StreakFreezes int    `json:"streak_freezes"`
	StreakState   string `json:"streak_state"`
}

func (s *Server) handleGetProgression(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDFromPath(w, r)
	if !ok {
		return
	}

	snap, err := s.engine.GetProgression(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progressionResponse{
		UserID:        snap.UserID.String(),
		TotalXP:       snap.TotalXP,
		Level:         snap.Level,
		XPIntoLevel:   snap.XPIntoLevel,
		XPToNextLevel: snap.XPToNextLevel,
		Gems:          snap.Gems,
		Lives:         snap.Lives,
		MaxLives:      snap.MaxLives,
		StreakCurrent: snap.StreakCurrent,
		StreakLongest: snap.StreakLongest,
		StreakFreezes: snap.StreakFreezes,
		StreakState:   snap.StreakState.String(),
	})
}

type recordActivityRequest struct {
	XPGained int    `json:"xp_gained"`
	Source   string `json:"source"`
	Answers  []bool `json:"answers,omitempty"`
}

type activityResponse struct {
	NewXP           int      `json:"new_xp"`
	NewLevel        int      `json:"new_level"`
	LeveledUp       bool     `json:"leveled_up"`
	NewlyUnlocked   []string `json:"newly_unlocked,omitempty"`
	NewBalance      int      `json:"new_balance"`
	StreakExtended  bool     `json:"streak_extended"`
	StreakReset     bool     `json:"streak_reset"`
	FreezesConsumed int      `json:"freezes_consumed"`
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDFromPath(w, r)
	if !ok {
		return
	}

	var req recordActivityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.engine.RecordActivity(r.Context(), userID, req.XPGained, engine.ActivityMeta{
		Source:  req.Source,
		Answers: req.Answers,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, activityResponse{
		NewXP:           result.NewXP,
		NewLevel:        result.NewLevel,
		LeveledUp:       result.LeveledUp,
		NewlyUnlocked:   result.NewlyUnlocked,
		NewBalance:      result.NewBalance,
		StreakExtended:  result.Streak.Extended,
		StreakReset:     result.Streak.Reset,
		FreezesConsumed: result.Streak.FreezesConsumed,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK & ECONOMY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type useFreezeRequest struct {
	// Date is the date to protect, as YYYY-MM-DD. Empty means yesterday.
	Date string `json:"date,omitempty"`
}

func (s *Server) handleUseStreakFreeze(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDFromPath(w, r)
	if !ok {
		return
	}

	var req useFreezeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cal := timeutil.NewCalendar(time.UTC)
	var date time.Time
	if req.Date == "" {
		date = cal.DateOf(time.Now().UTC()).AddDate(0, 0, -1)
	} else {
		var err error
		date, err = cal.ParseDate(req.Date)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_date", "Date must be formatted as YYYY-MM-DD")
			return
		}
	}

	result, err := s.engine.UseStreakFreeze(r.Context(), userID, date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"protected_date": result.ProtectedDate,
		"freezes_left":   result.FreezesLeft,
	})
}

type purchaseRequest struct {
	ItemID string `json:"item_id"`
	Cost   int    `json:"cost"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDFromPath(w, r)
	if !ok {
		return
	}

	var req purchaseRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "item_id is required")
		return
	}

	result, err := s.engine.Purchase(r.Context(), userID, req.ItemID, req.Cost)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"item_id":        result.ItemID,
		"remaining_gems": result.RemainingGems,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE & LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDFromPath(w, r)
	if !ok {
		return
	}

	challengeID := r.PathValue("challengeID")
	if challengeID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Challenge ID is required")
		return
	}

	result, err := s.engine.CompleteChallenge(r.Context(), userID, challengeID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"challenge_id":   result.ChallengeID,
		"reward_xp":      result.Rewards.XP,
		"reward_gems":    result.Rewards.Gems,
		"reward_lives":   result.Rewards.Lives,
		"new_xp":         result.NewXP,
		"leveled_up":     result.LeveledUp,
		"newly_unlocked": result.NewlyUnlocked,
		"new_balance":    result.NewBalance,
	})
}

type leaderboardEntryResponse struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	XPInWindow int    `json:"xp_in_window"`
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	window, err := leaderboard.ParseWindow(r.PathValue("window"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_window", "Window must be weekly, monthly, or all_time")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_limit", "Limit must be a non-negative integer")
			return
		}
	}

	entries, err := s.engine.GetLeaderboard(r.Context(), window, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]leaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntryResponse{
			Rank:       int(e.Rank),
			UserID:     e.UserID.String(),
			XPInWindow: e.XPInWindow,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window":  string(window),
		"entries": out,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HANDLER HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) userIDFromPath(w http.ResponseWriter, r *http.Request) (shared.UserID, bool) {
	userID, err := shared.NewUserID(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_user_id", "User ID must be a valid UUID")
		return "", false
	}
	return userID, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Failed to read request body")
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
		return false
	}
	return true
}

// writeDomainError maps domain errors onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var domainErr *shared.DomainError
	code := "internal_error"
	message := "An unexpected error occurred"
	if errors.As(err, &domainErr) {
		code = domainErr.Domain + "_error"
		message = domainErr.Message
	}

	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, code, message)
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, code, message)
	case shared.IsAlreadyExists(err), shared.IsConflict(err):
		writeJSONError(w, http.StatusConflict, code, message)
	case errors.Is(err, shared.ErrInvalidState), errors.Is(err, shared.ErrAlreadyProcessed):
		writeJSONError(w, http.StatusUnprocessableEntity, code, message)
	default:
		writeJSONError(w, http.StatusInternalServerError, code, message)
	}
}
