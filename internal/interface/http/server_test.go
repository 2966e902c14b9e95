package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/application/engine"
	"github.com/studyhub/progression-engine/internal/domain/achievement"
	"github.com/studyhub/progression-engine/internal/domain/challenge"
	"github.com/studyhub/progression-engine/internal/domain/economy"
	"github.com/studyhub/progression-engine/internal/domain/progression"
	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/internal/infrastructure/persistence/memory"
	"github.com/studyhub/progression-engine/pkg/logger"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

const testUserID = "5f3e8a92-1b4c-4d6e-9f0a-2c8b7d5e4a31"

var testTime = time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)

// testKey is the plaintext API key the fixtures accept.
const testKey = "local-dev-key"

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	testKeyHash, err := HashKey(testKey)
	require.NoError(t, err)

	store := memory.NewStore()
	eng := engine.New(engine.Config{
		Store:              store,
		Achievements:       store,
		Challenges:         store,
		Boards:             store,
		AchievementCatalog: achievement.NewCatalog(),
		ItemCatalog:        economy.NewItemCatalog(),
		ChallengeCatalog:   challenge.NewRotatingCatalog(),
		Clock:              timeutil.FixedClock{T: testTime},
		Calendar:           timeutil.NewCalendar(time.UTC),
		Logger:             logger.Nop(),
	})

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.APIKeyHashes = []string{testKeyHash}

	return NewServer(cfg, eng, logger.Nop()), store
}

func seedUser(t *testing.T, store *memory.Store) {
	t.Helper()
	p := progression.NewUserProgression(shared.UserID(testUserID), testTime)
	require.NoError(t, store.Create(context.Background(), p))
}

func doRequest(s *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("X-API-Key", testKey)
	}

	rec := httptest.NewRecorder()
	s.buildMiddlewareChain(s.router).ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
}

func TestGetProgression(t *testing.T) {
	s, store := newTestServer(t)
	seedUser(t, store)

	rec := doRequest(s, http.MethodGet, "/api/v1/users/"+testUserID+"/progression", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, _ := resp.Data.(map[string]interface{})
	assert.Equal(t, testUserID, data["user_id"])
	assert.Equal(t, float64(1), data["level"])
}

func TestGetProgressionUnknownUser(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/users/"+testUserID+"/progression", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/users/not-a-uuid/progression", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordActivityRequiresAPIKey(t *testing.T) {
	s, store := newTestServer(t)
	seedUser(t, store)

	path := "/api/v1/users/" + testUserID + "/activity"
	body := `{"xp_gained": 80, "source": "quiz_completed"}`

	rec := doRequest(s, http.MethodPost, path, body, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodPost, path, body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, _ := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(80), data["new_xp"])
	assert.Equal(t, true, data["streak_extended"])
}

func TestPurchaseCostMismatchRejected(t *testing.T) {
	s, store := newTestServer(t)
	seedUser(t, store)

	// Fund the account first.
	doRequest(s, http.MethodPost, "/api/v1/users/"+testUserID+"/activity",
		`{"xp_gained": 300, "source": "quiz_completed"}`, true)

	rec := doRequest(s, http.MethodPost, "/api/v1/users/"+testUserID+"/purchases",
		`{"item_id": "streak_freeze", "cost": 1}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLeaderboardValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/leaderboard/hourly", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/leaderboard/weekly", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuthBcrypt(t *testing.T) {
	hash, err := HashKey("another-key")
	require.NoError(t, err)

	auth := NewAPIKeyAuth("X-API-Key", []string{hash})
	assert.True(t, auth.IsValid("another-key"))
	assert.False(t, auth.IsValid("wrong-key"))
	assert.False(t, auth.IsValid(""))
}
