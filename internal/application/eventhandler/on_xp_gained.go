// Package eventhandler содержит обработчики доменных событий.
// Обработчики — "реактивная" часть системы: они запускают побочные
// эффекты после того, как мутация уже зафиксирована в хранилище.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/studyhub/progression-engine/internal/domain/leaderboard"
	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON XP GAINED HANDLER
// Сбрасывает кеш лидерборда затронутых окон. До следующей перестройки
// читатели падают на авторитетное хранилище, поэтому свежезаработанный
// XP виден сразу, а не через TTL кеша.
// ═══════════════════════════════════════════════════════════════════════════

// OnXPGainedHandler инвалидирует кеш лидерборда после начисления XP.
type OnXPGainedHandler struct {
	cache    leaderboard.Cache
	clock    timeutil.Clock
	calendar timeutil.Calendar
	logger   *slog.Logger
	timeout  time.Duration
}

// NewOnXPGainedHandler создаёт обработчик. cache может быть nil — тогда
// обработчик ничего не делает (кеш не сконфигурирован).
func NewOnXPGainedHandler(cache leaderboard.Cache, clock timeutil.Clock, calendar timeutil.Calendar, logger *slog.Logger) *OnXPGainedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnXPGainedHandler{
		cache:    cache,
		clock:    clock,
		calendar: calendar,
		logger:   logger,
		timeout:  3 * time.Second,
	}
}

// EventTypes implements shared.EventHandler.
func (h *OnXPGainedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventXPGained}
}

// Handle implements shared.EventHandler.
func (h *OnXPGainedHandler) Handle(event shared.Event) error {
	if h.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	now := event.OccurredAt()
	if now.IsZero() {
		now = h.clock.Now()
	}

	for _, window := range leaderboard.AllWindows() {
		key := window.KeyAt(h.calendar, now)
		if err := h.cache.Invalidate(ctx, window, key); err != nil {
			// Инвалидация - best effort: кеш и так истечёт по TTL.
			h.logger.Warn("failed to invalidate leaderboard cache",
				"window", string(window),
				"window_key", key,
				"error", err,
			)
		}
	}
	return nil
}
