// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"log/slog"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT LOG HANDLER
// Пишет каждое доменное событие в структурированный лог. Подписывается
// на все типы, поэтому лог становится хронологией изменений прогрессии.
// ═══════════════════════════════════════════════════════════════════════════

// AuditLogHandler логирует все опубликованные события.
type AuditLogHandler struct {
	logger *slog.Logger
}

// NewAuditLogHandler создаёт обработчик аудита.
func NewAuditLogHandler(logger *slog.Logger) *AuditLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogHandler{logger: logger}
}

// EventTypes implements shared.EventHandler. Пустой список означает
// подписку на все события.
func (h *AuditLogHandler) EventTypes() []shared.EventType {
	return nil
}

// Handle implements shared.EventHandler.
func (h *AuditLogHandler) Handle(event shared.Event) error {
	h.logger.Info("domain event",
		"event_type", string(event.EventType()),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
		"payload", event.Payload(),
	)
	return nil
}
