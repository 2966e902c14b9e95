package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event marks something significant that happened
// while applying a progression mutation.
const (
	// Progression events
	EventXPGained       EventType = "progression.xp_gained"
	EventLevelUp        EventType = "progression.level_up"
	EventStreakExtended EventType = "progression.streak_extended"
	EventStreakBroken   EventType = "progression.streak_broken"
	EventStreakFrozen   EventType = "progression.streak_frozen"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"

	// Economy events
	EventGemsCredited EventType = "economy.gems_credited"
	EventGemsConsumed EventType = "economy.gems_consumed"

	// Challenge events
	EventChallengeCompleted EventType = "challenge.completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event with the given occurrence time.
// The time comes from the engine's injected clock, not the system clock.
func NewBaseEvent(eventType EventType, aggregateID string, occurredAt time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   occurredAt,
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a user gains XP.
type XPGainedEvent struct {
	BaseEvent
	Amount  int    `json:"amount"`
	TotalXP int    `json:"total_xp"`
	Source  string `json:"source"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":   e.Amount,
		"total_xp": e.TotalXP,
		"source":   e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, totalXP int, source string, at time.Time) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID, at),
		Amount:    amount,
		TotalXP:   totalXP,
		Source:    source,
	}
}

// LevelUpEvent is emitted when a user's derived level increases.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// StreakExtendedEvent is emitted when a daily streak grows.
type StreakExtendedEvent struct {
	BaseEvent
	StreakDays  int `json:"streak_days"`
	LongestDays int `json:"longest_days"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"streak_days":  e.StreakDays,
		"longest_days": e.LongestDays,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, streakDays, longestDays int, at time.Time) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:   NewBaseEvent(EventStreakExtended, userID, at),
		StreakDays:  streakDays,
		LongestDays: longestDays,
	}
}

// StreakBrokenEvent is emitted when a gap could not be bridged and the
// streak reset.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak  int `json:"previous_streak"`
	DaysMissed      int `json:"days_missed"`
	FreezesConsumed int `json:"freezes_consumed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak":  e.PreviousStreak,
		"days_missed":      e.DaysMissed,
		"freezes_consumed": e.FreezesConsumed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed, freezesConsumed int, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:       NewBaseEvent(EventStreakBroken, userID, at),
		PreviousStreak:  previousStreak,
		DaysMissed:      daysMissed,
		FreezesConsumed: freezesConsumed,
	}
}

// StreakFrozenEvent is emitted when freezes bridged a gap or a day was
// explicitly protected.
type StreakFrozenEvent struct {
	BaseEvent
	ProtectedDate   string `json:"protected_date"`
	FreezesConsumed int    `json:"freezes_consumed"`
	FreezesLeft     int    `json:"freezes_left"`
}

// Payload implements Event interface.
func (e StreakFrozenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"protected_date":   e.ProtectedDate,
		"freezes_consumed": e.FreezesConsumed,
		"freezes_left":     e.FreezesLeft,
	}
}

// NewStreakFrozenEvent creates a new StreakFrozenEvent.
func NewStreakFrozenEvent(userID, protectedDate string, consumed, left int, at time.Time) StreakFrozenEvent {
	return StreakFrozenEvent{
		BaseEvent:       NewBaseEvent(EventStreakFrozen, userID, at),
		ProtectedDate:   protectedDate,
		FreezesConsumed: consumed,
		FreezesLeft:     left,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted when an achievement is granted.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	XPReward      int    `json:"xp_reward"`
	GemReward     int    `json:"gem_reward"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": e.AchievementID,
		"xp_reward":      e.XPReward,
		"gem_reward":     e.GemReward,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID string, xpReward, gemReward int, at time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID, at),
		AchievementID: achievementID,
		XPReward:      xpReward,
		GemReward:     gemReward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Economy Events
// ═══════════════════════════════════════════════════════════════════════════

// GemsCreditedEvent is emitted when gems are added to a balance.
type GemsCreditedEvent struct {
	BaseEvent
	Amount     int    `json:"amount"`
	NewBalance int    `json:"new_balance"`
	Reason     string `json:"reason"`
}

// Payload implements Event interface.
func (e GemsCreditedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":      e.Amount,
		"new_balance": e.NewBalance,
		"reason":      e.Reason,
	}
}

// NewGemsCreditedEvent creates a new GemsCreditedEvent.
func NewGemsCreditedEvent(userID string, amount, newBalance int, reason string, at time.Time) GemsCreditedEvent {
	return GemsCreditedEvent{
		BaseEvent:  NewBaseEvent(EventGemsCredited, userID, at),
		Amount:     amount,
		NewBalance: newBalance,
		Reason:     reason,
	}
}

// GemsConsumedEvent is emitted when gems are spent.
type GemsConsumedEvent struct {
	BaseEvent
	Amount     int    `json:"amount"`
	NewBalance int    `json:"new_balance"`
	Reason     string `json:"reason"`
	ItemID     string `json:"item_id,omitempty"`
}

// Payload implements Event interface.
func (e GemsConsumedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":      e.Amount,
		"new_balance": e.NewBalance,
		"reason":      e.Reason,
		"item_id":     e.ItemID,
	}
}

// NewGemsConsumedEvent creates a new GemsConsumedEvent.
func NewGemsConsumedEvent(userID string, amount, newBalance int, reason, itemID string, at time.Time) GemsConsumedEvent {
	return GemsConsumedEvent{
		BaseEvent:  NewBaseEvent(EventGemsConsumed, userID, at),
		Amount:     amount,
		NewBalance: newBalance,
		Reason:     reason,
		ItemID:     itemID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Events
// ═══════════════════════════════════════════════════════════════════════════

// ChallengeCompletedEvent is emitted when a daily challenge completes and
// its rewards are granted.
type ChallengeCompletedEvent struct {
	BaseEvent
	ChallengeID string `json:"challenge_id"`
	XPReward    int    `json:"xp_reward"`
	GemReward   int    `json:"gem_reward"`
	LivesReward int    `json:"lives_reward"`
}

// Payload implements Event interface.
func (e ChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"challenge_id": e.ChallengeID,
		"xp_reward":    e.XPReward,
		"gem_reward":   e.GemReward,
		"lives_reward": e.LivesReward,
	}
}

// NewChallengeCompletedEvent creates a new ChallengeCompletedEvent.
func NewChallengeCompletedEvent(userID, challengeID string, xp, gems, lives int, at time.Time) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCompleted, userID, at),
		ChallengeID: challengeID,
		XPReward:    xp,
		GemReward:   gems,
		LivesReward: lives,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler processes a single event.
type EventHandler interface {
	// Handle processes the event.
	Handle(event Event) error

	// EventTypes returns the event types this handler is interested in.
	EventTypes() []EventType
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc struct {
	Types []EventType
	Fn    func(event Event) error
}

// Handle implements EventHandler.
func (h EventHandlerFunc) Handle(event Event) error {
	return h.Fn(event)
}

// EventTypes implements EventHandler.
func (h EventHandlerFunc) EventTypes() []EventType {
	return h.Types
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	// Publish delivers an event to all interested subscribers.
	Publish(event Event) error
}

// NopPublisher discards all events. Useful in tests.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
