package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

const testUserID = "5f3e8a92-1b4c-4d6e-9f0a-2c8b7d5e4a31"

var testTime = time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)

func syncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestPublishRoutesByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var gotXP, gotLevel int
	require.NoError(t, bus.Subscribe(shared.EventHandlerFunc{
		Types: []shared.EventType{shared.EventXPGained},
		Fn: func(shared.Event) error {
			gotXP++
			return nil
		},
	}))
	require.NoError(t, bus.Subscribe(shared.EventHandlerFunc{
		Types: []shared.EventType{shared.EventLevelUp},
		Fn: func(shared.Event) error {
			gotLevel++
			return nil
		},
	}))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent(testUserID, 80, 320, "quiz_completed", testTime)))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent(testUserID, 40, 360, "quiz_completed", testTime)))

	assert.Equal(t, 2, gotXP)
	assert.Equal(t, 0, gotLevel)
}

func TestGlobalHandlerReceivesEverything(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var types []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventHandlerFunc{
		Fn: func(e shared.Event) error {
			types = append(types, e.EventType())
			return nil
		},
	}))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent(testUserID, 80, 80, "quiz_completed", testTime)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(testUserID, 1, 2, testTime)))

	assert.Equal(t, []shared.EventType{shared.EventXPGained, shared.EventLevelUp}, types)
}

func TestPublishAfterCloseFails(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewLevelUpEvent(testUserID, 1, 2, testTime))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventHandlerFunc{Fn: func(shared.Event) error { return nil }})
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestNilChecks(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	assert.ErrorIs(t, bus.Subscribe(nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

func TestMetricsCountPublishes(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventHandlerFunc{
		Types: []shared.EventType{shared.EventXPGained},
		Fn: func(shared.Event) error {
			return assert.AnError
		},
	}))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent(testUserID, 80, 80, "quiz_completed", testTime)))

	metrics := bus.Metrics()
	require.NotNil(t, metrics)
	assert.Equal(t, int64(1), metrics.Published(shared.EventXPGained))
	assert.Equal(t, int64(1), metrics.HandlerFailures(shared.EventXPGained))
}
