package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-engine/internal/domain/shared"
)

const testUserID = shared.UserID("5f3e8a92-1b4c-4d6e-9f0a-2c8b7d5e4a31")

var testTime = time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)

func TestNewLedgerEntry(t *testing.T) {
	t.Run("valid credit", func(t *testing.T) {
		entry, err := NewLedgerEntry(testUserID, 25, ReasonAchievementReward, 25, testTime)

		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, 25, entry.Delta)
		assert.Equal(t, 25, entry.BalanceAfter)
	})

	t.Run("valid debit with item", func(t *testing.T) {
		entry, err := NewLedgerEntry(testUserID, -30, ReasonPurchase, 70, testTime)

		require.NoError(t, err)
		entry = entry.WithItem("life_refill")
		assert.Equal(t, "life_refill", entry.ItemID)
	})

	t.Run("zero delta is rejected", func(t *testing.T) {
		_, err := NewLedgerEntry(testUserID, 0, ReasonAdminAdjustment, 10, testTime)
		assert.ErrorIs(t, err, shared.ErrInvalidLedgerDelta)
	})

	t.Run("unknown reason is rejected", func(t *testing.T) {
		_, err := NewLedgerEntry(testUserID, 10, Reason("refund"), 10, testTime)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("negative resulting balance is rejected", func(t *testing.T) {
		_, err := NewLedgerEntry(testUserID, -50, ReasonConsumption, -20, testTime)
		assert.ErrorIs(t, err, shared.ErrNegativeValue)
	})
}

func TestSumDeltas(t *testing.T) {
	entries := []LedgerEntry{
		{Delta: 100},
		{Delta: -30},
		{Delta: 15},
	}

	assert.Equal(t, 85, SumDeltas(entries))
	assert.Equal(t, 0, SumDeltas(nil))
}

func TestItemCatalog(t *testing.T) {
	cat := NewItemCatalog()

	t.Run("known item", func(t *testing.T) {
		item, err := cat.Find("life_refill")
		require.NoError(t, err)
		assert.Equal(t, EffectLifeRefill, item.Effect)
		assert.Positive(t, item.CostGems)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := cat.Find("golden_goose")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("ids are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, item := range cat.All() {
			assert.False(t, seen[item.ID], "duplicate item id %q", item.ID)
			seen[item.ID] = true
		}
	})
}
