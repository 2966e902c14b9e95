package economy

import (
	"github.com/studyhub/progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Store Items
// ═══════════════════════════════════════════════════════════════════════════

// ItemEffect is what a purchased item does to the progression aggregate.
type ItemEffect string

const (
	// EffectStreakFreeze grants freeze tokens.
	EffectStreakFreeze ItemEffect = "streak_freeze"
	// EffectLifeRefill restores lives to the cap.
	EffectLifeRefill ItemEffect = "life_refill"
	// EffectXPBoost grants a flat XP bonus.
	EffectXPBoost ItemEffect = "xp_boost"
)

// StoreItem is a static catalog entry for a consumable boost.
type StoreItem struct {
	ID       string
	Name     string
	CostGems int
	Effect   ItemEffect

	// Amount parametrizes the effect: freeze tokens granted, XP credited.
	// Unused for life refills.
	Amount int
}

// ItemCatalog is a read-only source of store item definitions.
type ItemCatalog interface {
	// All returns every item in a stable order.
	All() []StoreItem

	// Find returns the item with the given id.
	Find(id string) (StoreItem, error)
}

type staticItemCatalog struct {
	ordered []StoreItem
	byID    map[string]StoreItem
}

// NewItemCatalog returns the built-in store catalog.
func NewItemCatalog() ItemCatalog {
	return NewItemCatalogWith([]StoreItem{
		{ID: "streak_freeze", Name: "Streak Freeze", CostGems: 20, Effect: EffectStreakFreeze, Amount: 1},
		{ID: "streak_freeze_pack", Name: "Streak Freeze Pack", CostGems: 50, Effect: EffectStreakFreeze, Amount: 3},
		{ID: "life_refill", Name: "Life Refill", CostGems: 30, Effect: EffectLifeRefill},
		{ID: "xp_boost_small", Name: "Small XP Boost", CostGems: 25, Effect: EffectXPBoost, Amount: 50},
	})
}

// NewItemCatalogWith returns a catalog over the given items.
func NewItemCatalogWith(items []StoreItem) ItemCatalog {
	byID := make(map[string]StoreItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return &staticItemCatalog{ordered: items, byID: byID}
}

// All implements ItemCatalog.
func (c *staticItemCatalog) All() []StoreItem {
	out := make([]StoreItem, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Find implements ItemCatalog.
func (c *staticItemCatalog) Find(id string) (StoreItem, error) {
	item, ok := c.byID[id]
	if !ok {
		return StoreItem{}, shared.ErrUnknownItem
	}
	return item, nil
}
