// Package leaderboard содержит доменную модель лидерборда.
package leaderboard

import (
	"context"
)

// Repository определяет контракт чтения счётчиков окон. Инкременты
// записываются только через прогрессионную дельту, в той же транзакции,
// что и начисление XP.
type Repository interface {
	// Top возвращает первые limit записей окна с проставленными рангами.
	Top(ctx context.Context, window Window, windowKey string, limit int) ([]Entry, error)

	// Entries возвращает все записи окна без ранжирования. Используется
	// джобой перестройки кеша.
	Entries(ctx context.Context, window Window, windowKey string) ([]Entry, error)
}

// Cache - необязательный быстрый слой поверх Repository (Redis ZSet на ключ
// окна). Авторитетным остаётся хранилище; кеш может отставать и
// перестраивается джобой.
type Cache interface {
	// Top читает топ из кеша. found == false при промахе.
	Top(ctx context.Context, window Window, windowKey string, limit int) (entries []Entry, found bool, err error)

	// Rebuild атомарно замещает кеш окна данными из хранилища.
	Rebuild(ctx context.Context, window Window, windowKey string, entries []Entry) error

	// Invalidate сбрасывает кеш окна.
	Invalidate(ctx context.Context, window Window, windowKey string) error
}
