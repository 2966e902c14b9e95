// Package leaderboard содержит доменную модель лидерборда: окна (неделя,
// месяц, всё время), счётчики XP внутри окна и детерминированное
// ранжирование. Счётчик xpInWindow — отдельная величина, он никогда не
// восстанавливается вычитанием из монотонного totalXP.
package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/studyhub/progression-engine/internal/domain/shared"
	"github.com/studyhub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WINDOWS
// ══════════════════════════════════════════════════════════════════════════════

// Window представляет тип календарного окна лидерборда.
type Window string

const (
	// WindowWeekly - окно ISO-недели (понедельник - воскресенье).
	WindowWeekly Window = "weekly"
	// WindowMonthly - окно календарного месяца.
	WindowMonthly Window = "monthly"
	// WindowAllTime - окно за всё время.
	WindowAllTime Window = "all_time"
)

// IsValid проверяет, что окно известно.
func (w Window) IsValid() bool {
	switch w {
	case WindowWeekly, WindowMonthly, WindowAllTime:
		return true
	}
	return false
}

// ParseWindow разбирает строку в Window.
func ParseWindow(value string) (Window, error) {
	w := Window(value)
	if !w.IsValid() {
		return "", shared.ErrUnknownWindow
	}
	return w, nil
}

// KeyAt возвращает ключ окна для данного момента времени. Новое календарное
// окно начинается с нуля просто потому, что у него новый ключ - сброс
// счётчиков не нужен.
func (w Window) KeyAt(cal timeutil.Calendar, t time.Time) string {
	switch w {
	case WindowWeekly:
		return cal.WeekKey(t)
	case WindowMonthly:
		return cal.MonthKey(t)
	default:
		return "all"
	}
}

// AllWindows возвращает все типы окон.
func AllWindows() []Window {
	return []Window{WindowWeekly, WindowMonthly, WindowAllTime}
}

// ══════════════════════════════════════════════════════════════════════════════
// RANK
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию в лидерборде. Начинается с 1.
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsTop10 возвращает true, если позиция в топ-10.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRIES & RANKING
// ══════════════════════════════════════════════════════════════════════════════

// Entry - счётчик XP одного пользователя внутри конкретного окна.
type Entry struct {
	// UserID - идентификатор пользователя.
	UserID shared.UserID

	// Window - тип окна.
	Window Window

	// WindowKey - конкретный ключ окна ("all", "2026-W36", "2026-08").
	WindowKey string

	// XPInWindow - XP, заработанный внутри окна. Отдельный счётчик,
	// не выводится из totalXP.
	XPInWindow int

	// ReachedAt - момент, когда XPInWindow достиг текущего значения.
	// Используется как детерминированный тай-брейк.
	ReachedAt time.Time

	// Rank - позиция после ранжирования. Вычисляется, не хранится
	// авторитетно.
	Rank Rank
}

// Increment добавляет XP к счётчику окна и фиксирует момент.
func (e *Entry) Increment(amount int, at time.Time) {
	if amount <= 0 {
		return
	}
	e.XPInWindow += amount
	e.ReachedAt = at
}

// Less задаёт детерминированный полный порядок ранжирования:
// больше XP выше; при равенстве раньше достигший выше; при полном
// равенстве порядок стабилизируется по UserID.
func (e Entry) Less(other Entry) bool {
	if e.XPInWindow != other.XPInWindow {
		return e.XPInWindow > other.XPInWindow
	}
	if !e.ReachedAt.Equal(other.ReachedAt) {
		return e.ReachedAt.Before(other.ReachedAt)
	}
	return e.UserID < other.UserID
}

// Ranked сортирует записи в детерминированном порядке и проставляет ранги.
// Повторное вычисление на тех же данных даёт тот же порядок.
func Ranked(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	sort.Slice(out, func(i, j int) bool {
		return out[i].Less(out[j])
	})
	for i := range out {
		out[i].Rank = Rank(i + 1)
	}
	return out
}
