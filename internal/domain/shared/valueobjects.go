package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier (UUID format).
type UserID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents accumulated experience points. Total XP is monotonic: it only
// ever grows.
type XP int

const (
	// MinXP is the floor for any XP value.
	MinXP XP = 0
)

// IsValid checks if the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= MinXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds a non-negative amount of XP.
func (x XP) Add(amount int) XP {
	if amount < 0 {
		return x
	}
	return x + XP(amount)
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < int(MinXP) {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	return XP(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Gems Value Object (virtual currency)
// ═══════════════════════════════════════════════════════════════════════════

// Gems represents a gem balance. Balances are never negative; signed deltas
// live in the ledger, not here.
type Gems int

// IsValid checks that the balance is non-negative.
func (g Gems) IsValid() bool {
	return g >= 0
}

// Int returns the underlying int value.
func (g Gems) Int() int {
	return int(g)
}

// CanAfford checks whether the balance covers a cost.
func (g Gems) CanAfford(cost int) bool {
	return cost >= 0 && int(g) >= cost
}

// NewGems creates a new Gems value with validation.
func NewGems(amount int) (Gems, error) {
	if amount < 0 {
		return 0, NewDomainError("shared", "NewGems", ErrNegativeValue, "gem balance cannot be negative")
	}
	return Gems(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Lives Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Lives represents a consumable attempt counter, capped at a maximum.
type Lives int

// IsValid checks that lives are non-negative.
func (l Lives) IsValid() bool {
	return l >= 0
}

// Int returns the underlying int value.
func (l Lives) Int() int {
	return int(l)
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}
