// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("persistence unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "economy", "challenge"
	Op      string // Operation that failed, e.g., "RecordActivity", "Consume"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progression domain errors
var (
	ErrUserNotFound      = NewDomainError("progression", "Find", ErrNotFound, "user progression not found")
	ErrUserAlreadyExists = NewDomainError("progression", "Create", ErrAlreadyExists, "user progression already exists")
	ErrXPDecrease        = NewDomainError("progression", "AddXP", ErrNegativeValue, "total XP is monotonic and cannot decrease")
	ErrNoLivesLeft       = NewDomainError("progression", "SpendLife", ErrInvalidState, "no lives left")
)

// Streak domain errors
var (
	ErrNoFreezesAvailable  = NewDomainError("streak", "UseFreeze", ErrInvalidState, "no streak freezes available")
	ErrDayAlreadyProtected = NewDomainError("streak", "UseFreeze", ErrAlreadyProcessed, "date already protected by a freeze")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrUnknownRequirement  = NewDomainError("achievement", "Evaluate", ErrInvalidInput, "unknown achievement requirement kind")
)

// Economy domain errors
var (
	ErrInsufficientFunds  = NewDomainError("economy", "Consume", ErrInvalidState, "insufficient gem balance")
	ErrInvalidLedgerDelta = NewDomainError("economy", "Append", ErrInvalidInput, "ledger delta must be non-zero")
	ErrUnknownItem        = NewDomainError("economy", "Purchase", ErrNotFound, "unknown store item")
)

// Challenge domain errors
var (
	ErrChallengeNotFound         = NewDomainError("challenge", "Find", ErrNotFound, "daily challenge not found")
	ErrChallengeAlreadyCompleted = NewDomainError("challenge", "Complete", ErrAlreadyProcessed, "challenge already completed")
	ErrChallengeNotCompleted     = NewDomainError("challenge", "Claim", ErrInvalidState, "challenge not completed yet")
	ErrChallengeAlreadyClaimed   = NewDomainError("challenge", "Claim", ErrAlreadyProcessed, "challenge reward already claimed")
	ErrChallengeWrongDate        = NewDomainError("challenge", "Progress", ErrInvalidState, "challenge is not valid for this date")
)

// Leaderboard domain errors
var (
	ErrUnknownWindow = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "unknown leaderboard window")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConflict checks if the error is an optimistic-concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}
