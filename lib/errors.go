package lib

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Taxonomy
// =============================================================================
// The taxonomy is closed. Validation failures travel by value out of
// Validate; execution failures travel by value out of Execute. Programmer
// errors (invariant violations, interrupt depth overflow) panic instead.

var (
	// ErrInvalidPosition marks an out-of-bounds or blocked cell.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrInvalidTarget marks a target of the wrong kind, or a missing unit
	// where one is required.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrOutOfRange marks a Manhattan distance outside [min, max].
	ErrOutOfRange = errors.New("out of range")

	// ErrBlocked marks a destination that is occupied or impassable.
	ErrBlocked = errors.New("blocked")

	// ErrNoUsesRemaining marks an exhausted prepared action.
	ErrNoUsesRemaining = errors.New("no uses remaining")

	// ErrNotFound marks an absent unit id or scenario path.
	ErrNotFound = errors.New("not found")
)

// Validation is the result of an action validator. Invalid results carry an
// action-specific reason string surfaced to the front end.
type Validation struct {
	OK     bool
	Reason string
}

// Valid returns a passing validation.
func Valid() Validation {
	return Validation{OK: true}
}

// Invalid returns a failing validation with a reason.
func Invalid(format string, args ...any) Validation {
	return Validation{Reason: fmt.Sprintf(format, args...)}
}
