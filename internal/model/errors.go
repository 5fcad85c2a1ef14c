package model

import (
	"errors"
	"fmt"
)

// ValidationError rejects a state-changing call before any mutation, naming
// the missing or malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// PreconditionError is returned when the caller's assumed current status
// does not match the stored status. The caller should refresh and retry;
// the stored state is never silently overwritten.
type PreconditionError struct {
	Entity   string
	ID       string
	Expected string
	Actual   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s %s is %q, expected %s", e.Entity, e.ID, e.Actual, e.Expected)
}

// TerminalStateError is returned on an attempt to re-decide an entity that
// already reached a terminal state.
type TerminalStateError struct {
	Entity string
	ID     string
	Status string
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("%s %s already decided: %s", e.Entity, e.ID, e.Status)
}

// NotFoundError is returned for an unknown entity or reviewer pair.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsTerminalState reports whether err is a TerminalStateError.
func IsTerminalState(err error) bool {
	var te *TerminalStateError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
