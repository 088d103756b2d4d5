// Package errs provides centralized error definitions for the Duskhollow
// engine. It defines sentinel errors per subsystem, semantic error types
// with context, and classification helpers.
//
// Validation failures inside state store mutators are deliberately not
// errors: mutators report them by returning false. The types here cover
// the conditions that are errors: missing resources, conflicting
// registrations, timeouts, and fatal configuration problems.
package errs

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Identity-related sentinel errors
var (
	// ErrNameTaken indicates a display name is already registered in a game.
	ErrNameTaken = New("display name already registered")
	// ErrIDTaken indicates a participant id is already registered in a game.
	ErrIDTaken = New("participant id already registered")
	// ErrNamePoolExhausted indicates the curated name pool ran dry for a game.
	ErrNamePoolExhausted = New("name pool exhausted")
)

// Game-related sentinel errors
var (
	// ErrGameNotFound indicates that a game could not be found.
	ErrGameNotFound = New("game not found")
	// ErrParticipantNotFound indicates that a participant could not be found.
	ErrParticipantNotFound = New("participant not found")
	// ErrGameOver indicates an operation was attempted on a finished game.
	ErrGameOver = New("game is over")
)

// Distributor-related sentinel errors
var (
	// ErrTriggerCanceled indicates a trigger was superseded by a newer one.
	ErrTriggerCanceled = New("trigger canceled")
	// ErrTriggerTimeout indicates a trigger expired before a response arrived.
	ErrTriggerTimeout = New("trigger timed out")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// ConflictError indicates a registration collision (name or id already in
// use for a game). It wraps the specific sentinel describing which side
// collided.
type ConflictError struct {
	Resource string // "name" or "id"
	Value    string
	GameID   string
	cause    error
}

// NewConflictError creates a ConflictError wrapping the given sentinel.
func NewConflictError(resource, value, gameID string, cause error) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Value:    value,
		GameID:   gameID,
		cause:    cause,
	}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s %q already registered in game %s", e.Resource, e.Value, e.GameID)
}

func (e *ConflictError) Unwrap() error { return e.cause }

// Is reports whether target matches this error or its cause.
func (e *ConflictError) Is(target error) bool {
	if target == nil {
		return false
	}
	var other *ConflictError
	if errors.As(target, &other) {
		return true
	}
	return errors.Is(e.cause, target)
}

// NotFoundError indicates a resource lookup that found nothing. Callers
// that expect absence as a normal condition should test with IsNotFound
// rather than treating it as exceptional.
type NotFoundError struct {
	Resource string
	Key      string
}

// NewNotFoundError creates a NotFoundError for the given resource and key.
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// Is lets errors.Is match any NotFoundError regardless of key.
func (e *NotFoundError) Is(target error) bool {
	var other *NotFoundError
	return errors.As(target, &other)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConfigError indicates a fatal configuration problem discovered at
// startup. These abort initialization; they are never absorbed.
type ConfigError struct {
	Field   string
	Message string
}

// NewConfigError creates a ConfigError for a specific field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// TimeoutError indicates an operation exceeded its deadline. It wraps
// ErrTimeout so errors.Is(err, ErrTimeout) holds.
type TimeoutError struct {
	Operation string
}

// NewTimeoutError creates a TimeoutError for the named operation.
func NewTimeoutError(operation string) *TimeoutError {
	return &TimeoutError{Operation: operation}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Operation)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// IsTimeout reports whether err is (or wraps) a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTriggerTimeout)
}
