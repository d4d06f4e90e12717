// internal/game/errors.go
package game

import "fmt"

// ErrorKind classifies a rejected action. Every kind is recoverable and is reported
// back to the originating client as a room-error.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"    // malformed room code, name or input
	KindIllegalState ErrorKind = "illegal_state" // turn, ownership or quota violations
	KindTargeting    ErrorKind = "targeting"     // card cannot affect the chosen tile
	KindProtection   ErrorKind = "protection"    // a shield blocks the effect
	KindConcurrency  ErrorKind = "concurrency"   // turn lock already held
	KindIdentity     ErrorKind = "identity"      // authentication missing or invalid
)

// Error is the structured failure returned by room operations and card effects.
// Message is stable and safe to show to the player.
type Error struct {
	Kind           ErrorKind `json:"kind"`
	Message        string    `json:"message"`
	RemainingTurns int       `json:"remainingTurns,omitempty"` // set for protection errors
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches sentinel errors of the same kind, so callers can write errors.Is(err, game.ErrProtection).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels, one per kind. They carry no message and only exist for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrIllegalState = &Error{Kind: KindIllegalState}
	ErrTargeting    = &Error{Kind: KindTargeting}
	ErrProtection   = &Error{Kind: KindProtection}
	ErrConcurrency  = &Error{Kind: KindConcurrency}
	ErrIdentity     = &Error{Kind: KindIdentity}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func illegalState(format string, args ...interface{}) *Error {
	return newError(KindIllegalState, format, args...)
}

func targetingError(format string, args ...interface{}) *Error {
	return newError(KindTargeting, format, args...)
}

// protectionError builds a shield rejection; the remaining turn count is part of the message.
func protectionError(remaining int, format string, args ...interface{}) *Error {
	e := newError(KindProtection, format, args...)
	e.RemainingTurns = remaining
	return e
}

// NewValidationError is used by layers above the room to reject malformed input.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewConcurrencyError is used by the coordinator when a turn lock is already held.
func NewConcurrencyError(msg string) *Error {
	return &Error{Kind: KindConcurrency, Message: msg}
}

// NewIdentityError is used when a connection cannot be tied to a verified identity.
func NewIdentityError(msg string) *Error {
	return &Error{Kind: KindIdentity, Message: msg}
}

// NewIllegalStateError is used by layers above the room for state violations they detect themselves.
func NewIllegalStateError(msg string) *Error {
	return &Error{Kind: KindIllegalState, Message: msg}
}

// ValidationResult is returned by the state-checking helpers. It never carries an error value;
// callers decide whether an invalid result becomes a rejection.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Error: fmt.Sprintf(format, args...)}
}
