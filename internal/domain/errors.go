package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.

var (
	// Input errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrMalformedDate      = errors.New("malformed date, want YYYY-MM-DD")
	ErrUnknownSessionType = errors.New("unknown session type")
	ErrInvalidItem        = errors.New("invalid progress item")

	// Lookup errors
	ErrSessionNotFound = errors.New("focus session not found")
	ErrItemNotFound    = errors.New("progress item not found")
	ErrUnknownUser     = errors.New("user id is required")

	// State machine errors
	ErrInvalidTransition = errors.New("invalid state transition")

	// Remote authority errors
	ErrRemoteUnavailable   = errors.New("remote authority is unreachable")
	ErrRemoteRejected      = errors.New("remote authority rejected the operation")
	ErrRemoteNotConfigured = errors.New("no remote authority configured")
)

// TransitionError reports a focus session state-machine violation.
// It always wraps ErrInvalidTransition.
type TransitionError struct {
	SessionID string
	From      SessionStatus
	Action    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session %s: cannot %s from %s", e.SessionID, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Invalid wraps ErrInvalidInput with a description.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
