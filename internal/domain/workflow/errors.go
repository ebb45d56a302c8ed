package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a transition exists but its guard rejected it
	ErrGuardFailed = errors.New("guard condition failed")
)
