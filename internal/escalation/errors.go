package escalation

import "errors"

var (
	// ErrValidation means the input was rejected before anything was persisted,
	// e.g. creating an issue for a site with no ticket contacts.
	ErrValidation = errors.New("invalid escalation input")

	// ErrInvalidTransition means the requested transition violates the state
	// machine: backward status move, terminal issue, or a capability whose
	// level no longer matches the issue's current level.
	ErrInvalidTransition = errors.New("invalid escalation transition")
)
