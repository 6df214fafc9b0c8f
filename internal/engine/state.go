package engine

import "fmt"

// State is the engine activation state. Exactly one instance exists
// process-wide; transitions are the only way activation changes.
type State int

const (
	StateInactive State = iota
	StateActive
	StateSafetyHalt
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "INACTIVE"
	case StateActive:
		return "ACTIVE"
	case StateSafetyHalt:
		return "SAFETY_HALT"
	default:
		return "UNKNOWN"
	}
}

// allowedTransition encodes the state machine:
// INACTIVE -> ACTIVE (operator start), ACTIVE -> INACTIVE (graceful stop),
// ACTIVE -> SAFETY_HALT (breaker trip / brokerage failure / emergency),
// SAFETY_HALT -> INACTIVE (explicit operator acknowledgement only).
func allowedTransition(from, to State) bool {
	switch from {
	case StateInactive:
		return to == StateActive
	case StateActive:
		return to == StateInactive || to == StateSafetyHalt
	case StateSafetyHalt:
		return to == StateInactive
	}
	return false
}

// ErrBadTransition reports a rejected state change.
type ErrBadTransition struct {
	From, To State
}

func (e ErrBadTransition) Error() string {
	return fmt.Sprintf("engine transition %s -> %s not permitted", e.From, e.To)
}
