package types

import (
	"fmt"
)

type State uint32

const (
	StateUninitialized = State(iota)
	StateInitializing
	StateReady
	StatePlaying
	StatePaused
	StateEnded
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", uint32(s))
	}
}

// IsReady reports whether Ready has been reached (and not yet disposed).
func (s State) IsReady() bool {
	switch s {
	case StateReady, StatePlaying, StatePaused, StateEnded:
		return true
	default:
		return false
	}
}
