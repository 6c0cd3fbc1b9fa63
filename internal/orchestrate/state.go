package orchestrate

import (
	"errors"
	"fmt"

	"simulation-parsers/internal/common"
)

// State is the state of a Run.
type State int

const (
	StateIdle State = iota
	StateMainParsed
	StateAuxParsed
	StateChildSpawned
	StateDone
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMainParsed:
		return "main_parsed"
	case StateAuxParsed:
		return "aux_parsed"
	case StateChildSpawned:
		return "child_spawned"
	case StateDone:
		return "done"
	default:
		return common.UnknownStr
	}
}

// ErrInvalidTransition is returned when a Run operation is called in a state
// that does not allow it.
var ErrInvalidTransition = errors.New("invalid state transition")

// transitions lists the states each state may move to.
var transitions = map[State][]State{
	StateIdle:         {StateMainParsed},
	StateMainParsed:   {StateAuxParsed, StateChildSpawned, StateDone},
	StateAuxParsed:    {StateAuxParsed, StateChildSpawned, StateDone},
	StateChildSpawned: {StateChildSpawned, StateDone},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// FatalInputError reports that the main file could not be read or parsed.
type FatalInputError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *FatalInputError) Error() string {
	return fmt.Sprintf("cannot read main file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FatalInputError) Unwrap() error {
	return e.Err
}
