package modhost

import "fmt"

// State is a position in the module lifecycle. States double as hook
// phases: a hook tagged StateStarted fires while a module starts.
type State int32

const (
	StateUnloaded State = iota
	StateLoaded
	StateStarted
	StateStopped
	StateUnusable
)

var stateNames = [...]string{
	StateUnloaded: "UNLOADED",
	StateLoaded:   "LOADED",
	StateStarted:  "STARTED",
	StateStopped:  "STOPPED",
	StateUnusable: "UNUSABLE",
}

var transitions = map[State][]State{
	StateUnloaded: {StateLoaded},
	StateLoaded:   {StateStarted, StateStopped, StateUnusable},
	StateStarted:  {StateStopped, StateUnusable},
	StateStopped:  {StateStarted, StateUnusable},
	StateUnusable: nil,
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown module state %q", text)
}

// CanTransitionTo reports whether the lifecycle table allows moving to next.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateUnusable
}
