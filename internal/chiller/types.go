package chiller

import "fmt"

// State is the coarse lifecycle phase of the chiller, inferred from the
// polled STATUS and IN_MODE_02 responses.
//
// StateFault is sticky: once the device reports an alarm the state stays
// FAULT even if a later STATUS reads ok. Reset is the explicit way out.
type State int

const (
	StateInit State = iota
	StateOn
	StateRunning
	StateFault
)

func (s State) Valid() bool {
	return s == StateInit || s == StateOn || s == StateRunning || s == StateFault
}

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateOn:
		return "on"
	case StateRunning:
		return "running"
	case StateFault:
		return "fault"
	default:
		return "unknown"
	}
}

// ParseState is optional but handy for env vars / CLI.
func ParseState(s string) (State, error) {
	switch s {
	case "init":
		return StateInit, nil
	case "on":
		return StateOn, nil
	case "running":
		return StateRunning, nil
	case "fault":
		return StateFault, nil
	default:
		return StateInit, fmt.Errorf("invalid state: %q", s)
	}
}
