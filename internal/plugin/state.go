// Package plugin defines the status model shared by monitoring plugins:
// the ordered state enumeration, its aggregation rule, and the mapping to
// the exit codes a monitoring supervisor expects.
package plugin

import "fmt"

// State is the health verdict a plugin reports. The numeric value doubles
// as the process exit code consumed by the supervisor.
type State int

const (
	StateOK State = iota
	StateWarning
	StateCritical
	StateUnknown
)

// String returns the uppercase name used in plugin output lines.
func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	case StateUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// ExitCode returns the process exit code for the state.
func (s State) ExitCode() int {
	return int(s)
}

// Max returns the more severe of two states. Severity follows the numeric
// exit-code order, so UNKNOWN outranks CRITICAL outranks WARNING outranks
// OK.
func Max(a, b State) State {
	if a > b {
		return a
	}
	return b
}
