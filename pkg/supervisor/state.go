package supervisor

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of the supervisor.
type State int

const (
	// Configuring renders the export table and access-control files.
	Configuring State = iota

	// StartingUp launches the daemons, retrying until the mount daemon is alive.
	StartingUp

	// Running polls the mount daemon.
	Running

	// ShuttingDown unexports and stops the daemons after a termination signal.
	ShuttingDown

	// Failed is final: the program exits with a non-zero status.
	Failed

	// Terminated is final: the program exits with status 0.
	Terminated
)

func (s State) String() string {
	switch s {
	case Configuring:
		return "Configuring"
	case StartingUp:
		return "StartingUp"
	case Running:
		return "Running"
	case ShuttingDown:
		return "ShuttingDown"
	case Failed:
		return "Failed"
	case Terminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Final reports whether no further transition can leave s.
func (s State) Final() bool {
	return s == Failed || s == Terminated
}

// Event drives a state transition.
type Event int

const (
	EventConfigured Event = iota
	EventConfigFailed
	EventAttemptFailed
	EventExportFailed
	EventMountDaemonAlive
	EventMountDaemonDied
	EventSignal
	EventShutdownComplete
)

func (e Event) String() string {
	switch e {
	case EventConfigured:
		return "configured"
	case EventConfigFailed:
		return "config failed"
	case EventAttemptFailed:
		return "attempt failed"
	case EventExportFailed:
		return "export failed"
	case EventMountDaemonAlive:
		return "mount daemon alive"
	case EventMountDaemonDied:
		return "mount daemon died"
	case EventSignal:
		return "signal"
	case EventShutdownComplete:
		return "shutdown complete"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// ErrInvalidTransition is returned for an event the current state does not accept.
var ErrInvalidTransition = errors.New("invalid state transition")

type transitionKey struct {
	from  State
	event Event
}

var transitions = map[transitionKey]State{
	{Configuring, EventConfigured}:        StartingUp,
	{Configuring, EventConfigFailed}:      Failed,
	{StartingUp, EventAttemptFailed}:      StartingUp,
	{StartingUp, EventExportFailed}:       Failed,
	{StartingUp, EventMountDaemonAlive}:   Running,
	{Running, EventMountDaemonDied}:       Failed,
	{ShuttingDown, EventShutdownComplete}: Terminated,
}

// Transition returns the state reached from "from" on event ev.
//
// A signal moves every non-final state to ShuttingDown. ShuttingDown only
// accepts EventShutdownComplete, so no startup attempt can begin once it is
// entered.
func Transition(from State, ev Event) (State, error) {
	if ev == EventSignal && !from.Final() && from != ShuttingDown {
		return ShuttingDown, nil
	}
	if to, ok := transitions[transitionKey{from, ev}]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s on %q", ErrInvalidTransition, from, ev)
}
