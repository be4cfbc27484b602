package dispatch

import (
	"fmt"
	"slices"
	"sync"
)

// State is the lifecycle state of one call.
type State int

const (
	StateNotStarted State = iota
	StateDispatched
	StateSucceeded
	StateFailed
	StateCancelled
	StateTimedOut
)

var stateNames = map[State]string{
	StateNotStarted: "not_started",
	StateDispatched: "dispatched",
	StateSucceeded:  "succeeded",
	StateFailed:     "failed",
	StateCancelled:  "cancelled",
	StateTimedOut:   "timed_out",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal returns true if no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

var transitions = map[State][]State{
	StateNotStarted: {StateDispatched},
	StateDispatched: {StateSucceeded, StateFailed, StateCancelled, StateTimedOut},
}

// stateMachine guards the transitions of one call. An illegal transition is
// a bug in the dispatcher and panics.
type stateMachine struct {
	mu       sync.Mutex
	state    State
	onChange func(State)
}

func (m *stateMachine) transition(to State) {
	m.mu.Lock()
	from := m.state
	if !slices.Contains(transitions[from], to) {
		m.mu.Unlock()
		panic(fmt.Sprintf("dispatch: illegal call state transition %s -> %s", from, to))
	}
	m.state = to
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(to)
	}
}

func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
