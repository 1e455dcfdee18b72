package session

import (
	"fmt"
	"sync"
)

// State is the lifecycle phase of a session run
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCancelled
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateCompleted
}

// allowed transitions; Cancelled and Completed are the only terminals
var transitions = map[State][]State{
	StateIdle:    {StateRunning, StateCancelled},
	StateRunning: {StatePaused, StateCancelled, StateCompleted},
	StatePaused:  {StateRunning, StateCancelled, StateCompleted},
}

// stateMachine guards session state transitions
type stateMachine struct {
	mu    sync.Mutex
	state State
}

// Current returns the current state
func (m *stateMachine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves to next if the transition is allowed, reporting whether
// it took place
func (m *stateMachine) Transition(next State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			return true
		}
	}
	return false
}
