package queue

import (
	"fmt"
	"sync"
)

// stateMachine implements the StateMachine interface.
type stateMachine struct {
	// transitions defines valid state transitions.
	transitions map[State][]State
	mu          sync.RWMutex
}

// NewStateMachine creates a state machine with the job lifecycle transitions.
func NewStateMachine() StateMachine {
	return &stateMachine{
		transitions: map[State][]State{
			StateQueued:    {StateSequenced, StateRejected, StateCancelled},
			StateSequenced: {StateAdmitted, StateCancelled},
			StateAdmitted:  {StateRunning, StateCancelled},
			StateRunning:   {StateCompleted, StateFailed},
			StateCompleted: {}, // Terminal state
			StateFailed:    {}, // Terminal state
			StateRejected:  {}, // Terminal state
			StateCancelled: {}, // Terminal state
		},
	}
}

// Transition moves a job to a new state if the transition is valid.
func (sm *stateMachine) Transition(job *Job, to State) error {
	if job == nil {
		return fmt.Errorf("cannot transition nil job")
	}

	current := job.State()
	if !sm.CanTransition(current, to) {
		return fmt.Errorf("invalid transition from %s to %s", current, to)
	}

	job.setState(to)
	return nil
}

// CanTransition checks if a transition from one state to another is valid.
func (sm *stateMachine) CanTransition(from, to State) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	validStates, exists := sm.transitions[from]
	if !exists {
		return false
	}

	for _, state := range validStates {
		if state == to {
			return true
		}
	}

	return false
}

// IsTerminal checks if a state is terminal (no outgoing transitions).
func (sm *stateMachine) IsTerminal(state State) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	transitions, exists := sm.transitions[state]
	return exists && len(transitions) == 0
}
