// Package voice runs a hands-free interview call: record an answer, relay it,
// speak the reply, then listen again.
package voice

import (
	"fmt"
	"sync"
)

// State is the phase of a voice call.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
	StateEnded      State = "ended"
)

// Event drives a state transition.
type Event string

const (
	EventStart     Event = "start"
	EventRecorded  Event = "recorded"
	EventDiscarded Event = "discarded"
	EventReplied   Event = "replied"
	EventSpoken    Event = "spoken"
	EventFailed    Event = "failed"
	EventEnd       Event = "end"
)

// TransitionError is returned for an event that is not legal in the current
// state.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("voice: event %q not allowed in state %q", e.Event, e.From)
}

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateListening,
	},
	StateListening: {
		EventRecorded:  StateProcessing,
		EventDiscarded: StateIdle,
		EventFailed:    StateIdle,
	},
	StateProcessing: {
		EventReplied: StateSpeaking,
		EventFailed:  StateIdle,
	},
	StateSpeaking: {
		EventSpoken: StateIdle,
		EventFailed: StateIdle,
	},
}

// Machine is the call state machine. It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	state    State
	onChange func(from, to State, ev Event)
}

// NewMachine returns a machine in the idle state. onChange, if non-nil, is
// called after every successful transition while the machine lock is held,
// so it must not call back into the machine.
func NewMachine(onChange func(from, to State, ev Event)) *Machine {
	return &Machine{state: StateIdle, onChange: onChange}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies ev and returns the new state. End is accepted from every state
// except ended.
func (m *Machine) Fire(ev Event) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	var to State
	switch {
	case from == StateEnded:
		return from, &TransitionError{From: from, Event: ev}
	case ev == EventEnd:
		to = StateEnded
	default:
		next, ok := transitions[from][ev]
		if !ok {
			return from, &TransitionError{From: from, Event: ev}
		}
		to = next
	}

	m.state = to
	if m.onChange != nil {
		m.onChange(from, to, ev)
	}
	return to, nil
}
