// Package fsm is a small transition-table state machine.
package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrInvalidTransition = errors.New("invalid transition")

// State represents a state identifier.
type State string

// Event represents a transition trigger.
type Event string

// Transition defines a state change caused by an event.
type Transition struct {
	From  State
	Event Event
	To    State
}

// Definition is an immutable transition table shared by many machines.
type Definition struct {
	initial     State
	transitions map[State]map[Event]Transition
	terminal    map[State]bool
}

// NewDefinition builds a table rooted at initial.
func NewDefinition(initial State, transitions []Transition) *Definition {
	d := &Definition{
		initial:     initial,
		transitions: make(map[State]map[Event]Transition),
		terminal:    make(map[State]bool),
	}
	for _, t := range transitions {
		if _, ok := d.transitions[t.From]; !ok {
			d.transitions[t.From] = make(map[Event]Transition)
		}
		d.transitions[t.From][t.Event] = t
	}
	return d
}

// Validate checks that every referenced state is reachable from the initial
// state and that states without outgoing transitions are the declared terminals.
func (d *Definition) Validate(terminals ...State) error {
	for _, s := range terminals {
		d.terminal[s] = true
	}
	reachable := map[State]bool{d.initial: true}
	queue := []State{d.initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range d.transitions[s] {
			if t.To == "" {
				return fmt.Errorf("transition %s --%s--> has no target", s, t.Event)
			}
			if !reachable[t.To] {
				reachable[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	for from := range d.transitions {
		if !reachable[from] {
			return fmt.Errorf("state %s unreachable", from)
		}
	}
	for s := range reachable {
		_, hasOut := d.transitions[s]
		if !hasOut && !d.terminal[s] {
			return fmt.Errorf("state %s is a dead end", s)
		}
		if hasOut && d.terminal[s] {
			return fmt.Errorf("terminal state %s has transitions", s)
		}
	}
	return nil
}

// FSM is one run through a Definition.
type FSM struct {
	def     *Definition
	current State
	history []State
	mu      sync.RWMutex
}

// New starts a machine in the definition's initial state.
func (d *Definition) New() *FSM {
	return &FSM{def: d, current: d.initial, history: []State{d.initial}}
}

// Trigger moves the FSM according to an event. Unknown events leave the
// state unchanged and return ErrInvalidTransition.
func (f *FSM) Trigger(ctx context.Context, e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trans, ok := f.def.transitions[f.current][e]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, f.current)
	}
	f.current = trans.To
	f.history = append(f.history, trans.To)
	return nil
}

// GetState returns the current state.
func (f *FSM) GetState() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Terminal reports whether the current state has no way out.
func (f *FSM) Terminal() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.def.terminal[f.current]
}

// History returns every state visited, in order.
func (f *FSM) History() []State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]State(nil), f.history...)
}
