package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a configured transition may be taken
type GuardFunc func(ctx context.Context) bool

// StateMachine tracks the current state of one form and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether a transition is configured for the trigger
	CanFire(trigger Trigger) bool

	// Fire moves to the first target state whose guard passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the configured triggers for the current state, sorted
	PermittedTriggers() []Trigger
}

type transition struct {
	to    State
	guard GuardFunc
}

// Builder collects transitions and builds machines from them
type Builder struct {
	transitions map[State]map[Trigger][]transition
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{transitions: make(map[State]map[Trigger][]transition)}
}

// Permit allows trigger to move from one state to another
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	return b.PermitIf(from, trigger, to, nil)
}

// PermitIf allows trigger to move from one state to another when guard passes.
// Panics on states outside the lifecycle, which is a programming error.
func (b *Builder) PermitIf(from State, trigger Trigger, to State, guard GuardFunc) *Builder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	byTrigger, ok := b.transitions[from]
	if !ok {
		byTrigger = make(map[Trigger][]transition)
		b.transitions[from] = byTrigger
	}
	byTrigger[trigger] = append(byTrigger[trigger], transition{to: to, guard: guard})
	return b
}

// Build creates a machine positioned at initial. The machine gets its own
// copy of the transition table.
func (b *Builder) Build(initial State) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	table := make(map[State]map[Trigger][]transition, len(b.transitions))
	for from, byTrigger := range b.transitions {
		cp := make(map[Trigger][]transition, len(byTrigger))
		for trigger, ts := range byTrigger {
			cp[trigger] = append([]transition(nil), ts...)
		}
		table[from] = cp
	}

	return &stateMachine{current: initial, table: table}
}

type stateMachine struct {
	current State
	table   map[State]map[Trigger][]transition
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.table[m.current][trigger]) > 0
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	ts := m.table[m.current][trigger]
	if len(ts) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	byTrigger := m.table[m.current]
	triggers := make([]Trigger, 0, len(byTrigger))
	for trigger := range byTrigger {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
