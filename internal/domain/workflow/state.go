package workflow

import "github.com/aeci-mmu/fieldforms/internal/domain/entity"

// State represents a form lifecycle state
type State string

const (
	StateDraft     State = "DRAFT"
	StateSubmitted State = "SUBMITTED"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
)

var validStates = map[State]bool{
	StateDraft:     true,
	StateSubmitted: true,
	StateApproved:  true,
	StateRejected:  true,
}

// IsTerminal returns true if no further transitions are allowed from the state
func (s State) IsTerminal() bool {
	return s == StateApproved
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// FromStatus maps a persisted form status to a lifecycle state
func FromStatus(status entity.FormStatus) State {
	return State(status)
}

// Status maps the state back to a form status
func (s State) Status() entity.FormStatus {
	return entity.FormStatus(s)
}
