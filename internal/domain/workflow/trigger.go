package workflow

// Trigger represents an action that moves a form between states
type Trigger string

const (
	TriggerSubmit  Trigger = "SUBMIT"
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
	TriggerRework  Trigger = "REWORK"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// ParseTrigger converts user input into a known trigger
func ParseTrigger(s string) (Trigger, bool) {
	switch t := Trigger(s); t {
	case TriggerSubmit, TriggerApprove, TriggerReject, TriggerRework:
		return t, true
	default:
		return "", false
	}
}
