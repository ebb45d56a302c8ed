package event

// Type identifies the type of domain event
type Type string

const (
	TypeFormDraftSaved   Type = "form.draft_saved"
	TypeFormSubmitted    Type = "form.submitted"
	TypeFormTransitioned Type = "form.transitioned"
	TypeFormPropagated   Type = "form.propagated"
	TypeSafetyAlert      Type = "form.safety_alert"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeFormDraftSaved,
		TypeFormSubmitted,
		TypeFormTransitioned,
		TypeFormPropagated,
		TypeSafetyAlert:
		return true
	default:
		return false
	}
}
