package workflow

import "github.com/aeci-mmu/fieldforms/internal/domain/entity"

// NewFormLifecycle builds the form lifecycle machine positioned at the
// form's current status:
//
//	DRAFT --SUBMIT--> SUBMITTED --APPROVE--> APPROVED
//	                  SUBMITTED --REJECT---> REJECTED --REWORK--> DRAFT
//
// canSubmit guards SUBMIT; pass nil to allow it unconditionally.
func NewFormLifecycle(status entity.FormStatus, canSubmit GuardFunc) StateMachine {
	return NewBuilder().
		PermitIf(StateDraft, TriggerSubmit, StateSubmitted, canSubmit).
		Permit(StateSubmitted, TriggerApprove, StateApproved).
		Permit(StateSubmitted, TriggerReject, StateRejected).
		Permit(StateRejected, TriggerRework, StateDraft).
		Build(FromStatus(status))
}
