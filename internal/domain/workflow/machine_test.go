package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StateSubmitted, false},
		{StateRejected, false},
		{StateApproved, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	if !StateDraft.IsValid() {
		t.Error("DRAFT should be valid")
	}
	if State("ARCHIVED").IsValid() {
		t.Error("ARCHIVED should not be valid")
	}
	if State("").IsValid() {
		t.Error("empty state should not be valid")
	}
}

func TestParseTrigger(t *testing.T) {
	if got, ok := ParseTrigger("APPROVE"); !ok || got != TriggerApprove {
		t.Errorf("ParseTrigger(APPROVE) = %v, %v", got, ok)
	}
	if _, ok := ParseTrigger("approve"); ok {
		t.Error("ParseTrigger should be case-sensitive")
	}
}

func TestBuilder_PanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("PermitIf() should panic on invalid target state")
		}
	}()

	NewBuilder().Permit(StateDraft, TriggerSubmit, State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("INVALID"))
}

func TestStateMachine_GuardFails(t *testing.T) {
	machine := NewBuilder().
		PermitIf(StateDraft, TriggerSubmit, StateSubmitted, func(ctx context.Context) bool { return false }).
		Build(StateDraft)

	err := machine.Fire(context.Background(), TriggerSubmit)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateDraft, machine.State())
	}
}

func TestStateMachine_BuildCopiesTable(t *testing.T) {
	builder := NewBuilder().Permit(StateDraft, TriggerSubmit, StateSubmitted)
	machine := builder.Build(StateDraft)

	// Configuring the builder afterwards must not leak into built machines
	builder.Permit(StateDraft, TriggerApprove, StateApproved)

	if machine.CanFire(TriggerApprove) {
		t.Error("machine should not see transitions added after Build()")
	}
}

func TestFormLifecycle_HappyPath(t *testing.T) {
	ctx := context.Background()
	machine := NewFormLifecycle(entity.StatusDraft, nil)

	steps := []struct {
		trigger Trigger
		want    State
	}{
		{TriggerSubmit, StateSubmitted},
		{TriggerReject, StateRejected},
		{TriggerRework, StateDraft},
		{TriggerSubmit, StateSubmitted},
		{TriggerApprove, StateApproved},
	}

	for _, step := range steps {
		if err := machine.Fire(ctx, step.trigger); err != nil {
			t.Fatalf("Fire(%s) failed: %v", step.trigger, err)
		}
		if machine.State() != step.want {
			t.Fatalf("after %s state = %v, want %v", step.trigger, machine.State(), step.want)
		}
	}

	if got := machine.PermittedTriggers(); len(got) != 0 {
		t.Errorf("approved form should permit no triggers, got %v", got)
	}
}

func TestFormLifecycle_InvalidTransitions(t *testing.T) {
	tests := []struct {
		status  entity.FormStatus
		trigger Trigger
	}{
		{entity.StatusDraft, TriggerApprove},
		{entity.StatusDraft, TriggerRework},
		{entity.StatusSubmitted, TriggerSubmit},
		{entity.StatusApproved, TriggerReject},
		{entity.StatusRejected, TriggerApprove},
	}

	for _, tt := range tests {
		t.Run(string(tt.status)+"_"+string(tt.trigger), func(t *testing.T) {
			machine := NewFormLifecycle(tt.status, nil)
			err := machine.Fire(context.Background(), tt.trigger)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
			}
		})
	}
}

func TestFormLifecycle_SubmitGuard(t *testing.T) {
	blocked := NewFormLifecycle(entity.StatusDraft, func(ctx context.Context) bool { return false })
	if err := blocked.Fire(context.Background(), TriggerSubmit); !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	machine := NewFormLifecycle(entity.StatusSubmitted, nil)
	got := machine.PermittedTriggers()
	if len(got) != 2 || got[0] != TriggerApprove || got[1] != TriggerReject {
		t.Errorf("PermittedTriggers() = %v, want [APPROVE REJECT]", got)
	}
}
