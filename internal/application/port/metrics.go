package port

import "github.com/aeci-mmu/fieldforms/internal/domain/entity"

// Save outcomes reported to Metrics
const (
	OutcomeSaved    = "saved"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics records service-level counters
type Metrics interface {
	ObserveValidation(formType entity.FormType, findings []entity.ValidationFinding)
	ObserveSave(formType entity.FormType, status entity.FormStatus, outcome string)
	ObservePropagation(source, target entity.FormType, action string)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) ObserveValidation(entity.FormType, []entity.ValidationFinding) {}
func (NopMetrics) ObserveSave(entity.FormType, entity.FormStatus, string)        {}
func (NopMetrics) ObservePropagation(entity.FormType, entity.FormType, string)   {}

var _ Metrics = NopMetrics{}
