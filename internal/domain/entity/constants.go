package entity

// FormType identifies a form variant
type FormType string

// Form type constants
const (
	FormTypeBlastHoleLog               FormType = "blast_hole_log"
	FormTypeQualityReport              FormType = "quality_report"
	FormTypeProductionDailyLog         FormType = "production_daily_log"
	FormTypePumpInspection             FormType = "pump_inspection"
	FormTypeFireExtinguisherInspection FormType = "fire_extinguisher_inspection"
	FormTypeJobCard                    FormType = "job_card"
	FormTypeTimesheet                  FormType = "timesheet"
)

// AllFormTypes lists every known form type in display order
var AllFormTypes = []FormType{
	FormTypeBlastHoleLog,
	FormTypeQualityReport,
	FormTypeProductionDailyLog,
	FormTypePumpInspection,
	FormTypeFireExtinguisherInspection,
	FormTypeJobCard,
	FormTypeTimesheet,
}

// String returns the string representation of the form type
func (t FormType) String() string {
	return string(t)
}

// IsValid checks if the form type is one of the defined constants
func (t FormType) IsValid() bool {
	switch t {
	case FormTypeBlastHoleLog,
		FormTypeQualityReport,
		FormTypeProductionDailyLog,
		FormTypePumpInspection,
		FormTypeFireExtinguisherInspection,
		FormTypeJobCard,
		FormTypeTimesheet:
		return true
	default:
		return false
	}
}

// FormStatus is the lifecycle status of a form
type FormStatus string

// Status constants for Form
const (
	StatusDraft     FormStatus = "DRAFT"
	StatusSubmitted FormStatus = "SUBMITTED"
	StatusApproved  FormStatus = "APPROVED"
	StatusRejected  FormStatus = "REJECTED"
)

// Shift constants for ProductionDailyLog
const (
	ShiftDay   = "DAY"
	ShiftNight = "NIGHT"
)

// Priority constants for JobCard
const (
	PriorityLow      = "LOW"
	PriorityMedium   = "MEDIUM"
	PriorityHigh     = "HIGH"
	PriorityCritical = "CRITICAL"
)

// Date and time layouts used by form fields
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)
