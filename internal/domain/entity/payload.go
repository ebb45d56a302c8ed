package entity

import (
	"encoding/json"
	"fmt"
)

// Payload is the type-specific body of a form. The set of implementations
// is closed: every variant lives in this file.
type Payload interface {
	payload()
}

// BlastHole is one charged hole on a blast-hole log
type BlastHole struct {
	HoleNumber string  `json:"hole_number" mapstructure:"hole_number"`
	DepthM     float64 `json:"depth_m" mapstructure:"depth_m"`
	DiameterMM float64 `json:"diameter_mm" mapstructure:"diameter_mm"`
	EmulsionKg float64 `json:"emulsion_kg" mapstructure:"emulsion_kg"`
	StemmingM  float64 `json:"stemming_m" mapstructure:"stemming_m"`
}

// BlastHoleLog records the charging of a blast pattern
type BlastHoleLog struct {
	BenchNumber       string      `json:"bench_number" mapstructure:"bench_number"`
	BlastPattern      string      `json:"blast_pattern" mapstructure:"blast_pattern"`
	ShotFirer         string      `json:"shot_firer" mapstructure:"shot_firer"`
	OperatorName      string      `json:"operator_name" mapstructure:"operator_name"`
	StartTime         string      `json:"start_time" mapstructure:"start_time"`
	EndTime           string      `json:"end_time" mapstructure:"end_time"`
	Holes             []BlastHole `json:"holes" mapstructure:"holes"`
	TotalHoles        int         `json:"total_holes" mapstructure:"total_holes"`
	TotalEmulsionUsed float64     `json:"total_emulsion_used" mapstructure:"total_emulsion_used"`
	Notes             string      `json:"notes" mapstructure:"notes"`
}

// QualityReport records emulsion quality samples for the day
type QualityReport struct {
	BatchNumber           string  `json:"batch_number" mapstructure:"batch_number"`
	TestedBy              string  `json:"tested_by" mapstructure:"tested_by"`
	PHLevel               float64 `json:"ph_level" mapstructure:"ph_level"`
	TemperatureC          float64 `json:"temperature_c" mapstructure:"temperature_c"`
	DensityGCm3           float64 `json:"density_g_cm3" mapstructure:"density_g_cm3"`
	ViscosityCP           float64 `json:"viscosity_cp" mapstructure:"viscosity_cp"`
	EmulsionUsedToday     float64 `json:"emulsion_used_today" mapstructure:"emulsion_used_today"`
	EmulsionProducedToday float64 `json:"emulsion_produced_today" mapstructure:"emulsion_produced_today"`
	SampleCount           int     `json:"sample_count" mapstructure:"sample_count"`
	Notes                 string  `json:"notes" mapstructure:"notes"`
}

// ProductionDailyLog records one shift of emulsion production
type ProductionDailyLog struct {
	Shift              string  `json:"shift" mapstructure:"shift"`
	OperatorName       string  `json:"operator_name" mapstructure:"operator_name"`
	StartTime          string  `json:"start_time" mapstructure:"start_time"`
	EndTime            string  `json:"end_time" mapstructure:"end_time"`
	DurationHours      float64 `json:"duration_hours" mapstructure:"duration_hours"`
	EmulsionProducedKg float64 `json:"emulsion_produced_kg" mapstructure:"emulsion_produced_kg"`
	EmulsionUsedToday  float64 `json:"emulsion_used_today" mapstructure:"emulsion_used_today"`
	HolesCharged       int     `json:"holes_charged" mapstructure:"holes_charged"`
	TrucksLoaded       int     `json:"trucks_loaded" mapstructure:"trucks_loaded"`
	DowntimeHours      float64 `json:"downtime_hours" mapstructure:"downtime_hours"`
	Notes              string  `json:"notes" mapstructure:"notes"`
}

// InspectionItem is one checklist line of an inspection
type InspectionItem struct {
	Name   string `json:"name" mapstructure:"name"`
	Passed bool   `json:"passed" mapstructure:"passed"`
	Notes  string `json:"notes" mapstructure:"notes"`
}

// PumpInspection is the pump checklist
type PumpInspection struct {
	PumpID        string           `json:"pump_id" mapstructure:"pump_id"`
	InspectorName string           `json:"inspector_name" mapstructure:"inspector_name"`
	PressureBar   float64          `json:"pressure_bar" mapstructure:"pressure_bar"`
	FlowRateLPM   float64          `json:"flow_rate_lpm" mapstructure:"flow_rate_lpm"`
	Items         []InspectionItem `json:"items" mapstructure:"items"`
}

// FireExtinguisherInspection is the monthly extinguisher checklist
type FireExtinguisherInspection struct {
	ExtinguisherID string           `json:"extinguisher_id" mapstructure:"extinguisher_id"`
	Location       string           `json:"location" mapstructure:"location"`
	InspectorName  string           `json:"inspector_name" mapstructure:"inspector_name"`
	PressureOK     bool             `json:"pressure_ok" mapstructure:"pressure_ok"`
	ExpiryDate     string           `json:"expiry_date" mapstructure:"expiry_date"`
	Items          []InspectionItem `json:"items" mapstructure:"items"`
}

// JobPart is a spare part consumed by a job card
type JobPart struct {
	Name     string  `json:"name" mapstructure:"name"`
	Quantity float64 `json:"quantity" mapstructure:"quantity"`
	UnitCost float64 `json:"unit_cost" mapstructure:"unit_cost"`
}

// JobCard records a maintenance job on a piece of equipment
type JobCard struct {
	JobNumber      string    `json:"job_number" mapstructure:"job_number"`
	EquipmentID    string    `json:"equipment_id" mapstructure:"equipment_id"`
	Description    string    `json:"description" mapstructure:"description"`
	Priority       string    `json:"priority" mapstructure:"priority"`
	AssignedTo     string    `json:"assigned_to" mapstructure:"assigned_to"`
	StartTime      string    `json:"start_time" mapstructure:"start_time"`
	EndTime        string    `json:"end_time" mapstructure:"end_time"`
	LabourHours    float64   `json:"labour_hours" mapstructure:"labour_hours"`
	Parts          []JobPart `json:"parts" mapstructure:"parts"`
	TotalPartsCost float64   `json:"total_parts_cost" mapstructure:"total_parts_cost"`
}

// TimesheetEntry is one block of work on a timesheet
type TimesheetEntry struct {
	StartTime string  `json:"start_time" mapstructure:"start_time"`
	EndTime   string  `json:"end_time" mapstructure:"end_time"`
	Hours     float64 `json:"hours" mapstructure:"hours"`
	Activity  string  `json:"activity" mapstructure:"activity"`
}

// Timesheet records an employee's hours for the day
type Timesheet struct {
	EmployeeID   string           `json:"employee_id" mapstructure:"employee_id"`
	EmployeeName string           `json:"employee_name" mapstructure:"employee_name"`
	Entries      []TimesheetEntry `json:"entries" mapstructure:"entries"`
	TotalHours   float64          `json:"total_hours" mapstructure:"total_hours"`
}

// FieldMap is the legacy generic payload: loosely typed values keyed by field name
type FieldMap map[string]any

func (BlastHoleLog) payload()               {}
func (QualityReport) payload()              {}
func (ProductionDailyLog) payload()         {}
func (PumpInspection) payload()             {}
func (FireExtinguisherInspection) payload() {}
func (JobCard) payload()                    {}
func (Timesheet) payload()                  {}
func (FieldMap) payload()                   {}

// NewPayload returns the zero-valued payload for a form type: empty strings,
// zero numbers and empty lists.
func NewPayload(t FormType) (Payload, error) {
	switch t {
	case FormTypeBlastHoleLog:
		return BlastHoleLog{Holes: []BlastHole{}}, nil
	case FormTypeQualityReport:
		return QualityReport{}, nil
	case FormTypeProductionDailyLog:
		return ProductionDailyLog{}, nil
	case FormTypePumpInspection:
		return PumpInspection{Items: []InspectionItem{}}, nil
	case FormTypeFireExtinguisherInspection:
		return FireExtinguisherInspection{Items: []InspectionItem{}}, nil
	case FormTypeJobCard:
		return JobCard{Parts: []JobPart{}}, nil
	case FormTypeTimesheet:
		return Timesheet{Entries: []TimesheetEntry{}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormType, t)
	}
}

// PayloadType returns the form type a typed payload belongs to. FieldMap has none.
func PayloadType(p Payload) (FormType, bool) {
	switch p.(type) {
	case BlastHoleLog:
		return FormTypeBlastHoleLog, true
	case QualityReport:
		return FormTypeQualityReport, true
	case ProductionDailyLog:
		return FormTypeProductionDailyLog, true
	case PumpInspection:
		return FormTypePumpInspection, true
	case FireExtinguisherInspection:
		return FormTypeFireExtinguisherInspection, true
	case JobCard:
		return FormTypeJobCard, true
	case Timesheet:
		return FormTypeTimesheet, true
	default:
		return "", false
	}
}

// DecodePayload unmarshals a JSON payload into the variant for t
func DecodePayload(t FormType, data []byte) (Payload, error) {
	switch t {
	case FormTypeBlastHoleLog:
		return decodeInto[BlastHoleLog](data)
	case FormTypeQualityReport:
		return decodeInto[QualityReport](data)
	case FormTypeProductionDailyLog:
		return decodeInto[ProductionDailyLog](data)
	case FormTypePumpInspection:
		return decodeInto[PumpInspection](data)
	case FormTypeFireExtinguisherInspection:
		return decodeInto[FireExtinguisherInspection](data)
	case FormTypeJobCard:
		return decodeInto[JobCard](data)
	case FormTypeTimesheet:
		return decodeInto[Timesheet](data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormType, t)
	}
}

func decodeInto[T Payload](data []byte) (Payload, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return v, nil
}

// UnmarshalJSON decodes a form, resolving the payload variant from form_type
func (f *Form) UnmarshalJSON(data []byte) error {
	type alias Form
	aux := struct {
		*alias
		Payload json.RawMessage `json:"payload"`
	}{alias: (*alias)(f)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.Payload) == 0 || string(aux.Payload) == "null" {
		f.Payload = nil
		return nil
	}

	p, err := DecodePayload(f.Type, aux.Payload)
	if err != nil {
		return err
	}
	f.Payload = p
	return nil
}
