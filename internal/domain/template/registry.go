// Package template holds the static definition of each form type: its field
// schema and the relationship rules that propagate values into other forms.
package template

import (
	"sort"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

// FieldKind is the value kind of a schema field
type FieldKind string

const (
	KindText    FieldKind = "text"
	KindNumber  FieldKind = "number"
	KindInteger FieldKind = "integer"
	KindBool    FieldKind = "bool"
	KindList    FieldKind = "list"
)

// FieldSpec describes one top-level field of a payload
type FieldSpec struct {
	Key  string
	Kind FieldKind
}

// Template is the static definition of one form type
type Template struct {
	Type          entity.FormType
	DisplayName   string
	Fields        []FieldSpec
	Relationships []RelationshipRule

	byKey map[string]FieldSpec
}

// Field looks up a field spec by key
func (t *Template) Field(key string) (FieldSpec, bool) {
	spec, ok := t.byKey[key]
	return spec, ok
}

// Registry maps form types to their templates
type Registry struct {
	templates map[entity.FormType]*Template
}

// NewRegistry builds a registry from templates. Later templates replace
// earlier ones of the same type.
func NewRegistry(templates ...*Template) *Registry {
	r := &Registry{templates: make(map[entity.FormType]*Template, len(templates))}
	for _, t := range templates {
		t.byKey = make(map[string]FieldSpec, len(t.Fields))
		for _, f := range t.Fields {
			t.byKey[f.Key] = f
		}
		r.templates[t.Type] = t
	}
	return r
}

// Get returns the template for a form type
func (r *Registry) Get(t entity.FormType) (*Template, bool) {
	tmpl, ok := r.templates[t]
	return tmpl, ok
}

// RulesFor returns the relationship rules declared by a source form type.
// Undeclared types have none.
func (r *Registry) RulesFor(t entity.FormType) []RelationshipRule {
	tmpl, ok := r.templates[t]
	if !ok {
		return nil
	}
	return tmpl.Relationships
}

// Types returns the registered form types in sorted order
func (r *Registry) Types() []entity.FormType {
	types := make([]entity.FormType, 0, len(r.templates))
	for t := range r.templates {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DefaultRegistry returns the MMU form templates
func DefaultRegistry() *Registry {
	return NewRegistry(
		&Template{
			Type:        entity.FormTypeBlastHoleLog,
			DisplayName: "Blast Hole Log",
			Fields: []FieldSpec{
				{Key: "bench_number", Kind: KindText},
				{Key: "blast_pattern", Kind: KindText},
				{Key: "shot_firer", Kind: KindText},
				{Key: "operator_name", Kind: KindText},
				{Key: "start_time", Kind: KindText},
				{Key: "end_time", Kind: KindText},
				{Key: "holes", Kind: KindList},
				{Key: "total_holes", Kind: KindInteger},
				{Key: "total_emulsion_used", Kind: KindNumber},
				{Key: "notes", Kind: KindText},
			},
			Relationships: blastHoleLogRules(),
		},
		&Template{
			Type:        entity.FormTypeQualityReport,
			DisplayName: "Quality Report",
			Fields: []FieldSpec{
				{Key: "batch_number", Kind: KindText},
				{Key: "tested_by", Kind: KindText},
				{Key: "ph_level", Kind: KindNumber},
				{Key: "temperature_c", Kind: KindNumber},
				{Key: "density_g_cm3", Kind: KindNumber},
				{Key: "viscosity_cp", Kind: KindNumber},
				{Key: "emulsion_used_today", Kind: KindNumber},
				{Key: "emulsion_produced_today", Kind: KindNumber},
				{Key: "sample_count", Kind: KindInteger},
				{Key: "notes", Kind: KindText},
			},
		},
		&Template{
			Type:        entity.FormTypeProductionDailyLog,
			DisplayName: "Production Daily Log",
			Fields: []FieldSpec{
				{Key: "shift", Kind: KindText},
				{Key: "operator_name", Kind: KindText},
				{Key: "start_time", Kind: KindText},
				{Key: "end_time", Kind: KindText},
				{Key: "duration_hours", Kind: KindNumber},
				{Key: "emulsion_produced_kg", Kind: KindNumber},
				{Key: "emulsion_used_today", Kind: KindNumber},
				{Key: "holes_charged", Kind: KindInteger},
				{Key: "trucks_loaded", Kind: KindInteger},
				{Key: "downtime_hours", Kind: KindNumber},
				{Key: "notes", Kind: KindText},
			},
			Relationships: productionDailyLogRules(),
		},
		&Template{
			Type:        entity.FormTypePumpInspection,
			DisplayName: "Pump Inspection",
			Fields: []FieldSpec{
				{Key: "pump_id", Kind: KindText},
				{Key: "inspector_name", Kind: KindText},
				{Key: "pressure_bar", Kind: KindNumber},
				{Key: "flow_rate_lpm", Kind: KindNumber},
				{Key: "items", Kind: KindList},
			},
			Relationships: pumpInspectionRules(),
		},
		&Template{
			Type:        entity.FormTypeFireExtinguisherInspection,
			DisplayName: "Fire Extinguisher Inspection",
			Fields: []FieldSpec{
				{Key: "extinguisher_id", Kind: KindText},
				{Key: "location", Kind: KindText},
				{Key: "inspector_name", Kind: KindText},
				{Key: "pressure_ok", Kind: KindBool},
				{Key: "expiry_date", Kind: KindText},
				{Key: "items", Kind: KindList},
			},
		},
		&Template{
			Type:        entity.FormTypeJobCard,
			DisplayName: "Job Card",
			Fields: []FieldSpec{
				{Key: "job_number", Kind: KindText},
				{Key: "equipment_id", Kind: KindText},
				{Key: "description", Kind: KindText},
				{Key: "priority", Kind: KindText},
				{Key: "assigned_to", Kind: KindText},
				{Key: "start_time", Kind: KindText},
				{Key: "end_time", Kind: KindText},
				{Key: "labour_hours", Kind: KindNumber},
				{Key: "parts", Kind: KindList},
				{Key: "total_parts_cost", Kind: KindNumber},
			},
		},
		&Template{
			Type:        entity.FormTypeTimesheet,
			DisplayName: "Timesheet",
			Fields: []FieldSpec{
				{Key: "employee_id", Kind: KindText},
				{Key: "employee_name", Kind: KindText},
				{Key: "entries", Kind: KindList},
				{Key: "total_hours", Kind: KindNumber},
			},
		},
	)
}
