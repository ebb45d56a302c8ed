package template

import (
	"fmt"
	"strings"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

// TransformFunc derives a target value from a source value
type TransformFunc func(value any) (any, error)

// Mapping copies one source field into one target field
type Mapping struct {
	Source    string
	Target    string
	Transform TransformFunc
}

// RelationshipRule declares how saving a source form updates a target form type
type RelationshipRule struct {
	TargetType entity.FormType
	Mappings   []Mapping

	// When, if set, limits the rule to source forms whose fields satisfy it
	When func(fields map[string]any) bool
}

// Applies reports whether the rule should run for the given source fields
func (r RelationshipRule) Applies(fields map[string]any) bool {
	return r.When == nil || r.When(fields)
}

func blastHoleLogRules() []RelationshipRule {
	return []RelationshipRule{
		{
			TargetType: entity.FormTypeQualityReport,
			Mappings: []Mapping{
				{Source: "total_emulsion_used", Target: "emulsion_used_today"},
			},
		},
		{
			TargetType: entity.FormTypeProductionDailyLog,
			Mappings: []Mapping{
				{Source: "total_emulsion_used", Target: "emulsion_used_today"},
				{Source: "total_holes", Target: "holes_charged"},
			},
		},
	}
}

func productionDailyLogRules() []RelationshipRule {
	return []RelationshipRule{
		{
			TargetType: entity.FormTypeQualityReport,
			Mappings: []Mapping{
				{Source: "emulsion_produced_kg", Target: "emulsion_produced_today"},
			},
		},
	}
}

// Failed pump inspections open a follow-up job card for the pump.
func pumpInspectionRules() []RelationshipRule {
	return []RelationshipRule{
		{
			TargetType: entity.FormTypeJobCard,
			When: func(fields map[string]any) bool {
				items, _ := fields["items"].([]entity.InspectionItem)
				return len(failedItemNames(items)) > 0
			},
			Mappings: []Mapping{
				{Source: "pump_id", Target: "equipment_id"},
				{Source: "items", Target: "description", Transform: summarizeFailedItems},
			},
		},
	}
}

func summarizeFailedItems(value any) (any, error) {
	items, ok := value.([]entity.InspectionItem)
	if !ok {
		return nil, fmt.Errorf("expected inspection items, got %T", value)
	}
	return "Pump inspection follow-up: " + strings.Join(failedItemNames(items), ", "), nil
}

func failedItemNames(items []entity.InspectionItem) []string {
	var names []string
	for _, item := range items {
		if !item.Passed {
			names = append(names, item.Name)
		}
	}
	return names
}
