package validation

import (
	"strings"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

func (e *Engine) checkJobCard(c *collector, j entity.JobCard) {
	c.required("job_number", j.JobNumber, "Job number")
	c.required("equipment_id", j.EquipmentID, "Equipment")
	c.required("description", j.Description, "Description")

	switch j.Priority {
	case entity.PriorityLow, entity.PriorityMedium, entity.PriorityHigh, entity.PriorityCritical:
	case "":
		c.fail("priority", "Priority is required")
	default:
		c.fail("priority", "Priority %q must be one of LOW, MEDIUM, HIGH, CRITICAL", j.Priority)
	}

	if strings.TrimSpace(j.AssignedTo) == "" {
		c.warn("assigned_to", "Job card is not assigned to anyone")
	}

	window := c.checkTimes("", j.StartTime, j.EndTime, false, false)
	c.durationMatches("labour_hours", window, j.LabourHours, e.cfg.DurationToleranceHours, false)
	c.nonNegative("labour_hours", j.LabourHours, "Labour hours")

	sum := 0.0
	for i, part := range j.Parts {
		c.required(indexed("parts", i, "name"), part.Name, "Part name")
		if part.Quantity <= 0 {
			c.fail(indexed("parts", i, "quantity"), "Part quantity must be greater than zero")
		}
		if part.UnitCost < 0 {
			c.fail(indexed("parts", i, "unit_cost"), "Part unit cost cannot be negative")
		}
		sum += part.Quantity * part.UnitCost
	}
	c.totalMatches("total_parts_cost", sum, j.TotalPartsCost, e.cfg.TotalTolerance, "Total parts cost")
}
