package validation

import (
	"strings"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

const (
	minPumpPressure = 0.0
	maxPumpPressure = 200.0
)

func (e *Engine) checkPumpInspection(c *collector, p entity.PumpInspection) {
	c.required("pump_id", p.PumpID, "Pump ID")
	c.required("inspector_name", p.InspectorName, "Inspector")

	if p.PressureBar < minPumpPressure || p.PressureBar > maxPumpPressure {
		c.fail("pressure_bar", "Pressure %.1f bar must be between %.0f and %.0f", p.PressureBar, minPumpPressure, maxPumpPressure)
	}
	c.nonNegative("flow_rate_lpm", p.FlowRateLPM, "Flow rate")

	e.checkInspectionItems(c, p.Items)
}

func (e *Engine) checkFireExtinguisherInspection(c *collector, p entity.FireExtinguisherInspection, asOf time.Time) {
	c.required("extinguisher_id", p.ExtinguisherID, "Extinguisher ID")
	c.required("location", p.Location, "Location")
	c.required("inspector_name", p.InspectorName, "Inspector")

	if !p.PressureOK {
		c.fail("pressure_ok", "Extinguisher pressure is not in the green zone")
	}

	if strings.TrimSpace(p.ExpiryDate) == "" {
		c.fail("expiry_date", "Expiry date is required")
	} else if expiry, err := time.ParseInLocation(entity.DateLayout, p.ExpiryDate, asOf.Location()); err != nil {
		c.fail("expiry_date", "Expiry date %q is not a valid date (expected YYYY-MM-DD)", p.ExpiryDate)
	} else {
		today := entity.DateOf(asOf)
		switch {
		case expiry.Before(today):
			c.fail("expiry_date", "Extinguisher expired on %s", p.ExpiryDate)
		case expiry.Before(today.AddDate(0, 0, e.cfg.ExpiryWarningDays)):
			c.warn("expiry_date", "Extinguisher expires on %s", p.ExpiryDate)
		}
	}

	e.checkInspectionItems(c, p.Items)
}

// checkInspectionItems fails every failed item; a failed item whose notes
// mention a safety keyword is CRITICAL instead.
func (e *Engine) checkInspectionItems(c *collector, items []entity.InspectionItem) {
	if len(items) == 0 {
		c.fail("items", "At least one inspection item must be recorded")
		return
	}

	for i, item := range items {
		label := item.Name
		if strings.TrimSpace(label) == "" {
			c.fail(indexed("items", i, "name"), "Inspection item name is required")
			label = "#" + itoa(i+1)
		}

		if item.Passed {
			continue
		}

		if keyword, ok := e.safetyKeyword(item.Notes); ok {
			c.critical(indexed("items", i, "passed"),
				"Inspection item %s failed with a safety concern (%s): %s", label, keyword, item.Notes)
			continue
		}
		c.fail(indexed("items", i, "passed"), "Inspection item %s failed", label)
	}
}

func (e *Engine) safetyKeyword(notes string) (string, bool) {
	lower := strings.ToLower(notes)
	for _, kw := range e.cfg.SafetyKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}
