package validation

import "github.com/aeci-mmu/fieldforms/internal/domain/entity"

func (e *Engine) checkProductionDailyLog(c *collector, log entity.ProductionDailyLog) {
	switch log.Shift {
	case entity.ShiftDay, entity.ShiftNight:
	case "":
		c.fail("shift", "Shift is required")
	default:
		c.fail("shift", "Shift %q must be DAY or NIGHT", log.Shift)
	}
	c.required("operator_name", log.OperatorName, "Operator")

	// Night shifts run past midnight.
	overnight := log.Shift == entity.ShiftNight
	window := c.checkTimes("", log.StartTime, log.EndTime, true, overnight)
	c.durationMatches("duration_hours", window, log.DurationHours, e.cfg.DurationToleranceHours, overnight)

	c.nonNegative("emulsion_produced_kg", log.EmulsionProducedKg, "Emulsion produced")
	c.nonNegative("emulsion_used_today", log.EmulsionUsedToday, "Emulsion used")
	c.nonNegative("downtime_hours", log.DowntimeHours, "Downtime")
	if log.HolesCharged < 0 {
		c.fail("holes_charged", "Holes charged cannot be negative")
	}
	if log.TrucksLoaded < 0 {
		c.fail("trucks_loaded", "Trucks loaded cannot be negative")
	}

	if log.DowntimeHours > log.DurationHours {
		c.warn("downtime_hours", "Downtime %.2f hours exceeds shift duration %.2f hours",
			log.DowntimeHours, log.DurationHours)
	}
}
