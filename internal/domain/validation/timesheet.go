package validation

import (
	"strconv"
	"strings"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

func (e *Engine) checkTimesheet(c *collector, ts entity.Timesheet) {
	c.required("employee_id", ts.EmployeeID, "Employee ID")
	c.required("employee_name", ts.EmployeeName, "Employee name")

	if len(ts.Entries) == 0 {
		c.fail("entries", "At least one time entry must be recorded")
	}

	sum := 0.0
	for i, entry := range ts.Entries {
		prefix := "entries[" + itoa(i) + "]."
		window := c.checkTimes(prefix, entry.StartTime, entry.EndTime, true, false)
		c.durationMatches(prefix+"hours", window, entry.Hours, e.cfg.DurationToleranceHours, false)
		c.nonNegative(prefix+"hours", entry.Hours, "Hours")
		if strings.TrimSpace(entry.Activity) == "" {
			c.warn(prefix+"activity", "Activity is not described")
		}
		sum += entry.Hours
	}

	c.totalMatches("total_hours", sum, ts.TotalHours, e.cfg.TotalTolerance, "Total hours")
	if ts.TotalHours > e.cfg.MaxDailyHours {
		c.warn("total_hours", "Total hours %.2f exceeds %.0f hours in a day", ts.TotalHours, e.cfg.MaxDailyHours)
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
