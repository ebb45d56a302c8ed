package validation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

// collector accumulates findings in production order
type collector struct {
	findings []entity.ValidationFinding
}

func (c *collector) add(field string, severity entity.Severity, format string, args ...any) {
	c.findings = append(c.findings, entity.ValidationFinding{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: severity,
	})
}

func (c *collector) warn(field, format string, args ...any) {
	c.add(field, entity.SeverityWarning, format, args...)
}

func (c *collector) fail(field, format string, args ...any) {
	c.add(field, entity.SeverityError, format, args...)
}

func (c *collector) critical(field, format string, args ...any) {
	c.add(field, entity.SeverityCritical, format, args...)
}

func (c *collector) required(field, value, label string) {
	if strings.TrimSpace(value) == "" {
		c.fail(field, "%s is required", label)
	}
}

func (c *collector) nonNegative(field string, value float64, label string) {
	if value < 0 {
		c.fail(field, "%s cannot be negative", label)
	}
}

// totalMatches flags a declared total that drifts from the itemized sum by
// more than tol.
func (c *collector) totalMatches(field string, sum, declared, tol float64, label string) {
	if math.Abs(declared-sum) > tol {
		c.warn(field, "%s %.2f does not match itemized sum %.2f", label, declared, sum)
	}
}

// timeWindow holds the outcome of start/end checks
type timeWindow struct {
	start, end time.Time
	ok         bool
}

// hours returns the implied duration, wrapping past midnight when allowed
func (w timeWindow) hours(overnight bool) float64 {
	d := w.end.Sub(w.start)
	if d < 0 && overnight {
		d += 24 * time.Hour
	}
	return d.Hours()
}

// checkTimes parses an HH:MM start/end pair. Blank values are an error only
// when required; unparsable values are always an error. End before start is an
// error unless overnight is allowed.
func (c *collector) checkTimes(prefix, start, end string, required, overnight bool) timeWindow {
	startField, endField := prefix+"start_time", prefix+"end_time"

	s, sOK := c.parseClock(startField, start, required, "Start time")
	e, eOK := c.parseClock(endField, end, required, "End time")
	if !sOK || !eOK {
		return timeWindow{}
	}

	if e.Before(s) && !overnight {
		c.fail(endField, "End time %s must not precede start time %s", end, start)
		return timeWindow{}
	}

	return timeWindow{start: s, end: e, ok: true}
}

func (c *collector) parseClock(field, value string, required bool, label string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			c.fail(field, "%s is required", label)
		}
		return time.Time{}, false
	}

	t, err := time.Parse(entity.TimeLayout, value)
	if err != nil {
		c.fail(field, "%s %q is not a valid time (expected HH:MM)", label, value)
		return time.Time{}, false
	}
	return t, true
}

// durationMatches flags a declared duration that differs from the implied one
func (c *collector) durationMatches(field string, w timeWindow, declared, tol float64, overnight bool) {
	if !w.ok {
		return
	}
	implied := w.hours(overnight)
	if math.Abs(declared-implied) > tol {
		c.warn(field, "Declared %.2f hours does not match %.2f hours between start and end", declared, implied)
	}
}

func indexed(list string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, i, field)
}
