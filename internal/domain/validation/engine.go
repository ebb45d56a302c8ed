// Package validation checks form submissions against per-form-type business
// rules. The engine is stateless: the same form and as-of time always produce
// the same findings in the same order.
package validation

import (
	"errors"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/domain/template"
)

// Config holds rule thresholds
type Config struct {
	// TotalTolerance is the allowed drift between itemized sums and declared totals
	TotalTolerance float64
	// DurationToleranceHours is the allowed drift between declared and implied durations
	DurationToleranceHours float64
	// RelationshipTolerance is the allowed drift between related same-day forms
	RelationshipTolerance float64
	// HoleFillRatio bounds a hole's charge as a multiple of its computed capacity
	HoleFillRatio float64
	// EmulsionDensityKgPerL converts hole volume to emulsion mass
	EmulsionDensityKgPerL float64
	// MaxDailyHours flags unusually long timesheets
	MaxDailyHours float64
	// ExpiryWarningDays flags extinguishers close to expiry
	ExpiryWarningDays int
	// SafetyKeywords escalate failed inspection items to CRITICAL
	SafetyKeywords []string
}

// DefaultConfig returns the thresholds used on site
func DefaultConfig() Config {
	return Config{
		TotalTolerance:         0.01,
		DurationToleranceHours: 0.5,
		RelationshipTolerance:  50,
		HoleFillRatio:          1.2,
		EmulsionDensityKgPerL:  1.25,
		MaxDailyHours:          16,
		ExpiryWarningDays:      30,
		SafetyKeywords:         []string{"safety", "hazard", "injury"},
	}
}

// Engine runs common and type-specific rules
type Engine struct {
	cfg      Config
	registry *template.Registry
}

// NewEngine creates a validation engine
func NewEngine(cfg Config, registry *template.Registry) *Engine {
	return &Engine{cfg: cfg, registry: registry}
}

// Validate runs the common checks and then the rule set for the form's type.
// asOf stands in for "now" in date checks.
func (e *Engine) Validate(form *entity.Form, asOf time.Time) Result {
	c := &collector{}

	if form == nil {
		c.fail("form", "Form is required")
		return NewResult(c.findings)
	}

	e.checkCommon(c, form, asOf)

	payload, ok := e.resolvePayload(c, form)
	if !ok {
		return NewResult(c.findings)
	}

	switch p := payload.(type) {
	case entity.BlastHoleLog:
		e.checkBlastHoleLog(c, p)
	case entity.QualityReport:
		e.checkQualityReport(c, p)
	case entity.ProductionDailyLog:
		e.checkProductionDailyLog(c, p)
	case entity.PumpInspection:
		e.checkPumpInspection(c, p)
	case entity.FireExtinguisherInspection:
		e.checkFireExtinguisherInspection(c, p, asOf)
	case entity.JobCard:
		e.checkJobCard(c, p)
	case entity.Timesheet:
		e.checkTimesheet(c, p)
	default:
		c.fail("payload", "Unsupported payload %T", payload)
	}

	return NewResult(c.findings)
}

func (e *Engine) checkCommon(c *collector, form *entity.Form, asOf time.Time) {
	c.required("site_id", form.SiteID, "Site")
	c.required("created_by", form.CreatedBy, "Creator")

	if form.FormDate.IsZero() {
		c.fail("form_date", "Form date is required")
	} else if form.FormDate.Format(entity.DateLayout) > asOf.Format(entity.DateLayout) {
		// calendar dates in their own zones; form dates arrive parsed as UTC
		c.warn("form_date", "Form date %s is in the future", form.FormDate.Format(entity.DateLayout))
	}
}

// resolvePayload returns the typed payload for the form, decoding the legacy
// field map through the schema registry.
func (e *Engine) resolvePayload(c *collector, form *entity.Form) (entity.Payload, bool) {
	if !form.Type.IsValid() {
		c.fail("form_type", "Unknown form type %q", form.Type)
		return nil, false
	}
	if form.Payload == nil {
		c.fail("payload", "Form has no content")
		return nil, false
	}

	if fm, ok := form.Payload.(entity.FieldMap); ok {
		tmpl, found := e.registry.Get(form.Type)
		if !found {
			c.fail("form_type", "No template registered for %s", form.Type)
			return nil, false
		}
		p, errs := tmpl.Decode(fm)
		for _, fe := range errs {
			if errors.Is(fe.Err, template.ErrUnknownField) {
				c.warn(fe.Key, "Field %s is not part of the %s form and was ignored", fe.Key, tmpl.DisplayName)
				continue
			}
			c.fail(fe.Key, "Invalid value for %s: %v", fe.Key, fe.Err)
		}
		return p, true
	}

	if pt, _ := entity.PayloadType(form.Payload); pt != form.Type {
		c.fail("payload", "Content is a %s but the form type is %s", pt, form.Type)
		return nil, false
	}
	return form.Payload, true
}

// typedPayload resolves a form's payload without reporting findings
func (e *Engine) typedPayload(form *entity.Form) (entity.Payload, bool) {
	c := &collector{}
	p, ok := e.resolvePayload(c, form)
	return p, ok
}
