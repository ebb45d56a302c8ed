package validation

import "github.com/aeci-mmu/fieldforms/internal/domain/entity"

const (
	minPH          = 0.0
	maxPH          = 14.0
	minTemperature = -10.0
	maxTemperature = 80.0
	maxDensity     = 2.0
	minTypDensity  = 1.0
	maxTypDensity  = 1.45
)

func (e *Engine) checkQualityReport(c *collector, r entity.QualityReport) {
	c.required("batch_number", r.BatchNumber, "Batch number")
	c.required("tested_by", r.TestedBy, "Tested by")

	if r.PHLevel < minPH || r.PHLevel > maxPH {
		c.fail("ph_level", "pH %.2f must be between %.0f and %.0f", r.PHLevel, minPH, maxPH)
	}

	if r.TemperatureC < minTemperature || r.TemperatureC > maxTemperature {
		c.warn("temperature_c", "Temperature %.1f°C is outside the expected %.0f to %.0f°C range",
			r.TemperatureC, minTemperature, maxTemperature)
	}

	switch {
	case r.DensityGCm3 <= 0 || r.DensityGCm3 > maxDensity:
		c.fail("density_g_cm3", "Density %.2f g/cm³ must be above 0 and at most %.1f", r.DensityGCm3, maxDensity)
	case r.DensityGCm3 < minTypDensity || r.DensityGCm3 > maxTypDensity:
		c.warn("density_g_cm3", "Density %.2f g/cm³ is outside the typical %.2f to %.2f range",
			r.DensityGCm3, minTypDensity, maxTypDensity)
	}

	c.nonNegative("viscosity_cp", r.ViscosityCP, "Viscosity")
	c.nonNegative("emulsion_used_today", r.EmulsionUsedToday, "Emulsion used today")
	c.nonNegative("emulsion_produced_today", r.EmulsionProducedToday, "Emulsion produced today")
	if r.SampleCount < 0 {
		c.fail("sample_count", "Sample count cannot be negative")
	}
}
