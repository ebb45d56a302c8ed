package validation

import (
	"math"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

func (e *Engine) checkBlastHoleLog(c *collector, log entity.BlastHoleLog) {
	c.required("bench_number", log.BenchNumber, "Bench number")
	c.required("shot_firer", log.ShotFirer, "Shot firer")

	if len(log.Holes) == 0 {
		c.fail("holes", "At least one hole must be recorded")
	}

	sum := 0.0
	for i, hole := range log.Holes {
		sum += hole.EmulsionKg

		if hole.DepthM <= 0 {
			c.fail(indexed("holes", i, "depth_m"), "Hole %s depth must be greater than zero", holeLabel(hole, i))
		}
		if hole.DiameterMM <= 0 {
			c.fail(indexed("holes", i, "diameter_mm"), "Hole %s diameter must be greater than zero", holeLabel(hole, i))
		}
		if hole.EmulsionKg < 0 {
			c.fail(indexed("holes", i, "emulsion_kg"), "Hole %s emulsion cannot be negative", holeLabel(hole, i))
		}
		if hole.StemmingM < 0 {
			c.fail(indexed("holes", i, "stemming_m"), "Hole %s stemming cannot be negative", holeLabel(hole, i))
		}

		if hole.DepthM > 0 && hole.DiameterMM > 0 {
			limit := e.holeCapacityKg(hole) * e.cfg.HoleFillRatio
			if hole.EmulsionKg > limit {
				c.warn(indexed("holes", i, "emulsion_kg"),
					"Hole %s charge %.1f kg exceeds %.0f%% of its %.1f kg capacity",
					holeLabel(hole, i), hole.EmulsionKg, e.cfg.HoleFillRatio*100, e.holeCapacityKg(hole))
			}
		}
	}

	if log.TotalHoles != len(log.Holes) {
		c.warn("total_holes", "Total holes %d does not match %d recorded holes", log.TotalHoles, len(log.Holes))
	}
	c.totalMatches("total_emulsion_used", sum, log.TotalEmulsionUsed, e.cfg.TotalTolerance, "Total emulsion used")

	c.checkTimes("", log.StartTime, log.EndTime, false, false)
}

// holeCapacityKg is the emulsion mass a cylindrical hole holds when full
func (e *Engine) holeCapacityKg(hole entity.BlastHole) float64 {
	radiusM := hole.DiameterMM / 2 / 1000
	volumeL := math.Pi * radiusM * radiusM * hole.DepthM * 1000
	return volumeL * e.cfg.EmulsionDensityKgPerL
}

func holeLabel(hole entity.BlastHole, i int) string {
	if hole.HoleNumber != "" {
		return hole.HoleNumber
	}
	return "#" + itoa(i+1)
}
