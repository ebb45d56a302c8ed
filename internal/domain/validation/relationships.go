package validation

import (
	"math"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

// ValidateRelationships cross-checks form against related forms of the same
// site and day. Related forms for other sites or days, and the form itself,
// are ignored. Only WARNING findings are produced.
func (e *Engine) ValidateRelationships(form *entity.Form, related []*entity.Form) []entity.ValidationFinding {
	if form == nil {
		return nil
	}
	self, ok := e.typedPayload(form)
	if !ok {
		return nil
	}

	c := &collector{}
	for _, other := range related {
		if other == nil || other.SiteID != form.SiteID || !entity.SameDay(other.FormDate, form.FormDate) {
			continue
		}
		if other.ID != "" && other.ID == form.ID {
			continue
		}
		peer, ok := e.typedPayload(other)
		if !ok {
			continue
		}
		e.crossCheck(c, self, peer, other.ID)
	}
	return c.findings
}

func (e *Engine) crossCheck(c *collector, self, peer entity.Payload, peerID string) {
	switch s := self.(type) {
	case entity.BlastHoleLog:
		switch p := peer.(type) {
		case entity.QualityReport:
			e.nearlyEqual(c, "total_emulsion_used", s.TotalEmulsionUsed, p.EmulsionUsedToday,
				"Blast emulsion used", "quality report emulsion_used_today", peerID)
		case entity.ProductionDailyLog:
			e.blastVsProduction(c, "total_emulsion_used", "total_holes", s, p, peerID)
		}

	case entity.QualityReport:
		switch p := peer.(type) {
		case entity.BlastHoleLog:
			e.nearlyEqual(c, "emulsion_used_today", s.EmulsionUsedToday, p.TotalEmulsionUsed,
				"Emulsion used today", "blast log total_emulsion_used", peerID)
		case entity.ProductionDailyLog:
			e.nearlyEqual(c, "emulsion_produced_today", s.EmulsionProducedToday, p.EmulsionProducedKg,
				"Emulsion produced today", "production log emulsion_produced_kg", peerID)
		}

	case entity.ProductionDailyLog:
		switch p := peer.(type) {
		case entity.BlastHoleLog:
			e.blastVsProduction(c, "emulsion_used_today", "holes_charged", p, s, peerID)
		case entity.QualityReport:
			e.nearlyEqual(c, "emulsion_produced_kg", s.EmulsionProducedKg, p.EmulsionProducedToday,
				"Emulsion produced", "quality report emulsion_produced_today", peerID)
		}
	}
}

func (e *Engine) blastVsProduction(c *collector, emulsionField, holesField string,
	blast entity.BlastHoleLog, prod entity.ProductionDailyLog, peerID string) {
	if emulsionField == "total_emulsion_used" {
		e.nearlyEqual(c, emulsionField, blast.TotalEmulsionUsed, prod.EmulsionUsedToday,
			"Blast emulsion used", "production log emulsion_used_today", peerID)
	} else {
		e.nearlyEqual(c, emulsionField, prod.EmulsionUsedToday, blast.TotalEmulsionUsed,
			"Emulsion used today", "blast log total_emulsion_used", peerID)
	}

	if blast.TotalHoles != prod.HolesCharged {
		c.warn(holesField, "Blast log total holes %d differs from production holes charged %d (form %s)",
			blast.TotalHoles, prod.HolesCharged, peerLabel(peerID))
	}
}

func (e *Engine) nearlyEqual(c *collector, field string, mine, theirs float64, label, peer, peerID string) {
	if math.Abs(mine-theirs) > e.cfg.RelationshipTolerance {
		c.warn(field, "%s %.2f differs from %s %.2f (form %s)", label, mine, peer, theirs, peerLabel(peerID))
	}
}

func peerLabel(id string) string {
	if id == "" {
		return "unsaved"
	}
	return id
}
