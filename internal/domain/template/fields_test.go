package template

import (
	"testing"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_TypedPayload(t *testing.T) {
	log := entity.BlastHoleLog{
		BenchNumber:       "B12",
		TotalHoles:        2,
		TotalEmulsionUsed: 500.02,
	}

	fields, err := Fields(log)
	require.NoError(t, err)
	assert.Equal(t, "B12", fields["bench_number"])
	assert.Equal(t, 2, fields["total_holes"])
	assert.Equal(t, 500.02, fields["total_emulsion_used"])
}

func TestFields_FieldMapIsCopied(t *testing.T) {
	fm := entity.FieldMap{"ph_level": "7.1"}

	fields, err := Fields(fm)
	require.NoError(t, err)
	fields["ph_level"] = "9"

	assert.Equal(t, "7.1", fm["ph_level"])
}

func TestTemplate_SetField(t *testing.T) {
	tmpl, _ := DefaultRegistry().Get(entity.FormTypeQualityReport)
	original := entity.QualityReport{BatchNumber: "B-1", PHLevel: 6.8, EmulsionUsedToday: 10}

	t.Run("sparse write keeps other fields", func(t *testing.T) {
		got, err := tmpl.SetField(original, "emulsion_used_today", 500.02)
		require.NoError(t, err)

		report := got.(entity.QualityReport)
		assert.Equal(t, 500.02, report.EmulsionUsedToday)
		assert.Equal(t, "B-1", report.BatchNumber)
		assert.Equal(t, 6.8, report.PHLevel)
		assert.Equal(t, 10.0, original.EmulsionUsedToday, "input must not be mutated")
	})

	t.Run("numeric string is coerced", func(t *testing.T) {
		got, err := tmpl.SetField(original, "ph_level", "7.25")
		require.NoError(t, err)
		assert.Equal(t, 7.25, got.(entity.QualityReport).PHLevel)
	})

	t.Run("unparsable value retains previous", func(t *testing.T) {
		got, err := tmpl.SetField(original, "ph_level", "neutral")
		assert.Error(t, err)
		assert.Equal(t, 6.8, got.(entity.QualityReport).PHLevel)
	})

	t.Run("fractional value rejected for integer field", func(t *testing.T) {
		got, err := tmpl.SetField(original, "sample_count", 2.5)
		assert.Error(t, err)
		assert.Equal(t, 0, got.(entity.QualityReport).SampleCount)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := tmpl.SetField(original, "colour", "blue")
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("wrong payload variant", func(t *testing.T) {
		_, err := tmpl.SetField(entity.JobCard{}, "ph_level", 7)
		assert.ErrorIs(t, err, ErrPayloadMismatch)
	})
}

func TestTemplate_SetField_ListRejected(t *testing.T) {
	tmpl, _ := DefaultRegistry().Get(entity.FormTypeBlastHoleLog)
	_, err := tmpl.SetField(entity.BlastHoleLog{}, "holes", []entity.BlastHole{})
	assert.ErrorIs(t, err, ErrListField)
}

func TestTemplate_Decode(t *testing.T) {
	tmpl, _ := DefaultRegistry().Get(entity.FormTypeBlastHoleLog)

	fm := entity.FieldMap{
		"bench_number":        "B7",
		"shot_firer":          "J. Mokoena",
		"total_holes":         "2",
		"total_emulsion_used": "bad",
		"colour":              "red",
		"holes": []any{
			map[string]any{"hole_number": "1", "depth_m": "15", "diameter_mm": 165, "emulsion_kg": 250.0},
			map[string]any{"hole_number": "2", "depth_m": 15.0, "diameter_mm": "165", "emulsion_kg": "250"},
		},
	}

	p, errs := tmpl.Decode(fm)
	log, ok := p.(entity.BlastHoleLog)
	require.True(t, ok)

	assert.Equal(t, "B7", log.BenchNumber)
	assert.Equal(t, 2, log.TotalHoles)
	assert.Equal(t, 0.0, log.TotalEmulsionUsed)
	require.Len(t, log.Holes, 2)
	assert.Equal(t, 15.0, log.Holes[0].DepthM)
	assert.Equal(t, 165.0, log.Holes[1].DiameterMM)
	assert.Equal(t, 250.0, log.Holes[1].EmulsionKg)

	require.Len(t, errs, 2)
	assert.Equal(t, "colour", errs[0].Key)
	assert.ErrorIs(t, errs[0].Err, ErrUnknownField)
	assert.Equal(t, "total_emulsion_used", errs[1].Key)
}
