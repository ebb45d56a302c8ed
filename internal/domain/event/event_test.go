package event

import (
	"testing"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeFormDraftSaved, true},
		{TypeFormSubmitted, true},
		{TypeFormTransitioned, true},
		{TypeFormPropagated, true},
		{TypeSafetyAlert, true},
		{Type("form.deleted"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestNewEvent(t *testing.T) {
	form := &entity.Form{ID: "f-1", Type: entity.FormTypeBlastHoleLog, SiteID: "site-1"}

	evt := NewEvent(TypeFormSubmitted, form, map[string]any{KeyCreated: true})

	require.NotNil(t, evt)
	assert.NotEmpty(t, evt.ID)
	assert.NotEmpty(t, evt.CorrelationID)
	assert.NotEqual(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, "f-1", evt.FormID)
	assert.Equal(t, entity.FormTypeBlastHoleLog, evt.FormType)
	assert.Equal(t, "site-1", evt.SiteID)
	assert.True(t, evt.GetPayloadBool(KeyCreated))
	assert.WithinDuration(t, time.Now(), evt.Timestamp, time.Second)

	form.SiteID = "changed"
	assert.Equal(t, "site-1", evt.Form.SiteID, "event keeps its own copy of the form")
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeFormPropagated, nil, nil, "chain-1")

	assert.Equal(t, "chain-1", evt.CorrelationID)
	assert.Empty(t, evt.FormID)
	assert.Nil(t, evt.Form)
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeFormSubmitted, nil, map[string]any{KeyTrigger: "SUBMIT"})

	updated := original.WithPayload(KeyToStatus, "SUBMITTED")

	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, "SUBMITTED", updated.GetPayloadString(KeyToStatus))
	assert.Equal(t, "SUBMIT", updated.GetPayloadString(KeyTrigger))
	_, leaked := original.Payload[KeyToStatus]
	assert.False(t, leaked)
}

func TestEvent_PayloadGetters(t *testing.T) {
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	findings := []entity.ValidationFinding{{Field: "items[0].passed", Severity: entity.SeverityCritical}}

	evt := NewEvent(TypeSafetyAlert, nil, map[string]any{
		"count":     float64(3),
		KeyCreated:  "true",
		KeyAsOf:     asOf,
		KeyFindings: findings,
	})

	assert.Equal(t, int64(3), evt.GetPayloadInt("count"))
	assert.True(t, evt.GetPayloadBool(KeyCreated))
	assert.True(t, asOf.Equal(evt.GetPayloadTime(KeyAsOf)))
	assert.Equal(t, findings, evt.Findings())
	assert.Empty(t, evt.GetPayloadString("missing"))
	assert.Zero(t, evt.GetPayloadInt("missing"))
}
