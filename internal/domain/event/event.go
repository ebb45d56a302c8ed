package event

import (
	"maps"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Payload keys shared by producers and subscribers
const (
	KeyAsOf       = "as_of"
	KeyFindings   = "findings"
	KeyTargetID   = "target_id"
	KeyTargetType = "target_type"
	KeyOutcome    = "outcome"
	KeyTrigger    = "trigger"
	KeyFromStatus = "from_status"
	KeyToStatus   = "to_status"
	KeyCreated    = "created"
)

// Event represents a domain event about one form
type Event struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	FormID        string          `json:"form_id"`
	FormType      entity.FormType `json:"form_type"`
	SiteID        string          `json:"site_id"`
	Form          *entity.Form    `json:"form,omitempty"`
	Payload       map[string]any  `json:"payload"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
}

// NewEvent creates a domain event for form with a fresh ID and correlation chain
func NewEvent(eventType Type, form *entity.Form, payload map[string]any) *Event {
	return NewEventWithCorrelation(eventType, form, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, form *entity.Form, payload map[string]any, correlationID string) *Event {
	evt := &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
	if form != nil {
		evt.Form = form.Clone()
		evt.FormID = form.ID
		evt.FormType = form.Type
		evt.SiteID = form.SiteID
	}
	return evt
}

// WithPayload returns a copy of the event with key set in its payload
func (e *Event) WithPayload(key string, value any) *Event {
	next := *e
	next.Payload = make(map[string]any, len(e.Payload)+1)
	maps.Copy(next.Payload, e.Payload)
	next.Payload[key] = value
	return &next
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	return cast.ToString(e.Payload[key])
}

// GetPayloadInt retrieves an integer value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	return cast.ToInt64(e.Payload[key])
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	return cast.ToBool(e.Payload[key])
}

// GetPayloadTime retrieves a time value from the payload; zero when absent
func (e *Event) GetPayloadTime(key string) time.Time {
	return cast.ToTime(e.Payload[key])
}

// Findings returns the validation findings carried by the event, if any
func (e *Event) Findings() []entity.ValidationFinding {
	findings, _ := e.Payload[KeyFindings].([]entity.ValidationFinding)
	return findings
}
