package lark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	idType, id, text string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(ctx context.Context, receiveIDType, receiveID, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMessage{receiveIDType, receiveID, text})
	return "om_1", nil
}

func pumpForm() *entity.Form {
	return &entity.Form{
		ID:        "pump-1",
		Type:      entity.FormTypePumpInspection,
		SiteID:    "site-1",
		CreatedBy: "insp-1",
		FormDate:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

var guardFinding = entity.ValidationFinding{
	Field:    "items[0]",
	Message:  "Failed item mentions a safety hazard",
	Severity: entity.SeverityCritical,
}

func TestSafetyNotifier_Notify(t *testing.T) {
	sender := &fakeSender{}
	n := NewSafetyNotifier(sender, Config{SafetyChatID: "oc_safety"}, zap.NewNop())

	require.NoError(t, n.NotifySafetyAlert(context.Background(), pumpForm(), []entity.ValidationFinding{guardFinding}))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, ReceiveIDChat, msg.idType)
	assert.Equal(t, "oc_safety", msg.id)
	assert.Contains(t, msg.text, "SAFETY ALERT: pump_inspection on site site-1")
	assert.Contains(t, msg.text, "Form: pump-1")
	assert.Contains(t, msg.text, "Date: 2024-03-15")
	assert.Contains(t, msg.text, "- [CRITICAL] items[0]: Failed item mentions a safety hazard")
}

func TestSafetyNotifier_NothingToSend(t *testing.T) {
	sender := &fakeSender{}
	n := NewSafetyNotifier(sender, Config{SafetyChatID: "oc_safety"}, zap.NewNop())

	assert.NoError(t, n.NotifySafetyAlert(context.Background(), pumpForm(), nil))
	assert.NoError(t, n.NotifySafetyAlert(context.Background(), nil, []entity.ValidationFinding{guardFinding}))
	assert.Empty(t, sender.sent)
}

func TestSafetyNotifier_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("token expired")}
	n := NewSafetyNotifier(sender, Config{SafetyChatID: "oc_safety"}, zap.NewNop())

	err := n.NotifySafetyAlert(context.Background(), pumpForm(), []entity.ValidationFinding{guardFinding})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pump-1")
}

func TestSafetyNotifier_HandleSafetyAlert(t *testing.T) {
	sender := &fakeSender{}
	n := NewSafetyNotifier(sender, Config{SafetyChatID: "ou_lead", ReceiveIDType: ReceiveIDOpen}, zap.NewNop())

	evt := event.NewEvent(event.TypeSafetyAlert, pumpForm(), map[string]any{
		event.KeyFindings: []entity.ValidationFinding{guardFinding},
	})
	require.NoError(t, n.HandleSafetyAlert(context.Background(), evt))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, ReceiveIDOpen, sender.sent[0].idType)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{AppID: "cli_x", AppSecret: "s"}.Enabled())
	assert.True(t, Config{AppID: "cli_x", AppSecret: "s", SafetyChatID: "oc_1"}.Enabled())
}

func TestTextContent(t *testing.T) {
	content, err := textContent("line \"one\"\nline two")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"line \"one\"\nline two"}`, content)
}

func TestNopSafetyNotifier(t *testing.T) {
	n := NewNopSafetyNotifier(zap.NewNop())
	assert.NoError(t, n.NotifySafetyAlert(context.Background(), pumpForm(), []entity.ValidationFinding{guardFinding}))
}
