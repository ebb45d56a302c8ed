package lark

import (
	"context"
	"fmt"
	"strings"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/domain/event"
	"go.uber.org/zap"
)

// SafetyNotifier posts CRITICAL findings to the site safety chat
type SafetyNotifier struct {
	sender        MessageSender
	receiveIDType string
	receiveID     string
	logger        *zap.Logger
}

// NewSafetyNotifier creates a notifier that posts to cfg.SafetyChatID
func NewSafetyNotifier(sender MessageSender, cfg Config, logger *zap.Logger) *SafetyNotifier {
	idType := cfg.ReceiveIDType
	if idType == "" {
		idType = ReceiveIDChat
	}
	return &SafetyNotifier{
		sender:        sender,
		receiveIDType: idType,
		receiveID:     cfg.SafetyChatID,
		logger:        logger,
	}
}

// NotifySafetyAlert sends one message listing every finding
func (n *SafetyNotifier) NotifySafetyAlert(ctx context.Context, form *entity.Form, findings []entity.ValidationFinding) error {
	if form == nil || len(findings) == 0 {
		return nil
	}

	messageID, err := n.sender.SendText(ctx, n.receiveIDType, n.receiveID, FormatSafetyAlert(form, findings))
	if err != nil {
		return fmt.Errorf("failed to send safety alert for form %s: %w", form.ID, err)
	}

	n.logger.Info("Safety alert sent",
		zap.String("form_id", form.ID),
		zap.String("site_id", form.SiteID),
		zap.Int("findings", len(findings)),
		zap.String("message_id", messageID))
	return nil
}

// HandleSafetyAlert is the dispatcher handler for form.safety_alert
func (n *SafetyNotifier) HandleSafetyAlert(ctx context.Context, evt *event.Event) error {
	return handleSafetyAlert(ctx, n, evt)
}

func handleSafetyAlert(ctx context.Context, notifier port.SafetyNotifier, evt *event.Event) error {
	form := evt.Form
	if form == nil {
		form = &entity.Form{ID: evt.FormID, Type: evt.FormType, SiteID: evt.SiteID}
	}
	return notifier.NotifySafetyAlert(ctx, form, evt.Findings())
}

// FormatSafetyAlert renders the alert text
func FormatSafetyAlert(form *entity.Form, findings []entity.ValidationFinding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SAFETY ALERT: %s on site %s\n", form.Type, form.SiteID)
	if form.ID != "" {
		fmt.Fprintf(&b, "Form: %s\n", form.ID)
	}
	if form.CreatedBy != "" {
		fmt.Fprintf(&b, "Reported by: %s\n", form.CreatedBy)
	}
	if !form.FormDate.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", form.FormDate.Format(entity.DateLayout))
	}
	for _, f := range findings {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Severity, f.Field, f.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NopSafetyNotifier logs alerts when Lark is not configured
type NopSafetyNotifier struct {
	logger *zap.Logger
}

// NewNopSafetyNotifier creates a logging-only notifier
func NewNopSafetyNotifier(logger *zap.Logger) *NopSafetyNotifier {
	return &NopSafetyNotifier{logger: logger}
}

func (n *NopSafetyNotifier) NotifySafetyAlert(ctx context.Context, form *entity.Form, findings []entity.ValidationFinding) error {
	if form == nil {
		return nil
	}
	n.logger.Warn("Safety alert not delivered, Lark is not configured",
		zap.String("form_id", form.ID),
		zap.String("site_id", form.SiteID),
		zap.Int("findings", len(findings)))
	return nil
}

// HandleSafetyAlert is the dispatcher handler for form.safety_alert
func (n *NopSafetyNotifier) HandleSafetyAlert(ctx context.Context, evt *event.Event) error {
	return handleSafetyAlert(ctx, n, evt)
}

var (
	_ port.SafetyNotifier = (*SafetyNotifier)(nil)
	_ port.SafetyNotifier = (*NopSafetyNotifier)(nil)
)
