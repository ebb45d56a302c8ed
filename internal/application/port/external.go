package port

import (
	"context"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

// SafetyNotifier alerts supervisors about CRITICAL findings
type SafetyNotifier interface {
	NotifySafetyAlert(ctx context.Context, form *entity.Form, findings []entity.ValidationFinding) error
}

// DailyReport is the content of one site's daily export
type DailyReport struct {
	SiteID      string
	Date        time.Time
	Aggregate   *entity.AggregatedFormData
	Forms       []*entity.Form
	GeneratedAt time.Time
}

// ReportExporter renders a daily report into a document
type ReportExporter interface {
	Export(ctx context.Context, report *DailyReport) ([]byte, error)
	// FileName is the suggested file name for a report
	FileName(report *DailyReport) string
}
