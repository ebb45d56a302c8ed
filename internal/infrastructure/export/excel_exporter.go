package export

import (
	"context"
	"fmt"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/storage"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet names of the daily workbook
const (
	SummarySheet = "Summary"
	FormsSheet   = "Forms"
)

var formsHeader = []interface{}{"ID", "Type", "Status", "Created By", "Form Date", "Updated At", "Version"}

// ExcelExporter renders a site's daily report as an xlsx workbook
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// FileName returns "<site>/<date>_daily_report.xlsx"
func (e *ExcelExporter) FileName(report *port.DailyReport) string {
	return fmt.Sprintf("%s/%s_daily_report.xlsx",
		storage.SafeName(report.SiteID), report.Date.Format(entity.DateLayout))
}

// Export writes a Summary sheet with the aggregate and a Forms sheet listing every form
func (e *ExcelExporter) Export(ctx context.Context, report *port.DailyReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(FormsSheet); err != nil {
		return nil, fmt.Errorf("failed to create forms sheet: %w", err)
	}

	if err := e.writeSummary(f, report); err != nil {
		return nil, err
	}
	if err := e.writeForms(ctx, f, report.Forms); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Daily report exported",
		zap.String("site_id", report.SiteID),
		zap.String("date", report.Date.Format(entity.DateLayout)),
		zap.Int("forms", len(report.Forms)),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), nil
}

func (e *ExcelExporter) writeSummary(f *excelize.File, report *port.DailyReport) error {
	agg := report.Aggregate
	if agg == nil {
		agg = &entity.AggregatedFormData{SiteID: report.SiteID, Date: report.Date}
	}

	rows := [][]interface{}{
		{"Site", report.SiteID},
		{"Date", report.Date.Format(entity.DateLayout)},
		{"Generated At", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05")},
		{},
		{"Blast hole logs", agg.BlastLogCount},
		{"Total holes", agg.TotalHoles},
		{"Emulsion blasted (kg)", agg.TotalEmulsionBlasted},
		{"Quality reports", agg.QualityReportCount},
		{"Average pH", agg.AveragePH},
		{"Average density (g/cm3)", agg.AverageDensity},
		{"Production logs", agg.ProductionLogCount},
		{"Emulsion produced (kg)", agg.TotalEmulsionProduced},
		{"Emulsion used (kg)", agg.TotalEmulsionUsed},
		{"Downtime (h)", agg.TotalDowntimeHours},
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 26); err != nil {
		e.logger.Warn("Failed to set column width", zap.Error(err))
	}
	return nil
}

func (e *ExcelExporter) writeForms(ctx context.Context, f *excelize.File, forms []*entity.Form) error {
	if err := f.SetSheetRow(FormsSheet, "A1", &formsHeader); err != nil {
		return fmt.Errorf("failed to write forms header: %w", err)
	}

	for i, form := range forms {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []interface{}{
			form.ID,
			string(form.Type),
			string(form.Status),
			form.CreatedBy,
			form.FormDate.Format(entity.DateLayout),
			form.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
			form.Version,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(FormsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write form %s: %w", form.ID, err)
		}
	}
	return nil
}

var _ port.ReportExporter = (*ExcelExporter)(nil)
