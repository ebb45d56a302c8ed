package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func sampleReport() *port.DailyReport {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return &port.DailyReport{
		SiteID: "site-1",
		Date:   day,
		Aggregate: &entity.AggregatedFormData{
			SiteID:               "site-1",
			Date:                 day,
			BlastLogCount:        2,
			TotalHoles:           40,
			TotalEmulsionBlasted: 500,
		},
		Forms: []*entity.Form{
			{ID: "blast-1", Type: entity.FormTypeBlastHoleLog, Status: entity.StatusSubmitted, CreatedBy: "op-1", FormDate: day, Version: 3},
			{ID: "q-1", Type: entity.FormTypeQualityReport, Status: entity.StatusDraft, CreatedBy: "lab-2", FormDate: day, Version: 1},
		},
		GeneratedAt: day.Add(23 * time.Hour),
	}
}

func TestExcelExporter_Export(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	exporter := NewExcelExporter(logger)

	data, err := exporter.Export(context.Background(), sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, FormsSheet}, f.GetSheetList())

	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "site-1", cell(SummarySheet, "B1"))
	assert.Equal(t, "2024-03-15", cell(SummarySheet, "B2"))
	assert.Equal(t, "Blast hole logs", cell(SummarySheet, "A5"))
	assert.Equal(t, "2", cell(SummarySheet, "B5"))
	assert.Equal(t, "40", cell(SummarySheet, "B6"))

	assert.Equal(t, "ID", cell(FormsSheet, "A1"))
	assert.Equal(t, "blast-1", cell(FormsSheet, "A2"))
	assert.Equal(t, "blast_hole_log", cell(FormsSheet, "B2"))
	assert.Equal(t, "SUBMITTED", cell(FormsSheet, "C2"))
	assert.Equal(t, "q-1", cell(FormsSheet, "A3"))
	assert.Equal(t, "", cell(FormsSheet, "A4"))
}

func TestExcelExporter_NilAggregate(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	report := sampleReport()
	report.Aggregate = nil
	report.Forms = nil

	data, err := NewExcelExporter(logger).Export(context.Background(), report)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = NewExcelExporter(logger).Export(context.Background(), nil)
	assert.Error(t, err)
}

func TestExcelExporter_FileName(t *testing.T) {
	exporter := NewExcelExporter(zap.NewNop())

	report := sampleReport()
	assert.Equal(t, "site-1/2024-03-15_daily_report.xlsx", exporter.FileName(report))

	report.SiteID = "../north pit"
	assert.Equal(t, "northpit/2024-03-15_daily_report.xlsx", exporter.FileName(report))
}
