package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

// ErrReportUnavailable is returned when no exporter is configured
var ErrReportUnavailable = errors.New("report export not configured")

// Aggregator computes a site's daily figures
type Aggregator interface {
	Aggregate(ctx context.Context, siteID string, date time.Time) (*entity.AggregatedFormData, error)
}

// ReportService builds and stores daily site reports
type ReportService interface {
	// BuildDailyReport gathers the aggregate and every form dated on the day
	BuildDailyReport(ctx context.Context, siteID string, date time.Time) (*port.DailyReport, error)

	// ExportDailyReport renders the report and returns the document with its file name
	ExportDailyReport(ctx context.Context, siteID string, date time.Time) ([]byte, string, error)

	// GenerateDailyReport renders the report into storage and returns the stored path
	GenerateDailyReport(ctx context.Context, siteID string, date time.Time) (string, error)
}

type reportServiceImpl struct {
	repo       port.FormRepository
	aggregator Aggregator
	exporter   port.ReportExporter
	storage    port.FileStorage
	logger     Logger
	now        func() time.Time
}

// NewReportService creates a new ReportService. storage may be nil when
// reports are only served on demand.
func NewReportService(
	repo port.FormRepository,
	aggregator Aggregator,
	exporter port.ReportExporter,
	storage port.FileStorage,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		repo:       repo,
		aggregator: aggregator,
		exporter:   exporter,
		storage:    storage,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *reportServiceImpl) BuildDailyReport(ctx context.Context, siteID string, date time.Time) (*port.DailyReport, error) {
	if siteID == "" {
		return nil, fmt.Errorf("%w: site is required", ErrInvalidForm)
	}
	day := entity.DateOf(date)

	agg, err := s.aggregator.Aggregate(ctx, siteID, day)
	if err != nil {
		return nil, err
	}
	forms, err := s.repo.GetFormsBySiteAndDateRange(ctx, siteID, "", day, day)
	if err != nil {
		s.logger.Error("Failed to load forms for report", "site_id", siteID, "error", err)
		return nil, fmt.Errorf("failed to load forms: %w", err)
	}

	return &port.DailyReport{
		SiteID:      siteID,
		Date:        day,
		Aggregate:   agg,
		Forms:       forms,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *reportServiceImpl) ExportDailyReport(ctx context.Context, siteID string, date time.Time) ([]byte, string, error) {
	if s.exporter == nil {
		return nil, "", ErrReportUnavailable
	}
	report, err := s.BuildDailyReport(ctx, siteID, date)
	if err != nil {
		return nil, "", err
	}
	data, err := s.exporter.Export(ctx, report)
	if err != nil {
		s.logger.Error("Failed to export daily report", "site_id", siteID, "error", err)
		return nil, "", fmt.Errorf("failed to export report: %w", err)
	}
	return data, s.exporter.FileName(report), nil
}

func (s *reportServiceImpl) GenerateDailyReport(ctx context.Context, siteID string, date time.Time) (string, error) {
	if s.storage == nil {
		return "", ErrReportUnavailable
	}
	data, name, err := s.ExportDailyReport(ctx, siteID, date)
	if err != nil {
		return "", err
	}
	if err := s.storage.Save(ctx, name, data); err != nil {
		s.logger.Error("Failed to store daily report", "site_id", siteID, "path", name, "error", err)
		return "", fmt.Errorf("failed to store report: %w", err)
	}

	path := s.storage.GetFullPath(name)
	s.logger.Info("Daily report stored", "site_id", siteID, "date", entity.DateOf(date).Format(entity.DateLayout), "path", path)
	return path, nil
}
