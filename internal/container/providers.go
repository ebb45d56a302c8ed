// Package container provides dependency injection and lifecycle management
// for the field forms service.
package container

import (
	"context"
	"fmt"

	"github.com/aeci-mmu/fieldforms/internal/application/dispatcher"
	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/application/service"
	"github.com/aeci-mmu/fieldforms/internal/config"
	"github.com/aeci-mmu/fieldforms/internal/domain/event"
	"github.com/aeci-mmu/fieldforms/internal/domain/template"
	"github.com/aeci-mmu/fieldforms/internal/domain/validation"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/export"
	infraLark "github.com/aeci-mmu/fieldforms/internal/infrastructure/external/lark"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/metrics"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/persistence/repository"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/persistence/sqlite"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/storage"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/worker"
	"github.com/aeci-mmu/fieldforms/migrations"
	"github.com/aeci-mmu/fieldforms/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB        *database.DB
	TxManager *sqlite.TxManager
	Forms     *repository.FormRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Forms       service.FormService
	Propagation service.PropagationService
	Reports     service.ReportService
}

// ServiceDeps contains dependencies for creating services.
type ServiceDeps struct {
	Database   *DatabaseBundle
	Dispatcher dispatcher.Dispatcher
	Metrics    port.Metrics
	Exporter   port.ReportExporter
	Storage    port.FileStorage
	Validation config.ValidationConfig
	Retries    int
	Logger     *zap.Logger
}

// safetyHandler is satisfied by both Lark notifiers
type safetyHandler interface {
	port.SafetyNotifier
	HandleSafetyAlert(ctx context.Context, evt *event.Event) error
}

// ProvideDatabase opens the database, applies pending migrations and builds
// the form repository on top of it.
func ProvideDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db, logger).Run(ctx, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Migrations applied", zap.Int("count", applied))

	return &DatabaseBundle{
		DB:        db,
		TxManager: sqlite.NewTxManager(db.DB, logger),
		Forms:     repository.NewFormRepository(db.DB, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}))
}

// ProvideMetrics creates the Prometheus collectors.
func ProvideMetrics() *metrics.Prometheus {
	return metrics.NewPrometheus()
}

// ProvideValidationEngine builds the engine from configured thresholds.
func ProvideValidationEngine(cfg config.ValidationConfig, registry *template.Registry) *validation.Engine {
	return validation.NewEngine(validation.Config{
		TotalTolerance:         cfg.TotalTolerance,
		DurationToleranceHours: cfg.DurationToleranceHours,
		RelationshipTolerance:  cfg.RelationshipTolerance,
		HoleFillRatio:          cfg.HoleFillRatio,
		EmulsionDensityKgPerL:  cfg.EmulsionDensityKgPerL,
		MaxDailyHours:          cfg.MaxDailyHours,
		ExpiryWarningDays:      cfg.ExpiryWarningDays,
		SafetyKeywords:         cfg.SafetyKeywords,
	}, registry)
}

// ProvideSafetyNotifier returns a Lark notifier when credentials are set,
// otherwise one that only logs.
func ProvideSafetyNotifier(cfg config.LarkConfig, logger *zap.Logger) safetyHandler {
	larkCfg := infraLark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		SafetyChatID:  cfg.SafetyChatID,
		ReceiveIDType: cfg.ReceiveIDType,
	}
	if !larkCfg.Enabled() {
		logger.Warn("Lark is not configured, safety alerts will only be logged")
		return infraLark.NewNopSafetyNotifier(logger)
	}
	return infraLark.NewSafetyNotifier(infraLark.NewClient(larkCfg, logger), larkCfg, logger)
}

// ProvideReportOutputs creates the workbook exporter and the report store.
func ProvideReportOutputs(cfg config.ReportConfig, logger *zap.Logger) (*export.ExcelExporter, *storage.ReportStorage) {
	return export.NewExcelExporter(logger), storage.NewReportStorage(cfg.OutputDir, logger)
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	registry := template.DefaultRegistry()
	svcLogger := &zapLoggerAdapter{logger: deps.Logger}
	repo := deps.Database.Forms

	forms := service.NewFormService(
		repo,
		ProvideValidationEngine(deps.Validation, registry),
		deps.Dispatcher,
		deps.Metrics,
		svcLogger,
	)
	propagation := service.NewPropagationService(
		repo,
		deps.Database.TxManager,
		registry,
		deps.Dispatcher,
		deps.Metrics,
		service.PropagationConfig{MaxConflictRetries: deps.Retries},
		svcLogger,
	)
	reports := service.NewReportService(repo, propagation, deps.Exporter, deps.Storage, svcLogger)

	return &ServiceBundle{
		Forms:       forms,
		Propagation: propagation,
		Reports:     reports,
	}, nil
}

// RegisterEventHandlers subscribes propagation and safety alerts to the dispatcher.
func RegisterEventHandlers(d dispatcher.Dispatcher, services *ServiceBundle, notifier safetyHandler) error {
	if err := d.Subscribe(event.TypeFormSubmitted, "propagation", services.Propagation.HandleFormSubmitted); err != nil {
		return fmt.Errorf("failed to subscribe propagation: %w", err)
	}
	if err := d.Subscribe(event.TypeSafetyAlert, "safety-notifier", notifier.HandleSafetyAlert); err != nil {
		return fmt.Errorf("failed to subscribe safety notifier: %w", err)
	}
	return nil
}

// ProvideWorkers creates the worker manager and registers the report
// scheduler when reports are enabled.
func ProvideWorkers(cfg config.ReportConfig, reports service.ReportService, logger *zap.Logger) (*worker.WorkerManager, error) {
	manager := worker.NewWorkerManager(logger)
	if !cfg.Enabled {
		return manager, nil
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	manager.Register(worker.NewReportScheduler(worker.ReportSchedulerConfig{
		Schedule: cfg.Schedule,
		Sites:    cfg.Sites,
		Location: loc,
	}, reports, logger))
	return manager, nil
}
