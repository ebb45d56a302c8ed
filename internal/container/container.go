package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aeci-mmu/fieldforms/internal/application/dispatcher"
	"github.com/aeci-mmu/fieldforms/internal/config"
	"github.com/aeci-mmu/fieldforms/internal/domain/event"
	"github.com/aeci-mmu/fieldforms/internal/domain/template"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/metrics"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/worker"
	httpapi "github.com/aeci-mmu/fieldforms/internal/interfaces/http"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and are torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	database   *DatabaseBundle
	metrics    *metrics.Prometheus
	dispatcher dispatcher.Dispatcher
	notifier   safetyHandler
	services   *ServiceBundle
	workers    *worker.WorkerManager

	mu     sync.RWMutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components; call Start.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing:
// database, dispatcher and metrics, services, event handlers, then workers.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	db, err := ProvideDatabase(ctx, c.config.Database, c.logger)
	if err != nil {
		return c.abort(fmt.Errorf("failed to initialize database: %w", err))
	}
	c.database = db
	c.logger.Info("Database initialized")

	c.dispatcher = ProvideDispatcher(c.logger)
	c.metrics = ProvideMetrics()
	c.notifier = ProvideSafetyNotifier(c.config.Lark, c.logger)

	exporter, store := ProvideReportOutputs(c.config.Report, c.logger)
	services, err := ProvideServices(&ServiceDeps{
		Database:   c.database,
		Dispatcher: c.dispatcher,
		Metrics:    c.metrics,
		Exporter:   exporter,
		Storage:    store,
		Validation: c.config.Validation,
		Retries:    c.config.Propagation.MaxConflictRetries,
		Logger:     c.logger,
	})
	if err != nil {
		return c.abort(fmt.Errorf("failed to initialize services: %w", err))
	}
	c.services = services
	c.logger.Info("Application services initialized")

	if err := RegisterEventHandlers(c.dispatcher, c.services, c.notifier); err != nil {
		return c.abort(err)
	}

	workers, err := ProvideWorkers(c.config.Report, c.services.Reports, c.logger)
	if err != nil {
		return c.abort(fmt.Errorf("failed to initialize workers: %w", err))
	}
	if err := workers.StartAll(ctx); err != nil {
		return c.abort(fmt.Errorf("failed to start workers: %w", err))
	}
	c.workers = workers
	c.logger.Info("Workers started", zap.Bool("reports_enabled", c.config.Report.Enabled))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// abort releases what Start opened before a failure
func (c *Container) abort(err error) error {
	if c.dispatcher != nil {
		_ = c.dispatcher.Close()
	}
	if c.database != nil {
		_ = c.database.DB.Close()
	}
	c.cancel()
	return err
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}
	c.logger.Info("Closing container")

	var errs []error
	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.database != nil {
		if err := c.database.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.database == nil:
		set("database", false, "not initialized")
	default:
		if err := c.database.DB.PingContext(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	switch {
	case c.dispatcher == nil:
		set("dispatcher", false, "not initialized")
	case len(c.dispatcher.ListHandlers(event.TypeFormSubmitted)) == 0:
		set("dispatcher", false, "no propagation handler")
	case len(c.dispatcher.ListHandlers(event.TypeSafetyAlert)) == 0:
		set("dispatcher", false, "no safety alert handler")
	default:
		set("dispatcher", true, "")
	}

	switch {
	case c.workers == nil:
		set("workers", false, "not initialized")
	case c.config.Report.Enabled && !c.workers.IsRunning():
		set("workers", false, "report scheduler stopped")
	default:
		set("workers", true, "")
	}

	return status
}

// CheckHealth reports the first unhealthy component as an error
func (c *Container) CheckHealth(ctx context.Context) error {
	status := c.Health(ctx)
	if status.Overall {
		return nil
	}
	for name, comp := range status.Components {
		if !comp.Healthy {
			return fmt.Errorf("%s unhealthy: %s", name, comp.Message)
		}
	}
	return fmt.Errorf("unhealthy")
}

// HTTPDependencies returns what the HTTP layer needs from a started container
func (c *Container) HTTPDependencies() httpapi.Dependencies {
	c.mu.RLock()
	defer c.mu.RUnlock()

	deps := httpapi.Dependencies{
		Registry: template.DefaultRegistry(),
		Health:   c.CheckHealth,
	}
	if c.services != nil {
		deps.Forms = c.services.Forms
		deps.Aggregator = c.services.Propagation
		deps.Reports = c.services.Reports
	}
	if c.metrics != nil {
		deps.Metrics = c.metrics.Handler()
	}
	return deps
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service and HTTP Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// NewLoggerAdapter exposes the adapter for the HTTP server
func NewLoggerAdapter(logger *zap.Logger) httpapi.Logger {
	return &zapLoggerAdapter{logger: logger}
}

// dispatcherLoggerAdapter adapts zap.Logger to the dispatcher.Logger interface.
type dispatcherLoggerAdapter struct {
	logger *zap.Logger
}

func (a *dispatcherLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, convertToZapFields(keysAndValues...)...)
}

func (a *dispatcherLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
