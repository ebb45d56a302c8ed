package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultReportSchedule runs shortly after midnight and reports on the previous day
const DefaultReportSchedule = "5 0 * * *"

// ReportGenerator renders and stores one site's daily report
type ReportGenerator interface {
	GenerateDailyReport(ctx context.Context, siteID string, date time.Time) (string, error)
}

// ReportSchedulerConfig configures the nightly report job
type ReportSchedulerConfig struct {
	Schedule string
	Sites    []string
	Location *time.Location
}

// ReportScheduler generates the previous day's report for each configured
// site on a cron schedule
type ReportScheduler struct {
	cfg       ReportSchedulerConfig
	generator ReportGenerator
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	entryID cron.EntryID
}

// NewReportScheduler creates a new report scheduler
func NewReportScheduler(cfg ReportSchedulerConfig, generator ReportGenerator, logger *zap.Logger) *ReportScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultReportSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReportScheduler{
		cfg:       cfg,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

// Name implements Worker
func (s *ReportScheduler) Name() string {
	return "report-scheduler"
}

// Start registers the job and starts the cron runner
func (s *ReportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrAlreadyRunning
	}

	cronLogger := cronLogAdapter{logger: s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	id, err := c.AddFunc(s.cfg.Schedule, func() { s.RunOnce(s.ctx) })
	if err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", s.cfg.Schedule, err)
	}

	s.ctx = ctx
	s.cron = c
	s.entryID = id
	c.Start()

	s.logger.Info("Report scheduler started",
		zap.String("schedule", s.cfg.Schedule),
		zap.Strings("sites", s.cfg.Sites),
		zap.Time("next_run", c.Entry(id).Next))
	return nil
}

// Stop halts the cron runner and waits for a running job to finish
func (s *ReportScheduler) Stop() error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	<-c.Stop().Done()
	return nil
}

// RunOnce generates the previous day's report for every site. Failures are
// logged per site and joined into the returned error.
func (s *ReportScheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	date := s.now().In(s.cfg.Location).AddDate(0, 0, -1)

	var errs []error
	for _, site := range s.cfg.Sites {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := s.generator.GenerateDailyReport(ctx, site, date)
		if err != nil {
			s.logger.Error("Failed to generate daily report",
				zap.String("site_id", site),
				zap.Time("date", date),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("site %s: %w", site, err))
			continue
		}
		s.logger.Info("Daily report generated", zap.String("site_id", site), zap.String("path", path))
	}
	return errors.Join(errs...)
}

// cronLogAdapter routes cron's logr-style logging into zap
type cronLogAdapter struct {
	logger *zap.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}

var _ Worker = (*ReportScheduler)(nil)
