package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingGenerator struct {
	mu    sync.Mutex
	calls []string
	dates []time.Time
	fail  map[string]error
}

func (g *recordingGenerator) GenerateDailyReport(ctx context.Context, siteID string, date time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, siteID)
	g.dates = append(g.dates, date)
	if err := g.fail[siteID]; err != nil {
		return "", err
	}
	return "/reports/" + siteID + ".xlsx", nil
}

func TestReportScheduler_RunOnce(t *testing.T) {
	gen := &recordingGenerator{fail: map[string]error{"site-2": errors.New("no forms table")}}
	s := NewReportScheduler(ReportSchedulerConfig{Sites: []string{"site-1", "site-2", "site-3"}}, gen, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 3, 16, 0, 5, 0, 0, time.UTC) }

	err := s.RunOnce(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "site site-2")
	assert.Equal(t, []string{"site-1", "site-2", "site-3"}, gen.calls)
	assert.Equal(t, 15, gen.dates[0].Day())
}

func TestReportScheduler_RunOnceCancelled(t *testing.T) {
	gen := &recordingGenerator{}
	s := NewReportScheduler(ReportSchedulerConfig{Sites: []string{"site-1"}}, gen, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.RunOnce(ctx), context.Canceled)
	assert.Empty(t, gen.calls)
}

func TestReportScheduler_StartStop(t *testing.T) {
	s := NewReportScheduler(ReportSchedulerConfig{}, &recordingGenerator{}, zap.NewNop())
	assert.Equal(t, DefaultReportSchedule, s.cfg.Schedule)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
}

func TestReportScheduler_InvalidSchedule(t *testing.T) {
	s := NewReportScheduler(ReportSchedulerConfig{Schedule: "every night"}, &recordingGenerator{}, zap.NewNop())
	assert.Error(t, s.Start(context.Background()))
}

func TestWorkerManager(t *testing.T) {
	m := NewWorkerManager(zap.NewNop())
	s := NewReportScheduler(ReportSchedulerConfig{}, &recordingGenerator{}, zap.NewNop())
	m.Register(s)

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.ErrorIs(t, m.StartAll(context.Background()), ErrAlreadyRunning)

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.NoError(t, m.StopAll())
}
