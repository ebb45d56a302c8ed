package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeci-mmu/fieldforms/internal/config"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/domain/event"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 8080, Mode: "test"},
		Database: config.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1},
		Validation: config.ValidationConfig{
			TotalTolerance:         0.01,
			DurationToleranceHours: 0.5,
			RelationshipTolerance:  50,
			HoleFillRatio:          1.2,
			EmulsionDensityKgPerL:  1.25,
			MaxDailyHours:          16,
			ExpiryWarningDays:      30,
			SafetyKeywords:         []string{"safety", "hazard", "injury"},
		},
		Propagation: config.PropagationConfig{MaxConflictRetries: 3},
		Report:      config.ReportConfig{OutputDir: t.TempDir()},
	}
}

func startContainer(t *testing.T) *Container {
	t.Helper()
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() {
		if !c.closed.Load() {
			_ = c.Close()
		}
	})
	return c
}

func TestNewContainer_RejectsBadInput(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(t), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Database.Path = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	c := startContainer(t)

	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()))

	health := c.Health(context.Background())
	assert.True(t, health.Overall, "%+v", health.Components)
	assert.NoError(t, c.CheckHealth(context.Background()))

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainer_EventHandlersRegistered(t *testing.T) {
	c := startContainer(t)

	assert.Len(t, c.Dispatcher().ListHandlers(event.TypeFormSubmitted), 1)
	assert.Len(t, c.Dispatcher().ListHandlers(event.TypeSafetyAlert), 1)
}

func TestContainer_HealthNeedsEventHandlers(t *testing.T) {
	c := startContainer(t)
	c.dispatcher = ProvideDispatcher(zap.NewNop())

	health := c.Health(context.Background())
	assert.False(t, health.Overall)
	assert.Equal(t, "no propagation handler", health.Components["dispatcher"].Message)
	assert.Error(t, c.CheckHealth(context.Background()))
}

func TestContainer_SubmitPropagatesThroughDatabase(t *testing.T) {
	c := startContainer(t)
	ctx := context.Background()
	today := entity.DateOf(time.Now().UTC())

	blast := &entity.Form{
		Type:      entity.FormTypeBlastHoleLog,
		SiteID:    "site-1",
		CreatedBy: "shotfirer-7",
		FormDate:  today,
		Payload: entity.BlastHoleLog{
			BenchNumber: "B-12",
			ShotFirer:   "J. Mokoena",
			Holes: []entity.BlastHole{
				{HoleNumber: "H1", DepthM: 15, DiameterMM: 165, EmulsionKg: 250},
				{HoleNumber: "H2", DepthM: 15, DiameterMM: 165, EmulsionKg: 250},
			},
			TotalHoles:        2,
			TotalEmulsionUsed: 500,
		},
	}

	res, err := c.Services().Forms.Submit(ctx, blast)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, res.Form.Status)

	reports, err := c.Services().Forms.List(ctx, "site-1", entity.FormTypeQualityReport)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, entity.StatusDraft, reports[0].Status)
	assert.Equal(t, 500.0, reports[0].Payload.(entity.QualityReport).EmulsionUsedToday)

	logs, err := c.Services().Forms.List(ctx, "site-1", entity.FormTypeProductionDailyLog)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	agg, err := c.Services().Propagation.Aggregate(ctx, "site-1", today)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.BlastLogCount)
}

func TestContainer_HTTPDependencies(t *testing.T) {
	c := startContainer(t)

	deps := c.HTTPDependencies()
	assert.NotNil(t, deps.Forms)
	assert.NotNil(t, deps.Aggregator)
	assert.NotNil(t, deps.Reports)
	require.NotNil(t, deps.Health)
	assert.NoError(t, deps.Health(context.Background()))

	require.NotNil(t, deps.Metrics)
	rec := httptest.NewRecorder()
	deps.Metrics.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestProvideWorkers(t *testing.T) {
	manager, err := ProvideWorkers(config.ReportConfig{}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, manager.IsRunning())

	_, err = ProvideWorkers(config.ReportConfig{Enabled: true, Sites: []string{"site-1"}, Timezone: "Mars/Olympus"}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("form_id", "q-1", 42, "dropped", "error", assert.AnError, "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "form_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}
