package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOverdueSweeper struct {
	mock.Mock
}

func (m *MockOverdueSweeper) MarkOverdue(ctx context.Context, asOf time.Time) (appledger.OverdueSweepResult, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(appledger.OverdueSweepResult), args.Error(1)
}

func testConfig() OverdueSchedulerConfig {
	return OverdueSchedulerConfig{
		Enabled:    true,
		Interval:   time.Hour,
		JobTimeout: time.Second,
	}
}

func TestOverdueSchedulerConfig_Validate(t *testing.T) {
	cfg := DefaultOverdueSchedulerConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Interval = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err := NewOverdueScheduler(OverdueSchedulerConfig{Interval: time.Hour}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOverdueScheduler_RunOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	sweeper := new(MockOverdueSweeper)
	now := time.Date(2026, 4, 2, 6, 0, 0, 0, time.UTC)

	sweeper.On("MarkOverdue", mock.Anything, now).
		Return(appledger.OverdueSweepResult{Tenants: 2, Checked: 3, Marked: 2, Failed: 1}, nil).Once()

	s, err := NewOverdueScheduler(testConfig(), sweeper, metrics, nil)
	require.NoError(t, err)
	s.clock = func() time.Time { return now }

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Marked)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.success.WithLabelValues(JobOverdue)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.failure.WithLabelValues(JobOverdue)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.marked.WithLabelValues(JobOverdue, "marked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.marked.WithLabelValues(JobOverdue, "failed")))

	last := s.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, now, last.StartedAt)
	assert.NoError(t, last.Err)
	sweeper.AssertExpectations(t)
}

func TestOverdueScheduler_RunOnceFailure(t *testing.T) {
	metrics := NewJobMetrics(prometheus.NewRegistry())
	sweeper := new(MockOverdueSweeper)
	sweeper.On("MarkOverdue", mock.Anything, mock.Anything).
		Return(appledger.OverdueSweepResult{}, errors.New("db down")).Once()

	s, err := NewOverdueScheduler(testConfig(), sweeper, metrics, nil)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failure.WithLabelValues(JobOverdue)))
	assert.Error(t, s.LastRun().Err)
}

func TestOverdueScheduler_RunOnceAppliesTimeout(t *testing.T) {
	sweeper := new(MockOverdueSweeper)
	sweeper.On("MarkOverdue", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= time.Second
	}), mock.Anything).Return(appledger.OverdueSweepResult{}, nil).Once()

	s, err := NewOverdueScheduler(testConfig(), sweeper, nil, nil)
	require.NoError(t, err)
	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	sweeper.AssertExpectations(t)
}

func TestOverdueScheduler_RunsDoNotOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	sweeper := new(MockOverdueSweeper)
	sweeper.On("MarkOverdue", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(appledger.OverdueSweepResult{}, nil).Once()

	s, err := NewOverdueScheduler(testConfig(), sweeper, nil, nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		errCh <- err
	}()
	<-started

	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(release)
	assert.NoError(t, <-errCh)
}

func TestOverdueScheduler_StartStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	sweeper := new(MockOverdueSweeper)
	sweeper.On("MarkOverdue", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { ran <- struct{}{} }).
		Return(appledger.OverdueSweepResult{}, nil).Once()

	cfg := testConfig()
	cfg.RunOnStart = true
	s, err := NewOverdueScheduler(cfg, sweeper, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run on start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "second stop is a no-op")
	sweeper.AssertExpectations(t)
}

func TestOverdueScheduler_DisabledDoesNotStart(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	sweeper := new(MockOverdueSweeper)
	s, err := NewOverdueScheduler(cfg, sweeper, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	sweeper.AssertNotCalled(t, "MarkOverdue", mock.Anything, mock.Anything)
}

func TestJobMetrics_NilSafe(t *testing.T) {
	var m *JobMetrics
	assert.NotPanics(t, func() {
		m.ObserveDuration("x", time.Second)
		m.IncSuccess("x")
		m.IncFailure("x")
		m.AddItems("x", "marked", 1)
		NewJobMetrics(nil).IncSuccess("")
	})
	assert.Equal(t, "unknown", normalizeLabel(""))
}
