// Package scheduler runs the ledger's background jobs.
package scheduler

import (
	"context"
	"sync"
	"time"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobOverdue is the job label of the overdue sweep
const JobOverdue = "overdue_sweep"

// OverdueSweeper marks past-due invoices as overdue across tenants
type OverdueSweeper interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (appledger.OverdueSweepResult, error)
}

// OverdueSchedulerConfig holds overdue sweep settings
type OverdueSchedulerConfig struct {
	Enabled    bool
	Interval   time.Duration
	JobTimeout time.Duration
	// RunOnStart runs a sweep immediately instead of waiting one interval
	RunOnStart bool
}

// DefaultOverdueSchedulerConfig returns the default sweep configuration
func DefaultOverdueSchedulerConfig() OverdueSchedulerConfig {
	return OverdueSchedulerConfig{
		Enabled:    true,
		Interval:   time.Hour,
		JobTimeout: 5 * time.Minute,
		RunOnStart: true,
	}
}

// Validate checks the configuration
func (c *OverdueSchedulerConfig) Validate() error {
	if c.Interval <= 0 || c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// OverdueScheduler periodically runs the overdue sweep. Runs never overlap.
type OverdueScheduler struct {
	config  OverdueSchedulerConfig
	sweeper OverdueSweeper
	metrics *JobMetrics
	logger  *zap.Logger
	clock   func() time.Time

	running   sync.Mutex
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	last      *SweepRun
}

// SweepRun is the outcome of one sweep
type SweepRun struct {
	StartedAt time.Time
	Duration  time.Duration
	Result    appledger.OverdueSweepResult
	Err       error
}

// NewOverdueScheduler creates a new OverdueScheduler
func NewOverdueScheduler(config OverdueSchedulerConfig, sweeper OverdueSweeper, metrics *JobMetrics, logger *zap.Logger) (*OverdueScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueScheduler{
		config:  config,
		sweeper: sweeper,
		metrics: metrics,
		logger:  logger.Named("overdue-scheduler"),
		clock:   time.Now,
	}, nil
}

// Start launches the sweep loop. It returns immediately.
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning || !s.config.Enabled {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.logger.Info("Overdue scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("job_timeout", s.config.JobTimeout))
	return nil
}

func (s *OverdueScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.config.RunOnStart {
		_, _ = s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}

// Stop cancels the loop and waits for a running sweep to finish
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		s.logger.Info("Overdue scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue scheduler stop timed out")
		return ctx.Err()
	}
}

// RunOnce runs a single sweep as of the current date, bounded by JobTimeout
func (s *OverdueScheduler) RunOnce(ctx context.Context) (appledger.OverdueSweepResult, error) {
	if !s.running.TryLock() {
		return appledger.OverdueSweepResult{}, ErrSweepInProgress
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "scheduler.overdue_sweep", telemetry.SpanAttrJob, JobOverdue)
	defer span.End()

	start := s.clock()
	result, err := s.sweeper.MarkOverdue(ctx, start)
	elapsed := s.clock().Sub(start)

	s.metrics.ObserveDuration(JobOverdue, elapsed)
	s.metrics.AddItems(JobOverdue, "marked", result.Marked)
	s.metrics.AddItems(JobOverdue, "failed", result.Failed)

	fields := []zap.Field{
		zap.Int("tenants", result.Tenants),
		zap.Int("checked", result.Checked),
		zap.Int("marked", result.Marked),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", elapsed),
	}
	if err != nil {
		s.metrics.IncFailure(JobOverdue)
		telemetry.RecordError(span, err)
		s.logger.Error("Overdue sweep failed", append(fields, zap.Error(err))...)
	} else {
		s.metrics.IncSuccess(JobOverdue)
		telemetry.SetAttributes(span, "marked", result.Marked, "failed", result.Failed)
		s.logger.Info("Overdue sweep completed", fields...)
	}

	s.mu.Lock()
	s.last = &SweepRun{StartedAt: start, Duration: elapsed, Result: result, Err: err}
	s.mu.Unlock()
	return result, err
}

// LastRun returns the most recent sweep, or nil before the first run
func (s *OverdueScheduler) LastRun() *SweepRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	run := *s.last
	return &run
}
