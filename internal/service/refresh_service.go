package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type viewRefresher interface {
	RefreshViews(ctx context.Context) error
}

type requisiteInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RefreshServiceParams groups dependencies for the requisite refresh job.
type RefreshServiceParams struct {
	Views    viewRefresher
	Cache    requisiteInvalidator
	Tracker  *ConflictTracker
	Metrics  *MetricsService
	Schedule string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// RefreshService rebuilds the requisite views on a cron schedule and drops everything derived from them.
type RefreshService struct {
	views    viewRefresher
	cache    requisiteInvalidator
	tracker  *ConflictTracker
	metrics  *MetricsService
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRefreshService constructs the service.
func NewRefreshService(params RefreshServiceParams) *RefreshService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Timeout <= 0 {
		params.Timeout = 2 * time.Minute
	}
	return &RefreshService{
		views:    params.Views,
		cache:    params.Cache,
		tracker:  params.Tracker,
		metrics:  params.Metrics,
		schedule: params.Schedule,
		timeout:  params.Timeout,
		logger:   params.Logger,
	}
}

// RefreshNow refreshes the views, then invalidates cached requisites and reusable resolutions.
func (s *RefreshService) RefreshNow(ctx context.Context) error {
	if s.views != nil {
		err := s.views.RefreshViews(ctx)
		s.metrics.RecordViewRefresh(err)
		if err != nil {
			return err
		}
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate requisite cache: %w", err)
		}
	}
	if s.tracker != nil {
		s.tracker.Reset()
	}
	return nil
}

// Start registers the refresh job and starts the scheduler.
func (s *RefreshService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("requisite refresh scheduled", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (s *RefreshService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

func (s *RefreshService) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	start := time.Now()
	if err := s.RefreshNow(ctx); err != nil {
		s.logger.Error("requisite refresh failed", zap.Error(err))
		return
	}
	s.logger.Info("requisite views refreshed", zap.Duration("duration", time.Since(start)))
}
