// Package scheduler drives periodic chart and dashboard refreshes through a
// bounded in-process job queue.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chartops/chart-engine/pkg/repositories"
)

// Refresher executes the actual chart refresh. Implemented by the assembler
// service; the scheduler only decides when to call it.
type Refresher interface {
	RefreshChart(ctx context.Context, chartID uuid.UUID) error
}

// Config holds scheduler timing knobs.
type Config struct {
	Tick           time.Duration // cadence of the due-check loops
	StuckThreshold time.Duration // active jobs older than this are failed
}

// DefaultConfig returns the standard scheduler timings.
func DefaultConfig() Config {
	return Config{
		Tick:           time.Minute,
		StuckThreshold: 5 * time.Minute,
	}
}

// Scheduler ticks on a fixed cadence and enqueues refresh jobs for charts
// whose interval elapsed and dashboards whose schedule is due. Each tick
// also sweeps stuck jobs so a wedged refresh cannot hold its slot forever.
type Scheduler struct {
	charts     repositories.ChartRepository
	dashboards repositories.DashboardRepository
	refresher  Refresher
	queue      *Queue

	cfg    Config
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler. The queue is owned by the caller so its state can
// be exposed elsewhere (health endpoint).
func New(charts repositories.ChartRepository, dashboards repositories.DashboardRepository, refresher Refresher, queue *Queue, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig().Tick
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = DefaultConfig().StuckThreshold
	}

	return &Scheduler{
		charts:     charts,
		dashboards: dashboards,
		refresher:  refresher,
		queue:      queue,
		cfg:        cfg,
		cron:       cron.New(),
		logger:     logger.Named("scheduler"),
	}
}

// Start runs one tick immediately, then ticks on the configured cadence
// until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	go s.tick(ctx)

	spec := fmt.Sprintf("@every %s", s.cfg.Tick)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Duration("tick", s.cfg.Tick))
	return nil
}

// Stop halts ticking and shuts the queue down, waiting for in-flight jobs
// up to the context deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()
	return s.queue.Shutdown(ctx)
}

// tick sweeps stuck jobs, then runs the chart and dashboard due-check loops
// concurrently. Loop failures are logged, never fatal: the next tick retries.
func (s *Scheduler) tick(ctx context.Context) {
	if swept := s.queue.SweepStuck(s.cfg.StuckThreshold); swept > 0 {
		s.logger.Warn("stuck jobs swept", zap.Int("count", swept))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.chartLoop(gctx) })
	g.Go(func() error { return s.dashboardLoop(gctx) })

	if err := g.Wait(); err != nil {
		s.logger.Error("scheduler tick failed", zap.Error(err))
	}
}

// chartLoop enqueues a refresh job for every chart whose interval elapsed.
func (s *Scheduler) chartLoop(ctx context.Context) error {
	charts, err := s.charts.ListAutoUpdating(ctx)
	if err != nil {
		return fmt.Errorf("failed to list auto-updating charts: %w", err)
	}

	now := time.Now()
	for _, chart := range charts {
		if !ChartDue(chart, now) {
			continue
		}
		s.queue.Enqueue(Job{
			Kind:     JobKindChart,
			EntityID: chart.ID,
			Run:      s.chartJob(chart.ID),
		})
	}

	return nil
}

// chartJob refreshes one chart. The due check is re-evaluated against fresh
// state at run time: the chart may have been refreshed, or its interval
// cleared, while the job sat in the queue. The bookkeeping timestamp is only
// advanced when the job actually ran a refresh.
func (s *Scheduler) chartJob(chartID uuid.UUID) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		chart, err := s.charts.GetWithBindings(ctx, chartID)
		if err != nil {
			return err
		}

		if !ChartDue(chart, time.Now()) {
			s.logger.Debug("chart no longer due, skipping", zap.String("chart_id", chartID.String()))
			return nil
		}

		if err := s.refresher.RefreshChart(ctx, chartID); err != nil {
			return err
		}

		return s.charts.UpdateLastAutoUpdate(ctx, chartID, time.Now())
	}
}

// dashboardLoop enqueues a refresh job for every dashboard whose schedule is
// due. Invalid schedules are logged and skipped; they never fire.
func (s *Scheduler) dashboardLoop(ctx context.Context) error {
	dashboards, err := s.dashboards.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled dashboards: %w", err)
	}

	now := time.Now()
	for _, dashboard := range dashboards {
		due, err := IsDue(dashboard.Schedule, dashboard.LastSchedulerRun, now)
		if err != nil {
			s.logger.Warn("invalid dashboard schedule, skipping",
				zap.String("dashboard_id", dashboard.ID.String()),
				zap.Error(err))
			continue
		}
		if !due {
			continue
		}

		s.queue.Enqueue(Job{
			Kind:     JobKindDashboard,
			EntityID: dashboard.ID,
			Run:      s.dashboardJob(dashboard.ID),
		})
	}

	return nil
}

// dashboardJob refreshes every chart on one dashboard. The due check is
// re-evaluated at run time, and the last-run stamp advances only after the
// refreshes actually ran. A failing chart fails the job but does not stop
// the remaining charts.
func (s *Scheduler) dashboardJob(dashboardID uuid.UUID) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		dashboard, err := s.dashboards.GetByID(ctx, dashboardID)
		if err != nil {
			return err
		}

		due, err := IsDue(dashboard.Schedule, dashboard.LastSchedulerRun, time.Now())
		if err != nil {
			return err
		}
		if !due {
			s.logger.Debug("dashboard no longer due, skipping", zap.String("dashboard_id", dashboardID.String()))
			return nil
		}

		charts, err := s.charts.ListByDashboard(ctx, dashboardID)
		if err != nil {
			return err
		}

		var firstErr error
		for _, chart := range charts {
			if err := s.refresher.RefreshChart(ctx, chart.ID); err != nil {
				s.logger.Error("dashboard chart refresh failed",
					zap.String("dashboard_id", dashboardID.String()),
					zap.String("chart_id", chart.ID.String()),
					zap.Error(err))
				if firstErr == nil {
					firstErr = err
				}
			}
		}

		if err := s.dashboards.UpdateLastSchedulerRun(ctx, dashboardID, time.Now()); err != nil {
			return err
		}

		return firstErr
	}
}
