package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// startScheduler registers the health probes and the periodic status report
// and starts the scheduler. Jobs that are still running when a tick fires are
// skipped rather than stacked.
func startScheduler(ctx context.Context, g *gateway) (*cron.Cron, error) {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if _, err := g.checker.Schedule(ctx, c, g.cfg.HealthCheck.IntervalDuration()); err != nil {
		return nil, err
	}

	spec := fmt.Sprintf("@every %s", g.cfg.Metrics.StatusReportDuration())
	if _, err := c.AddFunc(spec, func() { reportStatus(g) }); err != nil {
		return nil, fmt.Errorf("schedule status report: %w", err)
	}

	c.Start()
	g.log.Info("Scheduler started",
		slog.Duration("health_check_interval", g.cfg.HealthCheck.IntervalDuration()),
		slog.Duration("status_report_interval", g.cfg.Metrics.StatusReportDuration()))

	return c, nil
}

func reportStatus(g *gateway) {
	status := g.coordinator.Status()

	g.log.Info("Resiliency status",
		slog.String("circuit_state", status.Circuit.State.String()),
		slog.Int("consecutive_failures", status.Circuit.ConsecutiveFailures),
		slog.Int64("trip_count", status.Circuit.TripCount),
		slog.Duration("total_downtime", status.Circuit.TotalDowntime),
		slog.Int("cache_size", status.Cache.Size),
		slog.Int("backlog_size", status.Backlog.Size),
		slog.Uint64("backlog_dropped", status.Backlog.Dropped))
}
