package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"statuswatch/internal/repo"
)

// Run starts the check loop. It does an immediate pass, then runs each
// tick. Stops when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		e.Logger.Info("check_loop_disabled")
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	if err := e.RunAll(ctx); err != nil {
		e.Logger.Error("check_pass_failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			e.Logger.Info("check_loop_stopped")
			return
		case <-t.C:
			if err := e.RunAll(ctx); err != nil {
				e.Logger.Error("check_pass_failed", zap.Error(err))
			}
		}
	}
}

// RunRetries starts the optional loop that rechecks only monitors with a
// failure streak at or above threshold. Disabled when interval is zero.
func (e *Engine) RunRetries(ctx context.Context, interval time.Duration, threshold int) {
	if interval <= 0 {
		e.Logger.Info("retry_loop_disabled")
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Logger.Info("retry_loop_stopped")
			return
		case <-t.C:
			if err := e.RunFailing(ctx, threshold); err != nil {
				e.Logger.Error("retry_pass_failed", zap.Error(err))
			}
		}
	}
}

// StatsComputer recalculates one tenant's uptime statistics. Satisfied by
// *uptime.Aggregator.
type StatsComputer interface {
	ComputeTenantStats(ctx context.Context, tenantID int) error
}

// StatsRunner recomputes uptime statistics for every active tenant on a
// fixed interval.
type StatsRunner struct {
	Logger     *zap.Logger
	Tenants    repo.TenantStore
	Aggregator StatsComputer
	Interval   time.Duration
}

func (r *StatsRunner) Run(ctx context.Context) {
	if r.Interval <= 0 {
		r.Logger.Info("stats_loop_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("stats_loop_stopped")
			return
		case <-t.C:
			r.runOnce(ctx)
		}
	}
}

func (r *StatsRunner) runOnce(ctx context.Context) {
	tenants, err := r.Tenants.ListActiveTenants(ctx)
	if err != nil {
		r.Logger.Error("stats_list_tenants_failed", zap.Error(err))
		return
	}
	for _, t := range tenants {
		if err := r.Aggregator.ComputeTenantStats(ctx, t.ID); err != nil {
			r.Logger.Error("stats_tenant_failed", zap.Int("tenant_id", t.ID), zap.Error(err))
		}
	}
}

// CleanupRunner purges check results and stale aggregation rows past the
// retention window, per tenant, on a fixed interval.
type CleanupRunner struct {
	Logger        *zap.Logger
	Tenants       repo.TenantStore
	Results       repo.ResultStore
	Stats         repo.StatsStore
	Interval      time.Duration
	RetentionDays int
}

func (r *CleanupRunner) Run(ctx context.Context) {
	if r.Interval <= 0 || r.RetentionDays <= 0 {
		r.Logger.Info("cleanup_loop_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("cleanup_loop_stopped")
			return
		case <-t.C:
			r.runOnce(ctx)
		}
	}
}

func (r *CleanupRunner) runOnce(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -r.RetentionDays)
	tenants, err := r.Tenants.ListActiveTenants(ctx)
	if err != nil {
		r.Logger.Error("cleanup_list_tenants_failed", zap.Error(err))
		return
	}
	for _, t := range tenants {
		if err := r.Results.DeleteResultsBefore(ctx, t.ID, cutoff); err != nil {
			r.Logger.Error("cleanup_results_failed", zap.Int("tenant_id", t.ID), zap.Error(err))
		}
		if err := r.Stats.DeleteStatsCalculatedBefore(ctx, t.ID, cutoff); err != nil {
			r.Logger.Error("cleanup_stats_failed", zap.Int("tenant_id", t.ID), zap.Error(err))
		}
	}
	r.Logger.Info("cleanup_pass_finished", zap.Time("cutoff", cutoff))
}
