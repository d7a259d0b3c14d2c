// Package scheduler runs monitor checks in bounded batches and hosts the
// periodic loops for checking, stats aggregation and retention cleanup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"statuswatch/internal/domain"
	"statuswatch/internal/probe"
	"statuswatch/internal/repo"
)

// Prober performs one health check. Satisfied by *probe.Evaluator.
type Prober interface {
	Check(ctx context.Context, t probe.Target) probe.Outcome
}

// Alerter decides and dispatches notifications. Satisfied by
// *alert.Dispatcher.
type Alerter interface {
	HandleDown(ctx context.Context, m *domain.Monitor, statusCode int) error
	HandleUp(ctx context.Context, m *domain.Monitor) error
}

// StatusApplier persists one check's state transition. Satisfied by
// *status.Tracker.
type StatusApplier interface {
	Apply(ctx context.Context, m *domain.Monitor, r *domain.CheckResult) (*domain.MonitorStatus, bool, error)
}

type Engine struct {
	Logger      *zap.Logger
	Tenants     repo.TenantStore
	Monitors    repo.MonitorStore
	Results     repo.ResultStore
	Statuses    repo.StatusStore
	Prober      Prober
	Tracker     StatusApplier
	Alerter     Alerter
	Concurrency int

	now func() time.Time
}

func NewEngine(
	logger *zap.Logger,
	tenants repo.TenantStore,
	monitors repo.MonitorStore,
	results repo.ResultStore,
	statuses repo.StatusStore,
	prober Prober,
	tracker StatusApplier,
	alerter Alerter,
	concurrency int,
) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		Logger:      logger,
		Tenants:     tenants,
		Monitors:    monitors,
		Results:     results,
		Statuses:    statuses,
		Prober:      prober,
		Tracker:     tracker,
		Alerter:     alerter,
		Concurrency: concurrency,
		now:         time.Now,
	}
}

// CheckOne probes a single monitor and runs the full wrap-up: persist the
// result, apply the status transition, decide alerting. A panic anywhere in
// the check is recovered into a synthetic failing result so one monitor can
// never abort a batch.
func (e *Engine) CheckOne(ctx context.Context, m *domain.Monitor) *domain.CheckResult {
	start := e.now()

	result := func() (r *domain.CheckResult) {
		defer func() {
			if v := recover(); v != nil {
				e.Logger.Error("check_panic",
					zap.Int("monitor_id", m.ID),
					zap.Any("panic", v),
				)
				r = &domain.CheckResult{
					MonitorID:      m.ID,
					TenantID:       m.TenantID,
					Up:             false,
					ResponseTimeMs: 1,
					Error:          fmt.Sprintf("internal error: %v", v),
					CheckedAt:      start,
				}
			}
		}()

		out := e.Prober.Check(ctx, probe.Target{
			URL:     m.URL,
			Headers: m.Headers,
			Criteria: probe.Criteria{
				StatusCodeRegex: m.StatusCodeRegex,
				BodyRegex:       m.BodyRegex,
				MetricKeyRegex:  m.MetricKeyRegex,
				MetricMin:       m.MetricMin,
				MetricMax:       m.MetricMax,
			},
		})
		return &domain.CheckResult{
			MonitorID:      m.ID,
			TenantID:       m.TenantID,
			StatusCode:     out.StatusCode,
			ResponseTimeMs: out.ResponseTimeMs,
			Up:             out.Up,
			Error:          out.Reason,
			CheckedAt:      start,
		}
	}()

	e.finishCheck(ctx, m, result)
	return result
}

// finishCheck is the wrap-up after a probe: append the result, apply the
// tracker transition and evaluate the alert policy. SILENT and INACTIVE
// monitors never alert.
func (e *Engine) finishCheck(ctx context.Context, m *domain.Monitor, r *domain.CheckResult) {
	if err := e.Results.AppendResult(ctx, r); err != nil {
		e.Logger.Error("check_append_failed", zap.Int("monitor_id", m.ID), zap.Error(err))
	}

	st, changed, err := e.Tracker.Apply(ctx, m, r)
	if err != nil {
		e.Logger.Error("check_status_failed", zap.Int("monitor_id", m.ID), zap.Error(err))
		return
	}
	if changed {
		e.Logger.Info("monitor_status_changed",
			zap.Int("monitor_id", m.ID),
			zap.String("status", string(st.CurrentStatus)),
			zap.Int("consecutive_failures", st.ConsecutiveFailures),
		)
	}

	if m.State != domain.StateActive {
		e.Logger.Debug("alert_skipped_state",
			zap.Int("monitor_id", m.ID),
			zap.String("state", string(m.State)),
		)
		return
	}

	if r.Up {
		if err := e.Alerter.HandleUp(ctx, m); err != nil {
			e.Logger.Error("alert_up_failed", zap.Int("monitor_id", m.ID), zap.Error(err))
		}
		return
	}

	if !e.pastThreshold(m, st) {
		e.Logger.Debug("alert_below_threshold",
			zap.Int("monitor_id", m.ID),
			zap.Int("threshold_s", m.AlertingThreshold),
		)
		return
	}
	code := 0
	if r.StatusCode != nil {
		code = *r.StatusCode
	}
	if err := e.Alerter.HandleDown(ctx, m, code); err != nil {
		e.Logger.Error("alert_down_failed", zap.Int("monitor_id", m.ID), zap.Error(err))
	}
}

// pastThreshold reports whether the monitor has been down for at least its
// alerting threshold, in whole seconds.
func (e *Engine) pastThreshold(m *domain.Monitor, st *domain.MonitorStatus) bool {
	if st.LastDownAt == nil {
		return false
	}
	secondsDown := int(e.now().Sub(*st.LastDownAt).Seconds())
	return secondsDown >= m.AlertingThreshold
}

// RunAll performs one batch pass over every ACTIVE and SILENT monitor of
// every active tenant. The pass returns once all checks have finished.
func (e *Engine) RunAll(ctx context.Context) error {
	tenants, err := e.Tenants.ListActiveTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	if len(tenants) == 0 {
		e.Logger.Info("check_pass_no_tenants")
		return nil
	}
	ids := make([]int, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}

	var monitors []domain.Monitor
	for _, state := range []domain.MonitorState{domain.StateActive, domain.StateSilent} {
		ms, err := e.Monitors.ListMonitorsByState(ctx, ids, state)
		if err != nil {
			return fmt.Errorf("list %s monitors: %w", state, err)
		}
		monitors = append(monitors, ms...)
	}

	e.runBatch(ctx, monitors)
	return nil
}

// RunFailing performs one pass over monitors whose consecutive-failure
// count is at or above threshold, across all active tenants.
func (e *Engine) RunFailing(ctx context.Context, threshold int) error {
	tenants, err := e.Tenants.ListActiveTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	var monitors []domain.Monitor
	for _, t := range tenants {
		failing, err := e.Statuses.ListFailingStatuses(ctx, t.ID, threshold)
		if err != nil {
			return fmt.Errorf("list failing statuses: %w", err)
		}
		for _, st := range failing {
			m, err := e.Monitors.GetMonitor(ctx, st.MonitorID, st.TenantID)
			if err != nil {
				e.Logger.Error("retry_get_monitor_failed",
					zap.Int("monitor_id", st.MonitorID),
					zap.Error(err),
				)
				continue
			}
			if m == nil || m.State == domain.StateInactive {
				continue
			}
			monitors = append(monitors, *m)
		}
	}

	e.runBatch(ctx, monitors)
	return nil
}

// ActiveMonitorCount counts ACTIVE monitors across all active tenants.
func (e *Engine) ActiveMonitorCount(ctx context.Context) (int, error) {
	tenants, err := e.Tenants.ListActiveTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tenants: %w", err)
	}
	total := 0
	for _, t := range tenants {
		n, err := e.Monitors.CountActiveMonitors(ctx, t.ID)
		if err != nil {
			return 0, fmt.Errorf("count monitors: %w", err)
		}
		total += n
	}
	return total, nil
}

// runBatch fans the monitors out over a bounded worker set and waits for
// all of them. Tasks share no mutable state.
func (e *Engine) runBatch(ctx context.Context, monitors []domain.Monitor) {
	if len(monitors) == 0 {
		return
	}
	e.Logger.Info("check_pass_started", zap.Int("monitors", len(monitors)))

	sem := make(chan struct{}, e.Concurrency)
	var wg sync.WaitGroup
	for i := range monitors {
		m := monitors[i]
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			e.CheckOne(ctx, &m)
		}()
	}
	wg.Wait()

	e.Logger.Info("check_pass_finished", zap.Int("monitors", len(monitors)))
}
