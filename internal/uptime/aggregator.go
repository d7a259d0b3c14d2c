// Package uptime reduces raw check results into per-period statistics:
// uptime percentage, latency min/max/avg/p99, a max-latency time series and
// the list of down intervals.
package uptime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"statuswatch/internal/domain"
	"statuswatch/internal/repo"
)

// period definitions: look-back length and latency bucket width.
var periods = []struct {
	Type   domain.PeriodType
	Days   int
	Bucket time.Duration
}{
	{domain.Period7d, 7, 60 * time.Minute},
	{domain.Period90d, 90, 360 * time.Minute},
	{domain.Period365d, 365, 1440 * time.Minute},
}

const (
	recentWindow = 24 * time.Hour
	recentBucket = 3 * time.Minute
)

// ErrMonitorNotFound reports a history request for a monitor that does not
// exist under the given tenant. Callers can map it to a 404.
var ErrMonitorNotFound = errors.New("monitor not found")

type Aggregator struct {
	monitors repo.MonitorStore
	results  repo.ResultStore
	stats    repo.StatsStore
	log      *zap.Logger
	now      func() time.Time
}

func NewAggregator(monitors repo.MonitorStore, results repo.ResultStore, stats repo.StatsStore, log *zap.Logger) *Aggregator {
	return &Aggregator{
		monitors: monitors,
		results:  results,
		stats:    stats,
		log:      log,
		now:      time.Now,
	}
}

// ComputeTenantStats recalculates every period row for every active monitor
// of one tenant. A failure on one monitor is logged and does not stop the
// others.
func (a *Aggregator) ComputeTenantStats(ctx context.Context, tenantID int) error {
	monitors, err := a.monitors.ListActiveMonitors(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("list monitors: %w", err)
	}
	for i := range monitors {
		if err := a.computeMonitor(ctx, &monitors[i]); err != nil {
			a.log.Error("stats_monitor_failed",
				zap.Int("tenant_id", tenantID),
				zap.Int("monitor_id", monitors[i].ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (a *Aggregator) computeMonitor(ctx context.Context, m *domain.Monitor) error {
	now := a.now()
	for _, p := range periods {
		windowStart := now.AddDate(0, 0, -p.Days)
		results, err := a.results.ListResultsRange(ctx, m.ID, m.TenantID, windowStart, now)
		if err != nil {
			return fmt.Errorf("range %s: %w", p.Type, err)
		}
		if len(results) == 0 {
			continue
		}

		row := buildStats(m, results, windowStart, now, p.Bucket)
		row.PeriodType = p.Type
		row.PeriodStart = midnight(windowStart)
		if err := a.stats.UpsertStats(ctx, row); err != nil {
			return fmt.Errorf("upsert %s: %w", p.Type, err)
		}
	}
	return nil
}

// HistoryView is the on-demand 24-hour view of one monitor. Empty windows
// yield zero counts and empty slices, never an error.
type HistoryView struct {
	MonitorID        int            `json:"monitor_id"`
	MonitorName      string         `json:"monitor_name"`
	WindowStart      time.Time      `json:"window_start"`
	WindowEnd        time.Time      `json:"window_end"`
	TotalChecks      int            `json:"total_checks"`
	SuccessfulChecks int            `json:"successful_checks"`
	UptimePercent    float64        `json:"uptime_percent"`
	ResponseTimes    []LatencyPoint `json:"response_times"`
	DownPeriods      []DownInterval `json:"down_periods"`
}

// RecentHistory builds the fixed 24-hour, 3-minute-bucket view.
func (a *Aggregator) RecentHistory(ctx context.Context, tenantID, monitorID int) (*HistoryView, error) {
	m, err := a.monitors.GetMonitor(ctx, monitorID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("monitor %d for tenant %d: %w", monitorID, tenantID, ErrMonitorNotFound)
	}

	now := a.now()
	windowStart := now.Add(-recentWindow)
	results, err := a.results.ListResultsRange(ctx, monitorID, tenantID, windowStart, now)
	if err != nil {
		return nil, fmt.Errorf("range results: %w", err)
	}

	view := &HistoryView{
		MonitorID:     m.ID,
		MonitorName:   m.Name,
		WindowStart:   windowStart,
		WindowEnd:     now,
		ResponseTimes: make([]LatencyPoint, 0),
		DownPeriods:   make([]DownInterval, 0),
	}
	if len(results) == 0 {
		return view, nil
	}

	view.TotalChecks = len(results)
	for _, r := range results {
		if r.Up {
			view.SuccessfulChecks++
		}
	}
	view.UptimePercent = roundPercent(view.SuccessfulChecks, view.TotalChecks)
	view.ResponseTimes = maxLatencySeries(results, windowStart, recentBucket)
	view.DownPeriods = downIntervals(results, now)
	return view, nil
}

// buildStats reduces one window of results into a stats row. The caller
// fills PeriodType and PeriodStart.
func buildStats(m *domain.Monitor, results []domain.CheckResult, windowStart, windowEnd time.Time, bucket time.Duration) *domain.UptimeStats {
	row := &domain.UptimeStats{
		MonitorID:    m.ID,
		TenantID:     m.TenantID,
		PeriodEnd:    windowEnd,
		TotalChecks:  len(results),
		CalculatedAt: windowEnd,
	}

	var latencies []int
	for _, r := range results {
		if r.Up {
			latencies = append(latencies, r.ResponseTimeMs)
		}
	}
	row.SuccessfulChecks = len(latencies)
	row.UptimePercent = roundPercent(row.SuccessfulChecks, row.TotalChecks)

	if len(latencies) > 0 {
		sort.Ints(latencies)
		row.MinResponseMs = latencies[0]
		row.MaxResponseMs = latencies[len(latencies)-1]
		sum := 0
		for _, v := range latencies {
			sum += v
		}
		row.AvgResponseMs = int(math.Round(float64(sum) / float64(len(latencies))))
		row.P99ResponseMs = latencies[p99Index(len(latencies))]
	}

	series, _ := json.Marshal(maxLatencySeries(results, windowStart, bucket))
	downs, _ := json.Marshal(downIntervals(results, windowEnd))
	row.ResponseTimeData = string(series)
	row.DownPeriodData = string(downs)
	return row
}

// p99Index selects ceil(0.99*n)-1 clamped to [0, n-1] over ascending data.
func p99Index(n int) int {
	idx := int(math.Ceil(0.99*float64(n))) - 1
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

// roundPercent is successful/total*100 rounded half-up to 2 decimals.
func roundPercent(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(successful) / float64(total) * 100
	return math.Floor(pct*100+0.5) / 100
}

func midnight(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
