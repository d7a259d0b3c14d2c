package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"statuswatch/internal/domain"
)

// ---- StatsStore ----

func (s *Store) UpsertStats(ctx context.Context, st *domain.UptimeStats) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO uptime_stats
		        (monitor_id, tenant_id, period_type, period_start, period_end,
		         total_checks, successful_checks, uptime_percent,
		         min_response_ms, max_response_ms, avg_response_ms, p99_response_ms,
		         response_time_data, down_period_data, calculated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 ON CONFLICT (monitor_id, period_type, period_start)
		 DO UPDATE SET period_end         = EXCLUDED.period_end,
		               total_checks       = EXCLUDED.total_checks,
		               successful_checks  = EXCLUDED.successful_checks,
		               uptime_percent     = EXCLUDED.uptime_percent,
		               min_response_ms    = EXCLUDED.min_response_ms,
		               max_response_ms    = EXCLUDED.max_response_ms,
		               avg_response_ms    = EXCLUDED.avg_response_ms,
		               p99_response_ms    = EXCLUDED.p99_response_ms,
		               response_time_data = EXCLUDED.response_time_data,
		               down_period_data   = EXCLUDED.down_period_data,
		               calculated_at      = EXCLUDED.calculated_at`,
		st.MonitorID, st.TenantID, string(st.PeriodType), st.PeriodStart, st.PeriodEnd,
		st.TotalChecks, st.SuccessfulChecks, st.UptimePercent,
		st.MinResponseMs, st.MaxResponseMs, st.AvgResponseMs, st.P99ResponseMs,
		st.ResponseTimeData, st.DownPeriodData, st.CalculatedAt)
	if err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}
	return nil
}

func (s *Store) DeleteStatsCalculatedBefore(ctx context.Context, tenantID int, cutoff time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM uptime_stats WHERE tenant_id = $1 AND calculated_at < $2`,
		tenantID, cutoff)
	if err != nil {
		return fmt.Errorf("delete stats: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.log.Info("uptime_stats_purged", zap.Int("tenant_id", tenantID), zap.Int64("rows", n))
	}
	return nil
}
