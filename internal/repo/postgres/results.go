package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"statuswatch/internal/domain"
)

// ---- ResultStore ----

func (s *Store) AppendResult(ctx context.Context, r *domain.CheckResult) error {
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO check_results
		        (monitor_id, tenant_id, status_code, response_time_ms, up, error, checked_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id`,
		r.MonitorID, r.TenantID, r.StatusCode, r.ResponseTimeMs, r.Up, r.Error, r.CheckedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert check result: %w", err)
	}
	return nil
}

func (s *Store) ListResultsRange(ctx context.Context, monitorID, tenantID int, start, end time.Time) ([]domain.CheckResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, monitor_id, tenant_id, status_code, response_time_ms, up, error, checked_at
		   FROM check_results
		  WHERE monitor_id = $1 AND tenant_id = $2
		    AND checked_at >= $3 AND checked_at < $4
		  ORDER BY checked_at`, monitorID, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list check results: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckResult
	for rows.Next() {
		var r domain.CheckResult
		if err := rows.Scan(&r.ID, &r.MonitorID, &r.TenantID, &r.StatusCode,
			&r.ResponseTimeMs, &r.Up, &r.Error, &r.CheckedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteResultsBefore(ctx context.Context, tenantID int, cutoff time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM check_results WHERE tenant_id = $1 AND checked_at < $2`,
		tenantID, cutoff)
	if err != nil {
		return fmt.Errorf("delete check results: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.log.Info("check_results_purged", zap.Int("tenant_id", tenantID), zap.Int64("rows", n))
	}
	return nil
}

// ---- StatusStore ----

func (s *Store) GetStatus(ctx context.Context, monitorID, tenantID int) (*domain.MonitorStatus, error) {
	var st domain.MonitorStatus
	err := s.pool.QueryRow(ctx,
		`SELECT monitor_id, tenant_id, current_status, last_checked_at, last_up_at,
		        last_down_at, consecutive_failures, last_response_time_ms,
		        last_status_code, updated_at
		   FROM monitor_statuses
		  WHERE monitor_id = $1 AND tenant_id = $2`, monitorID, tenantID,
	).Scan(&st.MonitorID, &st.TenantID, &st.CurrentStatus, &st.LastCheckedAt,
		&st.LastUpAt, &st.LastDownAt, &st.ConsecutiveFailures,
		&st.LastResponseTimeMs, &st.LastStatusCode, &st.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get status: %w", err)
	}
	return &st, nil
}

func (s *Store) SaveStatus(ctx context.Context, st *domain.MonitorStatus) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO monitor_statuses
		        (monitor_id, tenant_id, current_status, last_checked_at, last_up_at,
		         last_down_at, consecutive_failures, last_response_time_ms,
		         last_status_code, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (monitor_id)
		 DO UPDATE SET current_status        = EXCLUDED.current_status,
		               last_checked_at       = EXCLUDED.last_checked_at,
		               last_up_at            = EXCLUDED.last_up_at,
		               last_down_at          = EXCLUDED.last_down_at,
		               consecutive_failures  = EXCLUDED.consecutive_failures,
		               last_response_time_ms = EXCLUDED.last_response_time_ms,
		               last_status_code      = EXCLUDED.last_status_code,
		               updated_at            = EXCLUDED.updated_at`,
		st.MonitorID, st.TenantID, string(st.CurrentStatus), st.LastCheckedAt,
		st.LastUpAt, st.LastDownAt, st.ConsecutiveFailures,
		st.LastResponseTimeMs, st.LastStatusCode, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

func (s *Store) ListFailingStatuses(ctx context.Context, tenantID, threshold int) ([]domain.MonitorStatus, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT monitor_id, tenant_id, current_status, last_checked_at, last_up_at,
		        last_down_at, consecutive_failures, last_response_time_ms,
		        last_status_code, updated_at
		   FROM monitor_statuses
		  WHERE tenant_id = $1 AND consecutive_failures >= $2
		  ORDER BY monitor_id`, tenantID, threshold)
	if err != nil {
		return nil, fmt.Errorf("list failing statuses: %w", err)
	}
	defer rows.Close()

	var out []domain.MonitorStatus
	for rows.Next() {
		var st domain.MonitorStatus
		if err := rows.Scan(&st.MonitorID, &st.TenantID, &st.CurrentStatus,
			&st.LastCheckedAt, &st.LastUpAt, &st.LastDownAt, &st.ConsecutiveFailures,
			&st.LastResponseTimeMs, &st.LastStatusCode, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
