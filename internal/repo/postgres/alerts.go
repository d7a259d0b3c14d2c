package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"statuswatch/internal/domain"
)

// ---- AlertHistoryStore ----

func (s *Store) AppendAlert(ctx context.Context, h *domain.AlertHistory) error {
	if h.SentAt.IsZero() {
		h.SentAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO alert_history (monitor_id, tenant_id, type, sent_to, sent_at)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING id`,
		h.MonitorID, h.TenantID, string(h.Type), h.SentTo, h.SentAt,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("insert alert history: %w", err)
	}
	return nil
}

func (s *Store) LastAlertByType(ctx context.Context, monitorID, tenantID int, t domain.AlertType) (*domain.AlertHistory, error) {
	var h domain.AlertHistory
	err := s.pool.QueryRow(ctx,
		`SELECT id, monitor_id, tenant_id, type, sent_to, sent_at
		   FROM alert_history
		  WHERE monitor_id = $1 AND tenant_id = $2 AND type = $3
		  ORDER BY sent_at DESC
		  LIMIT 1`, monitorID, tenantID, string(t),
	).Scan(&h.ID, &h.MonitorID, &h.TenantID, &h.Type, &h.SentTo, &h.SentAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("last alert: %w", err)
	}
	return &h, nil
}
