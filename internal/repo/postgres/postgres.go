// Package postgres implements every store port on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"statuswatch/internal/repo"
)

var _ repo.TenantStore = (*Store)(nil)
var _ repo.MonitorStore = (*Store)(nil)
var _ repo.ContactStore = (*Store)(nil)
var _ repo.ResultStore = (*Store)(nil)
var _ repo.StatusStore = (*Store)(nil)
var _ repo.AlertHistoryStore = (*Store)(nil)
var _ repo.StatsStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Bootstrap creates the schema if it does not exist yet.
func (s *Store) Bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id     INTEGER PRIMARY KEY,
			name   TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS monitors (
			id                 INTEGER PRIMARY KEY,
			tenant_id          INTEGER NOT NULL REFERENCES tenants(id),
			name               TEXT NOT NULL,
			url                TEXT NOT NULL,
			state              TEXT NOT NULL DEFAULT 'ACTIVE',
			headers            JSONB,
			status_code_regex  TEXT,
			body_regex         TEXT,
			metric_key_regex   TEXT,
			metric_min         DOUBLE PRECISION,
			metric_max         DOUBLE PRECISION,
			alerting_threshold INTEGER NOT NULL DEFAULT 60,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS alert_contacts (
			id                INTEGER PRIMARY KEY,
			tenant_id         INTEGER NOT NULL REFERENCES tenants(id),
			type              TEXT NOT NULL,
			name              TEXT NOT NULL DEFAULT '',
			value             TEXT NOT NULL,
			active            BOOLEAN NOT NULL DEFAULT TRUE,
			http_method       TEXT NOT NULL DEFAULT '',
			http_headers      TEXT NOT NULL DEFAULT '',
			http_body         TEXT NOT NULL DEFAULT '',
			http_content_type TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS check_results (
			id               BIGSERIAL PRIMARY KEY,
			monitor_id       INTEGER NOT NULL,
			tenant_id        INTEGER NOT NULL,
			status_code      INTEGER,
			response_time_ms INTEGER NOT NULL,
			up               BOOLEAN NOT NULL,
			error            TEXT NOT NULL DEFAULT '',
			checked_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_check_results_monitor_time
			ON check_results (monitor_id, tenant_id, checked_at)`,
		`CREATE TABLE IF NOT EXISTS monitor_statuses (
			monitor_id            INTEGER PRIMARY KEY,
			tenant_id             INTEGER NOT NULL,
			current_status        TEXT NOT NULL,
			last_checked_at       TIMESTAMPTZ,
			last_up_at            TIMESTAMPTZ,
			last_down_at          TIMESTAMPTZ,
			consecutive_failures  INTEGER NOT NULL DEFAULT 0,
			last_response_time_ms INTEGER NOT NULL DEFAULT 0,
			last_status_code      INTEGER,
			updated_at            TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alert_history (
			id         BIGSERIAL PRIMARY KEY,
			monitor_id INTEGER NOT NULL,
			tenant_id  INTEGER NOT NULL,
			type       TEXT NOT NULL,
			sent_to    TEXT NOT NULL,
			sent_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_history_monitor_type
			ON alert_history (monitor_id, tenant_id, type, sent_at DESC)`,
		`CREATE TABLE IF NOT EXISTS uptime_stats (
			monitor_id         INTEGER NOT NULL,
			tenant_id          INTEGER NOT NULL,
			period_type        TEXT NOT NULL,
			period_start       TIMESTAMPTZ NOT NULL,
			period_end         TIMESTAMPTZ NOT NULL,
			total_checks       INTEGER NOT NULL,
			successful_checks  INTEGER NOT NULL,
			uptime_percent     DOUBLE PRECISION NOT NULL,
			min_response_ms    INTEGER NOT NULL,
			max_response_ms    INTEGER NOT NULL,
			avg_response_ms    INTEGER NOT NULL,
			p99_response_ms    INTEGER NOT NULL,
			response_time_data TEXT NOT NULL DEFAULT '[]',
			down_period_data   TEXT NOT NULL DEFAULT '[]',
			calculated_at      TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (monitor_id, period_type, period_start)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}
	return nil
}
