package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"statuswatch/internal/domain"
)

// ---- TenantStore ----

func (s *Store) ListActiveTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, active FROM tenants WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTenant(ctx context.Context, id int) (*domain.Tenant, error) {
	var t domain.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, active FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// ---- MonitorStore ----

const monitorColumns = `id, tenant_id, name, url, state, headers,
	status_code_regex, body_regex, metric_key_regex, metric_min, metric_max,
	alerting_threshold, created_at, updated_at`

func scanMonitor(row pgx.Row) (*domain.Monitor, error) {
	var (
		m       domain.Monitor
		headers []byte
		scRegex, bodyRegex, keyRegex *string
	)
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.URL, &m.State, &headers,
		&scRegex, &bodyRegex, &keyRegex, &m.MetricMin, &m.MetricMax,
		&m.AlertingThreshold, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if scRegex != nil {
		m.StatusCodeRegex = *scRegex
	}
	if bodyRegex != nil {
		m.BodyRegex = *bodyRegex
	}
	if keyRegex != nil {
		m.MetricKeyRegex = *keyRegex
	}
	if len(headers) > 0 {
		// tolerate malformed rows; a monitor without headers still works
		_ = json.Unmarshal(headers, &m.Headers)
	}
	return &m, nil
}

func (s *Store) ListMonitorsByState(ctx context.Context, tenantIDs []int, state domain.MonitorState) ([]domain.Monitor, error) {
	if len(tenantIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+monitorColumns+`
		   FROM monitors
		  WHERE tenant_id = ANY($1) AND state = $2
		  ORDER BY id`, tenantIDs, string(state))
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var out []domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Store) ListActiveMonitors(ctx context.Context, tenantID int) ([]domain.Monitor, error) {
	return s.ListMonitorsByState(ctx, []int{tenantID}, domain.StateActive)
}

func (s *Store) GetMonitor(ctx context.Context, monitorID, tenantID int) (*domain.Monitor, error) {
	m, err := scanMonitor(s.pool.QueryRow(ctx,
		`SELECT `+monitorColumns+`
		   FROM monitors
		  WHERE id = $1 AND tenant_id = $2`, monitorID, tenantID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

func (s *Store) CountActiveMonitors(ctx context.Context, tenantID int) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM monitors WHERE tenant_id = $1 AND state = $2`,
		tenantID, string(domain.StateActive),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count monitors: %w", err)
	}
	return n, nil
}

// ---- ContactStore ----

func (s *Store) ListActiveContacts(ctx context.Context, tenantID int) ([]domain.AlertContact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, type, name, value, active,
		        http_method, http_headers, http_body, http_content_type
		   FROM alert_contacts
		  WHERE tenant_id = $1 AND active
		  ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertContact
	for rows.Next() {
		var c domain.AlertContact
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Type, &c.Name, &c.Value, &c.Active,
			&c.HTTPMethod, &c.HTTPHeaders, &c.HTTPBody, &c.HTTPContentType); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
