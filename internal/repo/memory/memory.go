package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"statuswatch/internal/domain"
)

// Store is an in-memory adapter for all repo ports. It is the default when
// no DATABASE_URL is configured and the backing store for most tests.
type Store struct {
	mu       sync.RWMutex
	tenants  map[int]domain.Tenant
	monitors map[int]domain.Monitor
	contacts []domain.AlertContact
	results  []domain.CheckResult
	statuses map[int]domain.MonitorStatus
	history  []domain.AlertHistory
	stats    map[statsKey]domain.UptimeStats

	nextResultID  int64
	nextHistoryID int64
}

type statsKey struct {
	monitorID   int
	periodType  domain.PeriodType
	periodStart time.Time
}

func New() *Store {
	return &Store{
		tenants:  make(map[int]domain.Tenant),
		monitors: make(map[int]domain.Monitor),
		statuses: make(map[int]domain.MonitorStatus),
		stats:    make(map[statsKey]domain.UptimeStats),
	}
}

// ---- seeding (configuration entities are CRUD-managed elsewhere) ----

func (m *Store) AddTenant(t domain.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
}

func (m *Store) AddMonitor(mon domain.Monitor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitors[mon.ID] = mon
}

func (m *Store) AddContact(c domain.AlertContact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, c)
}

// ---- TenantStore ----

func (m *Store) ListActiveTenants(ctx context.Context) ([]domain.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) GetTenant(ctx context.Context, id int) (*domain.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// ---- MonitorStore ----

func (m *Store) ListMonitorsByState(ctx context.Context, tenantIDs []int, state domain.MonitorState) ([]domain.Monitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[int]bool, len(tenantIDs))
	for _, id := range tenantIDs {
		want[id] = true
	}
	var out []domain.Monitor
	for _, mon := range m.monitors {
		if want[mon.TenantID] && mon.State == state {
			out = append(out, mon)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) ListActiveMonitors(ctx context.Context, tenantID int) ([]domain.Monitor, error) {
	return m.ListMonitorsByState(ctx, []int{tenantID}, domain.StateActive)
}

func (m *Store) GetMonitor(ctx context.Context, monitorID, tenantID int) (*domain.Monitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mon, ok := m.monitors[monitorID]
	if !ok || mon.TenantID != tenantID {
		return nil, nil
	}
	return &mon, nil
}

func (m *Store) CountActiveMonitors(ctx context.Context, tenantID int) (int, error) {
	mons, err := m.ListActiveMonitors(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return len(mons), nil
}

// ---- ContactStore ----

func (m *Store) ListActiveContacts(ctx context.Context, tenantID int) ([]domain.AlertContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.AlertContact
	for _, c := range m.contacts {
		if c.TenantID == tenantID && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

// ---- ResultStore ----

func (m *Store) AppendResult(ctx context.Context, r *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextResultID++
	r.ID = m.nextResultID
	m.results = append(m.results, *r)
	return nil
}

func (m *Store) ListResultsRange(ctx context.Context, monitorID, tenantID int, start, end time.Time) ([]domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CheckResult
	for _, r := range m.results {
		if r.MonitorID != monitorID || r.TenantID != tenantID {
			continue
		}
		if r.CheckedAt.Before(start) || !r.CheckedAt.Before(end) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedAt.Before(out[j].CheckedAt) })
	return out, nil
}

func (m *Store) DeleteResultsBefore(ctx context.Context, tenantID int, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.results[:0]
	for _, r := range m.results {
		if r.TenantID == tenantID && r.CheckedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}
	m.results = kept
	return nil
}

// ---- StatusStore ----

func (m *Store) GetStatus(ctx context.Context, monitorID, tenantID int) (*domain.MonitorStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[monitorID]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	return &s, nil
}

func (m *Store) SaveStatus(ctx context.Context, s *domain.MonitorStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[s.MonitorID] = *s
	return nil
}

func (m *Store) ListFailingStatuses(ctx context.Context, tenantID, threshold int) ([]domain.MonitorStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.MonitorStatus
	for _, s := range m.statuses {
		if s.TenantID == tenantID && s.ConsecutiveFailures >= threshold {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonitorID < out[j].MonitorID })
	return out, nil
}

// ---- AlertHistoryStore ----

func (m *Store) AppendAlert(ctx context.Context, h *domain.AlertHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHistoryID++
	h.ID = m.nextHistoryID
	m.history = append(m.history, *h)
	return nil
}

func (m *Store) LastAlertByType(ctx context.Context, monitorID, tenantID int, t domain.AlertType) (*domain.AlertHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.AlertHistory
	for i := range m.history {
		h := m.history[i]
		if h.MonitorID != monitorID || h.TenantID != tenantID || h.Type != t {
			continue
		}
		if latest == nil || h.SentAt.After(latest.SentAt) {
			cp := h
			latest = &cp
		}
	}
	return latest, nil
}

// ---- StatsStore ----

func (m *Store) UpsertStats(ctx context.Context, s *domain.UptimeStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[statsKey{s.MonitorID, s.PeriodType, s.PeriodStart}] = *s
	return nil
}

// GetStats reads back an aggregation row; used by tests and the API layer.
func (m *Store) GetStats(ctx context.Context, monitorID int, pt domain.PeriodType, periodStart time.Time) (*domain.UptimeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[statsKey{monitorID, pt, periodStart}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Store) DeleteStatsCalculatedBefore(ctx context.Context, tenantID int, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.stats {
		if s.TenantID == tenantID && s.CalculatedAt.Before(cutoff) {
			delete(m.stats, k)
		}
	}
	return nil
}
