package repo

import (
	"context"
	"time"

	"statuswatch/internal/domain"
)

// Ports (interfaces) — the engine only talks to these; swap in any DB
// adapter. One adapter type typically implements several ports, so method
// names stay distinct. Updates for one monitor id must be isolated from
// updates for another, but adapters need no global locking.

type TenantStore interface {
	ListActiveTenants(ctx context.Context) ([]domain.Tenant, error)
	GetTenant(ctx context.Context, id int) (*domain.Tenant, error)
}

type MonitorStore interface {
	ListMonitorsByState(ctx context.Context, tenantIDs []int, state domain.MonitorState) ([]domain.Monitor, error)
	// ListActiveMonitors returns one tenant's ACTIVE monitors.
	ListActiveMonitors(ctx context.Context, tenantID int) ([]domain.Monitor, error)
	GetMonitor(ctx context.Context, monitorID, tenantID int) (*domain.Monitor, error)
	CountActiveMonitors(ctx context.Context, tenantID int) (int, error)
}

type ContactStore interface {
	ListActiveContacts(ctx context.Context, tenantID int) ([]domain.AlertContact, error)
}

type ResultStore interface {
	AppendResult(ctx context.Context, r *domain.CheckResult) error
	// ListResultsRange returns results with CheckedAt in [start, end), ascending.
	ListResultsRange(ctx context.Context, monitorID, tenantID int, start, end time.Time) ([]domain.CheckResult, error)
	DeleteResultsBefore(ctx context.Context, tenantID int, cutoff time.Time) error
}

type StatusStore interface {
	// GetStatus returns nil, nil if no status row exists yet.
	GetStatus(ctx context.Context, monitorID, tenantID int) (*domain.MonitorStatus, error)
	SaveStatus(ctx context.Context, s *domain.MonitorStatus) error
	// ListFailingStatuses returns statuses with ConsecutiveFailures >= threshold.
	ListFailingStatuses(ctx context.Context, tenantID, threshold int) ([]domain.MonitorStatus, error)
}

type AlertHistoryStore interface {
	AppendAlert(ctx context.Context, h *domain.AlertHistory) error
	// LastAlertByType returns the most recent record of the given type,
	// or nil, nil if none exists.
	LastAlertByType(ctx context.Context, monitorID, tenantID int, t domain.AlertType) (*domain.AlertHistory, error)
}

type StatsStore interface {
	// UpsertStats writes the row keyed by (monitor, period type, period
	// start), overwriting an existing row in place.
	UpsertStats(ctx context.Context, s *domain.UptimeStats) error
	DeleteStatsCalculatedBefore(ctx context.Context, tenantID int, cutoff time.Time) error
}
