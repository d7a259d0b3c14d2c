// Package status maintains the per-monitor up/down state machine.
package status

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"statuswatch/internal/domain"
	"statuswatch/internal/repo"
)

// Tracker applies check results to the single mutable status row per
// monitor. The store read-modify-write for one monitor id runs under a
// per-monitor mutex, so updates for the same monitor are serialized while
// different monitors proceed independently.
type Tracker struct {
	statuses repo.StatusStore
	log      *zap.Logger

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewTracker(statuses repo.StatusStore, log *zap.Logger) *Tracker {
	return &Tracker{
		statuses: statuses,
		log:      log,
		locks:    make(map[int]*sync.Mutex),
	}
}

func (t *Tracker) lockFor(monitorID int) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[monitorID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[monitorID] = l
	}
	return l
}

// Apply folds one check result into the monitor's status row and reports
// whether the up/down state changed. The row is created lazily on the first
// check ever seen for the monitor.
func (t *Tracker) Apply(ctx context.Context, m *domain.Monitor, r *domain.CheckResult) (*domain.MonitorStatus, bool, error) {
	l := t.lockFor(m.ID)
	l.Lock()
	defer l.Unlock()

	s, err := t.statuses.GetStatus(ctx, m.ID, m.TenantID)
	if err != nil {
		return nil, false, fmt.Errorf("get status: %w", err)
	}
	if s == nil {
		s = &domain.MonitorStatus{
			MonitorID: m.ID,
			TenantID:  m.TenantID,
		}
		t.log.Info("status_created", zap.Int("monitor_id", m.ID))
	}

	newState := domain.StatusDown
	if r.Up {
		newState = domain.StatusUp
	}
	changed := s.CurrentStatus != newState

	checkedAt := r.CheckedAt
	s.CurrentStatus = newState
	s.LastCheckedAt = &checkedAt
	s.LastResponseTimeMs = r.ResponseTimeMs
	s.LastStatusCode = r.StatusCode
	s.UpdatedAt = checkedAt

	if r.Up {
		s.LastUpAt = &checkedAt
		s.ConsecutiveFailures = 0
	} else {
		s.LastDownAt = &checkedAt
		s.ConsecutiveFailures++
	}

	if err := t.statuses.SaveStatus(ctx, s); err != nil {
		return nil, false, fmt.Errorf("save status: %w", err)
	}

	if changed {
		t.log.Info("status_changed",
			zap.Int("monitor_id", m.ID),
			zap.String("status", string(newState)),
			zap.Int("consecutive_failures", s.ConsecutiveFailures),
		)
	}
	return s, changed, nil
}
