// Package httpapi exposes the engine's operations over a small chi router.
// Monitor/tenant CRUD lives elsewhere; this surface only triggers and reads
// the core.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"statuswatch/internal/domain"
	"statuswatch/internal/uptime"
)

// Engine is the batch-check surface the API triggers.
type Engine interface {
	RunAll(ctx context.Context) error
	ActiveMonitorCount(ctx context.Context) (int, error)
}

// Stats serves aggregation operations.
type Stats interface {
	ComputeTenantStats(ctx context.Context, tenantID int) error
	RecentHistory(ctx context.Context, tenantID, monitorID int) (*uptime.HistoryView, error)
}

// Notifier sends test notifications.
type Notifier interface {
	SendTest(ctx context.Context, contact *domain.AlertContact) error
}

type Server struct {
	Logger   *zap.Logger
	Engine   Engine
	Stats    Stats
	Notifier Notifier
}

func NewServer(l *zap.Logger, e Engine, s Stats, n Notifier) *Server {
	return &Server{Logger: l, Engine: e, Stats: s, Notifier: n}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/tenants/{tenantID}/monitors/{monitorID}/history", s.handleHistory)
	r.Post("/api/tenants/{tenantID}/stats/recalculate", s.handleRecalculate)
	r.Post("/api/checks/run", s.handleRunChecks)
	r.Post("/api/contacts/test", s.handleTestContact)
	r.Get("/api/monitors/active-count", s.handleActiveCount)

	return r
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok1 := urlInt(r, "tenantID")
	monitorID, ok2 := urlInt(r, "monitorID")
	if !ok1 || !ok2 {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}

	view, err := s.Stats.RecentHistory(r.Context(), tenantID, monitorID)
	if err != nil {
		if errors.Is(err, uptime.ErrMonitorNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("history_error",
			zap.Int("tenant_id", tenantID),
			zap.Int("monitor_id", monitorID),
			zap.Error(err),
		)
		http.Error(w, "history failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := urlInt(r, "tenantID")
	if !ok {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	if err := s.Stats.ComputeTenantStats(r.Context(), tenantID); err != nil {
		s.Logger.Error("recalculate_error", zap.Int("tenant_id", tenantID), zap.Error(err))
		http.Error(w, "recalculation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRunChecks(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.RunAll(r.Context()); err != nil {
		s.Logger.Error("run_checks_error", zap.Error(err))
		http.Error(w, "check pass failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleTestContact(w http.ResponseWriter, r *http.Request) {
	var c domain.AlertContact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if err := s.Notifier.SendTest(r.Context(), &c); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		s.Logger.Warn("test_notification_error", zap.Int("tenant_id", c.TenantID), zap.Error(err))
		http.Error(w, "send failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"status": "sent"})
}

func (s *Server) handleActiveCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.Engine.ActiveMonitorCount(r.Context())
	if err != nil {
		s.Logger.Error("active_count_error", zap.Error(err))
		http.Error(w, "count failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int{"active_monitors": n})
}

func urlInt(r *http.Request, key string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
