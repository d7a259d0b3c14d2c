package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"statuswatch/internal/domain"
	"statuswatch/internal/uptime"
)

// ---- test fakes ----

type fakeEngine struct {
	ran   int
	count int
	err   error
}

func (f *fakeEngine) RunAll(ctx context.Context) error {
	f.ran++
	return f.err
}

func (f *fakeEngine) ActiveMonitorCount(ctx context.Context) (int, error) {
	return f.count, f.err
}

type fakeStats struct {
	computed []int
	view     *uptime.HistoryView
	err      error
}

func (f *fakeStats) ComputeTenantStats(ctx context.Context, tenantID int) error {
	f.computed = append(f.computed, tenantID)
	return f.err
}

func (f *fakeStats) RecentHistory(ctx context.Context, tenantID, monitorID int) (*uptime.HistoryView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

type fakeNotifier struct {
	contacts []domain.AlertContact
	err      error
}

func (f *fakeNotifier) SendTest(ctx context.Context, c *domain.AlertContact) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f.contacts = append(f.contacts, *c)
	return f.err
}

func setup(e *fakeEngine, st *fakeStats, n *fakeNotifier) *httptest.Server {
	srv := NewServer(zap.NewNop(), e, st, n)
	return httptest.NewServer(srv.Router())
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	ts := setup(&fakeEngine{}, &fakeStats{}, &fakeNotifier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: %d", resp.StatusCode)
	}
}

func TestHistory_OKAndBadID(t *testing.T) {
	view := &uptime.HistoryView{
		MonitorID:     7,
		MonitorName:   "api",
		WindowEnd:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TotalChecks:   4,
		UptimePercent: 75.00,
	}
	ts := setup(&fakeEngine{}, &fakeStats{view: view}, &fakeNotifier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/tenants/1/monitors/7/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status: %d", resp.StatusCode)
	}
	var got uptime.HistoryView
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.MonitorID != 7 || got.UptimePercent != 75.00 {
		t.Fatalf("history payload: %+v", got)
	}

	bad, err := http.Get(ts.URL + "/api/tenants/x/monitors/7/history")
	if err != nil {
		t.Fatal(err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad tenant id status: %d", bad.StatusCode)
	}
}

func TestHistory_UnknownMonitor(t *testing.T) {
	notFound := fmt.Errorf("monitor 9 for tenant 1: %w", uptime.ErrMonitorNotFound)
	ts := setup(&fakeEngine{}, &fakeStats{err: notFound}, &fakeNotifier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/tenants/1/monitors/9/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown monitor status: %d", resp.StatusCode)
	}
}

func TestHistory_StoreFailureIs500(t *testing.T) {
	ts := setup(&fakeEngine{}, &fakeStats{err: errors.New("connection refused")}, &fakeNotifier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/tenants/1/monitors/9/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("store failure status: %d", resp.StatusCode)
	}
}

func TestRecalculate(t *testing.T) {
	st := &fakeStats{}
	ts := setup(&fakeEngine{}, st, &fakeNotifier{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/tenants/3/stats/recalculate", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recalculate status: %d", resp.StatusCode)
	}
	if len(st.computed) != 1 || st.computed[0] != 3 {
		t.Fatalf("computed tenants: %v", st.computed)
	}
}

func TestRunChecks(t *testing.T) {
	e := &fakeEngine{}
	ts := setup(e, &fakeStats{}, &fakeNotifier{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/checks/run", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || e.ran != 1 {
		t.Fatalf("run checks: status=%d ran=%d", resp.StatusCode, e.ran)
	}
}

func TestTestContact_ValidAndInvalid(t *testing.T) {
	n := &fakeNotifier{}
	ts := setup(&fakeEngine{}, &fakeStats{}, n)
	defer ts.Close()

	valid, _ := json.Marshal(domain.AlertContact{
		TenantID: 1, Type: domain.ContactEmail, Value: "ops@example.com", Active: true,
	})
	resp, err := http.Post(ts.URL+"/api/contacts/test", "application/json", bytes.NewReader(valid))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(n.contacts) != 1 {
		t.Fatalf("valid contact: status=%d sent=%d", resp.StatusCode, len(n.contacts))
	}

	invalid, _ := json.Marshal(domain.AlertContact{
		TenantID: 1, Type: domain.ContactEmail, Value: "not-an-email",
	})
	resp2, err := http.Post(ts.URL+"/api/contacts/test", "application/json", bytes.NewReader(invalid))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		body, _ := io.ReadAll(resp2.Body)
		t.Fatalf("invalid contact: status=%d body=%s", resp2.StatusCode, body)
	}
}

func TestActiveCount(t *testing.T) {
	ts := setup(&fakeEngine{count: 12}, &fakeStats{}, &fakeNotifier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/monitors/active-count")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["active_monitors"] != 12 {
		t.Fatalf("active count payload: %v", got)
	}
}
