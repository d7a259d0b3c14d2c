package alert

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"statuswatch/internal/domain"
	"statuswatch/internal/notify"
	"statuswatch/internal/repo/memory"
)

// ---- fakes ----

type fakeMailer struct {
	mu      sync.Mutex
	enabled bool
	sent    []string // subjects
	fail    bool
}

func (f *fakeMailer) Enabled() bool         { return f.enabled }
func (f *fakeMailer) SubjectPrefix() string { return "[Test]" }
func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, subject)
	return nil
}

type fakeWebhook struct {
	mu    sync.Mutex
	calls []string // urls
	fail  bool
}

func (f *fakeWebhook) Do(ctx context.Context, method, url string, headers map[string]string, body, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("unreachable")
	}
	f.calls = append(f.calls, method+" "+url)
	return nil
}

func setup(t *testing.T) (*memory.Store, *fakeMailer, *fakeWebhook, *Dispatcher, *domain.Monitor) {
	t.Helper()
	store := memory.New()
	store.AddTenant(domain.Tenant{ID: 1, Name: "acme", Active: true})
	mailer := &fakeMailer{enabled: true}
	hook := &fakeWebhook{}
	d := NewDispatcher(store, store, store, mailer, hook, zap.NewNop())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	d.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	m := &domain.Monitor{ID: 7, TenantID: 1, Name: "api", URL: "https://api.example.com", State: domain.StateActive, AlertingThreshold: 30}
	return store, mailer, hook, d, m
}

func TestDispatcher_DownDedupThenRecoveryThenNewDown(t *testing.T) {
	ctx := context.Background()
	store, mailer, _, d, m := setup(t)
	store.AddContact(domain.AlertContact{ID: 1, TenantID: 1, Type: domain.ContactEmail, Value: "ops@example.com", Active: true})

	// first down alert fires
	if err := d.HandleDown(ctx, m, 500); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("want 1 down alert, got %d", len(mailer.sent))
	}

	// second down check: still unresolved, suppressed
	if err := d.HandleDown(ctx, m, 500); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("duplicate down alert sent: %d", len(mailer.sent))
	}

	// recovery sends exactly one UP alert
	if err := d.HandleUp(ctx, m); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("want up alert, got %d sends", len(mailer.sent))
	}
	// another up check: nothing outstanding, no-op
	if err := d.HandleUp(ctx, m); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("second up alert sent: %d", len(mailer.sent))
	}

	// a fresh down period alerts again
	if err := d.HandleDown(ctx, m, 502); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 3 {
		t.Fatalf("want new down alert after recovery, got %d", len(mailer.sent))
	}
}

func TestDispatcher_UpWithoutPriorDownIsNoop(t *testing.T) {
	ctx := context.Background()
	store, mailer, _, d, m := setup(t)
	store.AddContact(domain.AlertContact{ID: 1, TenantID: 1, Type: domain.ContactEmail, Value: "ops@example.com", Active: true})

	if err := d.HandleUp(ctx, m); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("up with no history must not alert: %d", len(mailer.sent))
	}
}

func TestDispatcher_FailedSendNotRecorded(t *testing.T) {
	ctx := context.Background()
	store, mailer, hook, d, m := setup(t)
	mailer.fail = true
	store.AddContact(domain.AlertContact{ID: 1, TenantID: 1, Type: domain.ContactEmail, Value: "ops@example.com", Active: true})
	store.AddContact(domain.AlertContact{ID: 2, TenantID: 1, Type: domain.ContactHTTP, Value: "https://hooks.example.com/a", Active: true})

	if err := d.HandleDown(ctx, m, 500); err != nil {
		t.Fatal(err)
	}
	// the webhook still got notified despite the mail failure
	if len(hook.calls) != 1 {
		t.Fatalf("webhook should be notified, got %d calls", len(hook.calls))
	}

	// failed email left no history, so the next down check retries it
	mailer.fail = false
	if err := d.HandleDown(ctx, m, 500); err != nil {
		t.Fatal(err)
	}
	// webhook succeeded before, so its history suppresses... the monitor-level
	// dedup keys on alert type, and a DOWN record exists from the webhook send
	if len(mailer.sent) != 0 {
		t.Fatalf("down already recorded by webhook send, expected suppression, got %d", len(mailer.sent))
	}
}

func TestDispatcher_InactiveContactsSkipped(t *testing.T) {
	ctx := context.Background()
	store, mailer, hook, d, m := setup(t)
	store.AddContact(domain.AlertContact{ID: 1, TenantID: 1, Type: domain.ContactEmail, Value: "off@example.com", Active: false})
	store.AddContact(domain.AlertContact{ID: 2, TenantID: 1, Type: domain.ContactHTTP, Value: "https://hooks.example.com/b", Active: true})

	if err := d.HandleDown(ctx, m, 500); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 0 || len(hook.calls) != 1 {
		t.Fatalf("inactive contact used: mails=%d hooks=%d", len(mailer.sent), len(hook.calls))
	}
}

func TestDispatcher_MailerDisabledSkipsEmailContacts(t *testing.T) {
	ctx := context.Background()
	store, mailer, hook, d, m := setup(t)
	mailer.enabled = false
	store.AddContact(domain.AlertContact{ID: 1, TenantID: 1, Type: domain.ContactEmail, Value: "ops@example.com", Active: true})
	store.AddContact(domain.AlertContact{ID: 2, TenantID: 1, Type: domain.ContactHTTP, Value: "https://hooks.example.com/c", Active: true})

	if err := d.HandleDown(ctx, m, 500); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 0 || len(hook.calls) != 1 {
		t.Fatalf("disabled mailer misused: mails=%d hooks=%d", len(mailer.sent), len(hook.calls))
	}
}

func TestDispatcher_TemplateSubstitution(t *testing.T) {
	ctx := context.Background()
	store, _, _, d, m := setup(t)

	var gotBody, gotCT, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		gotCT = r.Header.Get("Content-Type")
		gotHeader = r.Header.Get("X-Monitor")
	}))
	defer srv.Close()

	// use the real webhook transport for this one
	d.webhooks = notify.NewWebhook(2 * time.Second)

	store.AddContact(domain.AlertContact{
		ID:          3,
		TenantID:    1,
		Type:        domain.ContactHTTP,
		Value:       srv.URL,
		Active:      true,
		HTTPMethod:  "post",
		HTTPHeaders: `{"X-Monitor":"{{MONITOR_NAME}}"}`,
		HTTPBody:    `{"monitor":"{{MONITOR_NAME}}","url":"{{MONITOR_URL}}","tenant":"{{TENANT_NAME}}","code":"{{STATUS_CODE}}","type":"{{ALERT_TYPE}}"}`,
	})

	if err := d.HandleDown(ctx, m, 500); err != nil {
		t.Fatal(err)
	}
	want := `{"monitor":"api","url":"https://api.example.com","tenant":"acme","code":"500","type":"down"}`
	if gotBody != want {
		t.Fatalf("body substitution wrong:\n got %s\nwant %s", gotBody, want)
	}
	if gotCT != "application/json" {
		t.Fatalf("content type wrong: %q", gotCT)
	}
	if gotHeader != "api" {
		t.Fatalf("header substitution wrong: %q", gotHeader)
	}
}

func TestDispatcher_SendTest_NoHistoryWritten(t *testing.T) {
	ctx := context.Background()
	store, mailer, _, d, _ := setup(t)

	c := &domain.AlertContact{ID: 9, TenantID: 1, Type: domain.ContactEmail, Value: "ops@example.com", Name: "oncall", Active: true}
	if err := d.SendTest(ctx, c); err != nil {
		t.Fatalf("SendTest: %v", err)
	}
	if len(mailer.sent) != 1 || !strings.Contains(mailer.sent[0], "Test Notification") {
		t.Fatalf("test mail wrong: %v", mailer.sent)
	}

	last, err := store.LastAlertByType(ctx, -1, 1, domain.AlertDown)
	if err != nil {
		t.Fatal(err)
	}
	if last != nil {
		t.Fatal("test notification must not be recorded in history")
	}
}

func TestDispatcher_SendTest_EmailDisabledErrors(t *testing.T) {
	ctx := context.Background()
	_, mailer, _, d, _ := setup(t)
	mailer.enabled = false

	c := &domain.AlertContact{TenantID: 1, Type: domain.ContactEmail, Value: "ops@example.com"}
	if err := d.SendTest(ctx, c); err == nil {
		t.Fatal("expected error when mail transport is disabled")
	}
}

func TestDispatcher_SendTest_ValidatesContact(t *testing.T) {
	ctx := context.Background()
	_, _, _, d, _ := setup(t)

	c := &domain.AlertContact{TenantID: 1, Type: domain.ContactEmail, Value: "not-an-email"}
	if err := d.SendTest(ctx, c); err == nil {
		t.Fatal("expected validation error")
	}
}
