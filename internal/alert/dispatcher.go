// Package alert implements the edge-triggered, deduplicated notification
// policy: decide whether to notify, render templates, send through the
// configured channels and record history per destination.
package alert

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"statuswatch/internal/domain"
	"statuswatch/internal/repo"
)

// Mailer is the outbound email transport; possibly disabled.
type Mailer interface {
	Enabled() bool
	SubjectPrefix() string
	Send(to, subject, body string) error
}

// WebhookSender performs the outbound HTTP request for HTTP contacts.
type WebhookSender interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body, contentType string) error
}

type Dispatcher struct {
	contacts repo.ContactStore
	history  repo.AlertHistoryStore
	tenants  repo.TenantStore
	mailer   Mailer
	webhooks WebhookSender
	log      *zap.Logger
	now      func() time.Time
}

func NewDispatcher(
	contacts repo.ContactStore,
	history repo.AlertHistoryStore,
	tenants repo.TenantStore,
	mailer Mailer,
	webhooks WebhookSender,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		contacts: contacts,
		history:  history,
		tenants:  tenants,
		mailer:   mailer,
		webhooks: webhooks,
		log:      log,
		now:      time.Now,
	}
}

// HandleDown dispatches a DOWN alert unless one was already sent without a
// recovery since. The caller has already verified the monitor is ACTIVE and
// past its alerting threshold.
func (d *Dispatcher) HandleDown(ctx context.Context, m *domain.Monitor, statusCode int) error {
	emails, hooks, err := d.eligibleContacts(ctx, m.TenantID)
	if err != nil {
		return err
	}
	if len(emails) == 0 && len(hooks) == 0 {
		d.log.Debug("alert_no_contacts", zap.Int("monitor_id", m.ID))
		return nil
	}

	pending, err := d.hasUnresolvedDown(ctx, m)
	if err != nil {
		return err
	}
	if pending {
		d.log.Debug("alert_down_suppressed", zap.Int("monitor_id", m.ID))
		return nil
	}

	d.fanOut(ctx, m, domain.AlertDown, statusCode, "", emails, hooks, false)
	return nil
}

// HandleUp dispatches a recovery alert iff a DOWN alert is outstanding.
func (d *Dispatcher) HandleUp(ctx context.Context, m *domain.Monitor) error {
	emails, hooks, err := d.eligibleContacts(ctx, m.TenantID)
	if err != nil {
		return err
	}
	if len(emails) == 0 && len(hooks) == 0 {
		return nil
	}

	pending, err := d.hasUnresolvedDown(ctx, m)
	if err != nil {
		return err
	}
	if !pending {
		// nothing to recover from
		return nil
	}

	d.fanOut(ctx, m, domain.AlertUp, http.StatusOK, "", emails, hooks, false)
	return nil
}

// SendTest delivers a single synthetic DOWN-style notification to one
// contact. It bypasses dedup and threshold checks and never writes history.
func (d *Dispatcher) SendTest(ctx context.Context, contact *domain.AlertContact) error {
	if err := contact.Validate(); err != nil {
		return err
	}

	tenantName := d.tenantName(ctx, contact.TenantID)
	m := &domain.Monitor{
		ID:       -1,
		TenantID: contact.TenantID,
		Name:     "Test Monitor - " + contact.Name,
		URL:      "https://example.com/test-endpoint",
		State:    domain.StateActive,
	}

	switch contact.Type {
	case domain.ContactEmail:
		if d.mailer == nil || !d.mailer.Enabled() {
			return errors.New("email configuration is not enabled")
		}
		return d.sendEmail(ctx, m, tenantName, contact, domain.AlertDown, http.StatusOK, true)
	case domain.ContactHTTP:
		return d.sendHTTP(ctx, m, tenantName, contact, domain.AlertDown, http.StatusOK, "Test notification response body", true)
	default:
		return fmt.Errorf("unsupported contact type: %s", contact.Type)
	}
}

// hasUnresolvedDown reports whether the most recent DOWN alert has no UP
// alert after it.
func (d *Dispatcher) hasUnresolvedDown(ctx context.Context, m *domain.Monitor) (bool, error) {
	lastDown, err := d.history.LastAlertByType(ctx, m.ID, m.TenantID, domain.AlertDown)
	if err != nil {
		return false, fmt.Errorf("last down alert: %w", err)
	}
	if lastDown == nil {
		return false, nil
	}
	lastUp, err := d.history.LastAlertByType(ctx, m.ID, m.TenantID, domain.AlertUp)
	if err != nil {
		return false, fmt.Errorf("last up alert: %w", err)
	}
	return lastUp == nil || !lastUp.SentAt.After(lastDown.SentAt), nil
}

func (d *Dispatcher) eligibleContacts(ctx context.Context, tenantID int) (emails, hooks []domain.AlertContact, err error) {
	all, err := d.contacts.ListActiveContacts(ctx, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("list contacts: %w", err)
	}
	mailOK := d.mailer != nil && d.mailer.Enabled()
	for _, c := range all {
		switch c.Type {
		case domain.ContactEmail:
			if mailOK {
				emails = append(emails, c)
			}
		case domain.ContactHTTP:
			hooks = append(hooks, c)
		}
	}
	return emails, hooks, nil
}

// fanOut delivers one alert to every eligible contact. A failed send is
// logged and skipped so remaining contacts still get notified, and no
// history row is written for it.
func (d *Dispatcher) fanOut(
	ctx context.Context,
	m *domain.Monitor,
	alertType domain.AlertType,
	statusCode int,
	responseBody string,
	emails, hooks []domain.AlertContact,
	test bool,
) {
	tenantName := d.tenantName(ctx, m.TenantID)
	for i := range emails {
		if err := d.sendEmail(ctx, m, tenantName, &emails[i], alertType, statusCode, test); err != nil {
			d.log.Error("alert_email_failed",
				zap.Int("monitor_id", m.ID),
				zap.String("to", emails[i].Value),
				zap.Error(err),
			)
		}
	}
	for i := range hooks {
		if err := d.sendHTTP(ctx, m, tenantName, &hooks[i], alertType, statusCode, responseBody, test); err != nil {
			d.log.Error("alert_webhook_failed",
				zap.Int("monitor_id", m.ID),
				zap.String("to", hooks[i].Value),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) sendEmail(
	ctx context.Context,
	m *domain.Monitor,
	tenantName string,
	contact *domain.AlertContact,
	alertType domain.AlertType,
	statusCode int,
	test bool,
) error {
	v := vars{
		MonitorName: m.Name,
		MonitorURL:  m.URL,
		TenantName:  tenantName,
		StatusCode:  statusCode,
		AlertType:   alertType,
		Timestamp:   d.now(),
	}
	subject := emailSubject(d.mailer.SubjectPrefix(), v, test)
	body := emailBody(v, contact.Name, test)

	if err := d.mailer.Send(contact.Value, subject, body); err != nil {
		return err
	}
	if !test {
		d.recordAlert(ctx, m, alertType, contact.Value)
	}
	d.log.Info("alert_sent",
		zap.String("channel", "email"),
		zap.String("type", string(alertType)),
		zap.Int("monitor_id", m.ID),
		zap.String("to", contact.Value),
	)
	return nil
}

func (d *Dispatcher) sendHTTP(
	ctx context.Context,
	m *domain.Monitor,
	tenantName string,
	contact *domain.AlertContact,
	alertType domain.AlertType,
	statusCode int,
	responseBody string,
	test bool,
) error {
	v := vars{
		MonitorName:  m.Name,
		MonitorURL:   m.URL,
		TenantName:   tenantName,
		StatusCode:   statusCode,
		ResponseBody: responseBody,
		AlertType:    alertType,
		Timestamp:    d.now(),
	}

	method := strings.ToUpper(contact.HTTPMethod)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return fmt.Errorf("invalid HTTP method %q", contact.HTTPMethod)
	}

	url := substitute(contact.Value, v)
	headers := make(map[string]string)
	for k, hv := range contact.HeaderMap() {
		headers[k] = substitute(hv, v)
	}
	var body string
	if method == http.MethodPost && contact.HTTPBody != "" {
		body = substitute(contact.HTTPBody, v)
	}
	contentType := contact.HTTPContentType
	if contentType != "text/plain" {
		contentType = "application/json"
	}

	if err := d.webhooks.Do(ctx, method, url, headers, body, contentType); err != nil {
		return err
	}
	if !test {
		d.recordAlert(ctx, m, alertType, url)
	}
	d.log.Info("alert_sent",
		zap.String("channel", "http"),
		zap.String("type", string(alertType)),
		zap.Int("monitor_id", m.ID),
		zap.String("to", url),
	)
	return nil
}

func (d *Dispatcher) recordAlert(ctx context.Context, m *domain.Monitor, alertType domain.AlertType, sentTo string) {
	h := &domain.AlertHistory{
		MonitorID: m.ID,
		TenantID:  m.TenantID,
		Type:      alertType,
		SentTo:    sentTo,
		SentAt:    d.now(),
	}
	if err := d.history.AppendAlert(ctx, h); err != nil {
		d.log.Error("alert_history_append_failed", zap.Int("monitor_id", m.ID), zap.Error(err))
	}
}

func (d *Dispatcher) tenantName(ctx context.Context, tenantID int) string {
	t, err := d.tenants.GetTenant(ctx, tenantID)
	if err != nil || t == nil {
		return ""
	}
	return t.Name
}
