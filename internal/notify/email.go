// Package notify holds the outbound alert transports: SMTP email and
// generic HTTP webhooks. Both may be absent or disabled; callers check
// Enabled before use.
package notify

import (
	"crypto/tls"
	"errors"

	"gopkg.in/gomail.v2"

	"statuswatch/internal/config"
)

// Email sends plain-text mail through a configured SMTP account.
type Email struct {
	cfg config.SMTPConfig
}

func NewEmail(cfg config.SMTPConfig) *Email {
	return &Email{cfg: cfg}
}

// Enabled reports whether an outbound mail transport is configured.
func (e *Email) Enabled() bool {
	return e != nil && e.cfg.Enabled && e.cfg.Host != ""
}

// SubjectPrefix is prepended to every alert subject line.
func (e *Email) SubjectPrefix() string {
	return e.cfg.SubjectPrefix
}

func (e *Email) Send(to, subject, body string) error {
	if !e.Enabled() {
		return errors.New("mail transport disabled")
	}
	from := e.cfg.From
	if from == "" {
		from = e.cfg.Username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(e.cfg.Host, e.cfg.Port, e.cfg.Username, e.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: e.cfg.Host, MinVersion: tls.VersionTLS12}
	return d.DialAndSend(m)
}
