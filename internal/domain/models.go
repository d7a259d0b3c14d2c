package domain

import (
	"encoding/json"
	"regexp"
	"time"
)

// MonitorState is the configured lifecycle state of a monitor.
// ACTIVE and SILENT monitors are both checked, but only ACTIVE ones alert.
type MonitorState string

const (
	StateActive   MonitorState = "ACTIVE"
	StateSilent   MonitorState = "SILENT"
	StateInactive MonitorState = "INACTIVE"
)

type Tenant struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Monitor is a configured HTTP endpoint probed on a schedule. The three
// optional criteria fields replace the default "2xx/3xx is up" rule.
type Monitor struct {
	ID       int               `json:"id"`
	TenantID int               `json:"tenant_id"`
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	State    MonitorState      `json:"state"`
	Headers  map[string]string `json:"headers,omitempty"`

	StatusCodeRegex string   `json:"status_code_regex,omitempty"`
	BodyRegex       string   `json:"body_regex,omitempty"`
	MetricKeyRegex  string   `json:"metric_key_regex,omitempty"`
	MetricMin       *float64 `json:"metric_min,omitempty"`
	MetricMax       *float64 `json:"metric_max,omitempty"`

	// AlertingThreshold is how long (seconds) a monitor must be continuously
	// down before a DOWN alert may fire. Positive multiple of 15.
	AlertingThreshold int `json:"alerting_threshold"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckResult is the immutable outcome of one probe of one monitor.
// StatusCode is nil on network failure.
type CheckResult struct {
	ID             int64     `json:"id"`
	MonitorID      int       `json:"monitor_id"`
	TenantID       int       `json:"tenant_id"`
	StatusCode     *int      `json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	Up             bool      `json:"up"`
	Error          string    `json:"error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

type StatusType string

const (
	StatusUp   StatusType = "up"
	StatusDown StatusType = "down"
)

// MonitorStatus is the single mutable row per monitor. ConsecutiveFailures
// is 0 whenever CurrentStatus is up.
type MonitorStatus struct {
	MonitorID           int        `json:"monitor_id"`
	TenantID            int        `json:"tenant_id"`
	CurrentStatus       StatusType `json:"current_status"`
	LastCheckedAt       *time.Time `json:"last_checked_at"`
	LastUpAt            *time.Time `json:"last_up_at"`
	LastDownAt          *time.Time `json:"last_down_at"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastResponseTimeMs  int        `json:"last_response_time_ms"`
	LastStatusCode      *int       `json:"last_status_code"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type AlertType string

const (
	AlertDown AlertType = "down"
	AlertUp   AlertType = "up"
	AlertSlow AlertType = "slow_response"
)

// AlertHistory is an append-only record of one notification actually sent
// to one destination. Used to deduplicate edge-triggered alerts.
type AlertHistory struct {
	ID        int64     `json:"id"`
	MonitorID int       `json:"monitor_id"`
	TenantID  int       `json:"tenant_id"`
	Type      AlertType `json:"type"`
	SentTo    string    `json:"sent_to"`
	SentAt    time.Time `json:"sent_at"`
}

type PeriodType string

const (
	Period7d   PeriodType = "7d"
	Period90d  PeriodType = "90d"
	Period365d PeriodType = "365d"
)

// UptimeStats is one aggregation row per (monitor, period type, period
// start). Recomputed in place on every aggregation cycle.
type UptimeStats struct {
	MonitorID        int        `json:"monitor_id"`
	TenantID         int        `json:"tenant_id"`
	PeriodType       PeriodType `json:"period_type"`
	PeriodStart      time.Time  `json:"period_start"`
	PeriodEnd        time.Time  `json:"period_end"`
	TotalChecks      int        `json:"total_checks"`
	SuccessfulChecks int        `json:"successful_checks"`
	UptimePercent    float64    `json:"uptime_percent"`
	MinResponseMs    int        `json:"min_response_ms"`
	MaxResponseMs    int        `json:"max_response_ms"`
	AvgResponseMs    int        `json:"avg_response_ms"`
	P99ResponseMs    int        `json:"p99_response_ms"`
	ResponseTimeData string     `json:"response_time_data"`
	DownPeriodData   string     `json:"down_period_data"`
	CalculatedAt     time.Time  `json:"calculated_at"`
}

type ContactType string

const (
	ContactEmail ContactType = "EMAIL"
	ContactHTTP  ContactType = "HTTP"
)

// AlertContact is a notification destination owned by a tenant. For HTTP
// contacts Value is the webhook URL and the HTTP* fields shape the request.
type AlertContact struct {
	ID       int         `json:"id"`
	TenantID int         `json:"tenant_id"`
	Type     ContactType `json:"type"`
	Value    string      `json:"value"`
	Name     string      `json:"name,omitempty"`
	Active   bool        `json:"active"`

	HTTPMethod      string `json:"http_method,omitempty"`
	HTTPHeaders     string `json:"http_headers,omitempty"` // JSON object
	HTTPBody        string `json:"http_body,omitempty"`
	HTTPContentType string `json:"http_content_type,omitempty"`
}

var (
	emailPattern  = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	urlPattern    = regexp.MustCompile(`^https?://`)
	methodPattern = regexp.MustCompile(`(?i)^(GET|POST)$`)
)

// Validate checks the destination value against type-specific rules.
func (c *AlertContact) Validate() error {
	switch c.Type {
	case ContactEmail:
		if !emailPattern.MatchString(c.Value) {
			return &ValidationError{Field: "value", Reason: "invalid email address"}
		}
	case ContactHTTP:
		if !urlPattern.MatchString(c.Value) {
			return &ValidationError{Field: "value", Reason: "must be an http(s) URL"}
		}
		if c.HTTPMethod != "" && !methodPattern.MatchString(c.HTTPMethod) {
			return &ValidationError{Field: "http_method", Reason: "must be GET or POST"}
		}
	default:
		return &ValidationError{Field: "type", Reason: "unknown contact type"}
	}
	return nil
}

// HeaderMap decodes the stored HTTP headers JSON. Malformed or empty input
// yields an empty map rather than an error.
func (c *AlertContact) HeaderMap() map[string]string {
	if c.HTTPHeaders == "" {
		return map[string]string{}
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(c.HTTPHeaders), &m); err != nil {
		return map[string]string{}
	}
	return m
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
