package alert

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"statuswatch/internal/domain"
)

// vars carries every placeholder value available to contact templates.
// Absent values render as empty strings.
type vars struct {
	MonitorName  string
	MonitorURL   string
	TenantName   string
	StatusCode   int
	ResponseBody string
	AlertType    domain.AlertType
	Timestamp    time.Time
}

// substitute replaces the supported {{...}} placeholders in a contact's
// URL, header or body template.
func substitute(template string, v vars) string {
	r := strings.NewReplacer(
		"{{MONITOR_NAME}}", v.MonitorName,
		"{{MONITOR_URL}}", v.MonitorURL,
		"{{TENANT_NAME}}", v.TenantName,
		"{{STATUS_CODE}}", strconv.Itoa(v.StatusCode),
		"{{RESPONSE_BODY}}", v.ResponseBody,
		"{{ALERT_TYPE}}", string(v.AlertType),
		"{{TIMESTAMP}}", v.Timestamp.Format(time.RFC3339),
	)
	return r.Replace(template)
}

func emailSubject(prefix string, v vars, test bool) string {
	if test {
		return fmt.Sprintf("%s Test Notification", prefix)
	}
	if v.AlertType == domain.AlertDown {
		return fmt.Sprintf("%s Monitor '%s' is DOWN (HTTP %d)", prefix, v.MonitorName, v.StatusCode)
	}
	return fmt.Sprintf("%s Monitor '%s' is UP again", prefix, v.MonitorName)
}

func emailBody(v vars, contactName string, test bool) string {
	if test {
		return fmt.Sprintf(
			"This is a test notification for alert contact '%s'.\n\nMonitor: %s\nURL: %s\nTenant: %s\nTime: %s",
			contactName, v.MonitorName, v.MonitorURL, v.TenantName, v.Timestamp.Format(time.RFC3339))
	}
	if v.AlertType == domain.AlertDown {
		return fmt.Sprintf(
			"Monitor '%s' is currently DOWN.\n\nURL: %s\nStatus Code: %d\nTime: %s",
			v.MonitorName, v.MonitorURL, v.StatusCode, v.Timestamp.Format(time.RFC3339))
	}
	return fmt.Sprintf(
		"Monitor '%s' is now UP again.\n\nURL: %s\nTime: %s",
		v.MonitorName, v.MonitorURL, v.Timestamp.Format(time.RFC3339))
}
