package probe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var metricLineSplit = regexp.MustCompile(`\s+`)

// Criteria are the up-to-three success predicates configured on a monitor.
// All configured predicates are ANDed; with none configured, a status in
// [200, 400) is up. An unparseable regex counts as a predicate failure.
type Criteria struct {
	StatusCodeRegex string
	BodyRegex       string
	MetricKeyRegex  string
	MetricMin       *float64
	MetricMax       *float64
}

// Evaluate applies the criteria to one response. On failure the returned
// reason names the first predicate that did not hold.
func (c Criteria) Evaluate(statusCode int, body string) (bool, string) {
	if c.StatusCodeRegex != "" {
		// full match, like the textual status tests users write ("2\d\d")
		re, err := regexp.Compile("^(?:" + c.StatusCodeRegex + ")$")
		if err != nil {
			return false, "invalid status code regex: " + c.StatusCodeRegex
		}
		if !re.MatchString(strconv.Itoa(statusCode)) {
			return false, fmt.Sprintf("status code %d does not match pattern: %s", statusCode, c.StatusCodeRegex)
		}
	} else if statusCode < 200 || statusCode >= 400 {
		return false, fmt.Sprintf("HTTP %d response", statusCode)
	}

	if c.BodyRegex != "" {
		// (?s) so the pattern may span the whole body
		re, err := regexp.Compile("(?s)" + c.BodyRegex)
		if err != nil {
			return false, "invalid response body regex: " + c.BodyRegex
		}
		if !re.MatchString(body) {
			return false, "response body does not match pattern: " + c.BodyRegex
		}
	}

	if c.MetricKeyRegex != "" {
		if ok, reason := evalMetricRange(body, c.MetricKeyRegex, c.MetricMin, c.MetricMax); !ok {
			return false, reason
		}
	}

	return true, ""
}

// evalMetricRange scans a Prometheus-style exposition body, sums the values
// of all metrics whose name matches keyRegex, and compares the sum against
// the optional inclusive bounds. No matching key is a failure even when no
// bounds are configured.
func evalMetricRange(body, keyRegex string, min, max *float64) (bool, string) {
	keyRe, err := regexp.Compile(keyRegex)
	if err != nil {
		return false, "invalid metric key regex: " + keyRegex
	}

	total := 0.0
	found := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := metricLineSplit.Split(line, 2)
		if len(parts) != 2 {
			continue
		}
		if !keyRe.MatchString(parts[0]) {
			continue
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		total += v
		found = true
	}

	if !found {
		return false, "no metric matched key pattern: " + keyRegex
	}
	if min != nil && total < *min {
		return false, fmt.Sprintf("metric sum %g below minimum %g", total, *min)
	}
	if max != nil && total > *max {
		return false, fmt.Sprintf("metric sum %g above maximum %g", total, *max)
	}
	return true, ""
}
