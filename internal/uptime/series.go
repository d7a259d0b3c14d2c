package uptime

import (
	"time"

	"statuswatch/internal/domain"
)

// LatencyPoint is one non-empty bucket of the max-latency time series.
type LatencyPoint struct {
	BucketStart time.Time `json:"bucket_start"`
	MaxMs       int       `json:"max_ms"`
}

// DownInterval is a maximal span of consecutive failing checks,
// half-open [Start, End).
type DownInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// maxLatencySeries divides [windowStart, ...) into fixed-width buckets and
// keeps the maximum observed latency per bucket. Buckets with no checks are
// omitted. Results must be in ascending CheckedAt order.
func maxLatencySeries(results []domain.CheckResult, windowStart time.Time, bucket time.Duration) []LatencyPoint {
	series := make([]LatencyPoint, 0)
	for _, r := range results {
		idx := r.CheckedAt.Sub(windowStart) / bucket
		if idx < 0 {
			continue
		}
		start := windowStart.Add(idx * bucket)
		if n := len(series); n > 0 && series[n-1].BucketStart.Equal(start) {
			if r.ResponseTimeMs > series[n-1].MaxMs {
				series[n-1].MaxMs = r.ResponseTimeMs
			}
			continue
		}
		series = append(series, LatencyPoint{BucketStart: start, MaxMs: r.ResponseTimeMs})
	}
	return series
}

// downIntervals coalesces runs of consecutive failing checks into half-open
// spans. A run still failing at the last check closes at windowEnd. Results
// must be in ascending CheckedAt order.
func downIntervals(results []domain.CheckResult, windowEnd time.Time) []DownInterval {
	intervals := make([]DownInterval, 0)
	var open *DownInterval
	for _, r := range results {
		if !r.Up {
			if open == nil {
				open = &DownInterval{Start: r.CheckedAt}
			}
			continue
		}
		if open != nil {
			open.End = r.CheckedAt
			intervals = append(intervals, *open)
			open = nil
		}
	}
	if open != nil {
		open.End = windowEnd
		intervals = append(intervals, *open)
	}
	return intervals
}
