// Package probe performs a single bounded HTTP health check and evaluates
// the monitor's success criteria against the response.
package probe

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxBodyBytes caps how much of a response body is read for criteria
// evaluation and alert templating.
const maxBodyBytes = 10 << 20

// PoolConfig bounds the shared outbound connection pool.
type PoolConfig struct {
	ConnectTimeout  time.Duration
	RequestTimeout  time.Duration
	IdleConnTimeout time.Duration
	MaxConnections  int
	MaxPerHost      int
}

// Target is everything the evaluator needs for one probe.
type Target struct {
	URL      string
	Headers  map[string]string
	Criteria Criteria
}

// Outcome is the structured result of one probe. StatusCode is nil when the
// request never produced a response.
type Outcome struct {
	StatusCode     *int
	ResponseTimeMs int
	Up             bool
	Reason         string
	Body           string
}

// Evaluator issues probes over one shared, bounded connection pool. It is
// constructed once at startup and closed on shutdown; it holds no
// per-monitor state.
type Evaluator struct {
	client *http.Client
	log    *zap.Logger
}

func NewEvaluator(cfg PoolConfig, log *zap.Logger) *Evaluator {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 30 * time.Second
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 200
	}
	if cfg.MaxPerHost <= 0 {
		cfg.MaxPerHost = 20
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConns:        cfg.MaxConnections,
		MaxConnsPerHost:     cfg.MaxPerHost,
		MaxIdleConnsPerHost: cfg.MaxPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	return &Evaluator{
		client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		log: log,
	}
}

// Close releases pooled connections.
func (e *Evaluator) Close() {
	e.client.CloseIdleConnections()
}

// Check performs one GET probe and applies the target's success criteria.
// It never returns an error: every failure mode is folded into the Outcome.
func (e *Evaluator) Check(ctx context.Context, t Target) Outcome {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return Outcome{
			ResponseTimeMs: elapsedMs(start),
			Reason:         "unexpected error: " + err.Error(),
		}
	}
	req.Header.Set("User-Agent", "StatusWatch-Monitor/1.0")
	req.Header.Set("Accept", "*/*")
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		out := Outcome{
			ResponseTimeMs: elapsedMs(start),
			Reason:         "network error: " + err.Error(),
		}
		e.log.Debug("probe_network_error",
			zap.String("url", t.URL),
			zap.Int("response_time_ms", out.ResponseTimeMs),
			zap.Error(err),
		)
		return out
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Outcome{
			ResponseTimeMs: elapsedMs(start),
			Reason:         "network error: " + err.Error(),
		}
	}
	body := string(raw)

	code := resp.StatusCode
	up, reason := t.Criteria.Evaluate(code, body)

	out := Outcome{
		StatusCode:     &code,
		ResponseTimeMs: elapsedMs(start),
		Up:             up,
		Reason:         reason,
		Body:           body,
	}
	e.log.Debug("probe_done",
		zap.String("url", t.URL),
		zap.Int("status", code),
		zap.Int("response_time_ms", out.ResponseTimeMs),
		zap.Bool("up", up),
		zap.String("reason", reason),
	)
	return out
}

// elapsedMs reports whole milliseconds since start, never less than 1.
func elapsedMs(start time.Time) int {
	ms := time.Since(start).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return int(ms)
}
