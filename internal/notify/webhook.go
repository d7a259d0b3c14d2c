package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Webhook performs the outbound HTTP request for an HTTP alert contact.
type Webhook struct {
	client *http.Client
}

func NewWebhook(timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		client: &http.Client{Timeout: timeout},
	}
}

// Do issues one request. Body is only sent for POST; contentType defaults to
// application/json when empty. Non-2xx responses are treated as delivery
// failures so the alert can be retried on the next eligible check.
func (w *Webhook) Do(ctx context.Context, method, url string, headers map[string]string, body, contentType string) error {
	var reader io.Reader
	if method == http.MethodPost && body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if reader != nil {
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
