package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhook_PostSendsBodyAndDefaultContentType(t *testing.T) {
	var gotBody, gotCT, gotMethod string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotCT = r.Header.Get("Content-Type")
		gotMethod = r.Method
	}))
	defer s.Close()

	wh := NewWebhook(2 * time.Second)
	if err := wh.Do(context.Background(), http.MethodPost, s.URL, map[string]string{"X-A": "1"}, `{"k":"v"}`, ""); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotMethod != "POST" || gotBody != `{"k":"v"}` {
		t.Fatalf("request wrong: method=%s body=%s", gotMethod, gotBody)
	}
	if gotCT != "application/json" {
		t.Fatalf("default content type wrong: %q", gotCT)
	}
}

func TestWebhook_GetSendsNoBody(t *testing.T) {
	var gotLen int64
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLen = r.ContentLength
	}))
	defer s.Close()

	wh := NewWebhook(2 * time.Second)
	if err := wh.Do(context.Background(), http.MethodGet, s.URL, nil, "ignored", "text/plain"); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotLen > 0 {
		t.Fatalf("GET must not carry a body, got length %d", gotLen)
	}
}

func TestWebhook_Non2xxIsError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer s.Close()

	wh := NewWebhook(2 * time.Second)
	if err := wh.Do(context.Background(), http.MethodGet, s.URL, nil, "", ""); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
