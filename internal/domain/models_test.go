package domain

import "testing"

func TestAlertContact_Validate_Email(t *testing.T) {
	c := &AlertContact{Type: ContactEmail, Value: "ops@example.com"}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}

	for _, bad := range []string{"", "not-an-email", "a@b", "a b@example.com"} {
		c.Value = bad
		if err := c.Validate(); err == nil {
			t.Fatalf("expected rejection for %q", bad)
		}
	}
}

func TestAlertContact_Validate_HTTP(t *testing.T) {
	c := &AlertContact{Type: ContactHTTP, Value: "https://hooks.example.com/x"}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid URL rejected: %v", err)
	}

	c.Value = "ftp://example.com"
	if err := c.Validate(); err == nil {
		t.Fatal("expected rejection for non-http URL")
	}

	c.Value = "http://example.com"
	for _, m := range []string{"GET", "post", "Get"} {
		c.HTTPMethod = m
		if err := c.Validate(); err != nil {
			t.Fatalf("method %q rejected: %v", m, err)
		}
	}
	c.HTTPMethod = "DELETE"
	if err := c.Validate(); err == nil {
		t.Fatal("expected rejection for DELETE")
	}
}

func TestAlertContact_HeaderMap(t *testing.T) {
	c := &AlertContact{HTTPHeaders: `{"X-Token":"abc"}`}
	if got := c.HeaderMap()["X-Token"]; got != "abc" {
		t.Fatalf("want abc, got %q", got)
	}

	c.HTTPHeaders = "{broken"
	if got := c.HeaderMap(); len(got) != 0 {
		t.Fatalf("want empty map for broken JSON, got %v", got)
	}
	c.HTTPHeaders = ""
	if got := c.HeaderMap(); len(got) != 0 {
		t.Fatalf("want empty map for empty input, got %v", got)
	}
}
