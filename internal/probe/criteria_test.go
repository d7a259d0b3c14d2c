package probe

import "testing"

func fp(v float64) *float64 { return &v }

func TestCriteria_DefaultStatusRange(t *testing.T) {
	cases := []struct {
		code int
		up   bool
	}{
		{199, false},
		{200, true},
		{399, true},
		{400, false},
		{500, false},
	}
	for _, tc := range cases {
		up, _ := Criteria{}.Evaluate(tc.code, "")
		if up != tc.up {
			t.Errorf("status %d: want up=%v, got %v", tc.code, tc.up, up)
		}
	}
}

func TestCriteria_StatusCodeRegex_FullMatch(t *testing.T) {
	c := Criteria{StatusCodeRegex: `2\d\d`}
	if up, _ := c.Evaluate(204, ""); !up {
		t.Fatal("204 should match 2\\d\\d")
	}
	if up, reason := c.Evaluate(500, ""); up || reason == "" {
		t.Fatalf("500 should fail with reason, got up=%v reason=%q", up, reason)
	}
	// partial match must not count: "40" appears in "404" but the pattern
	// has to cover the whole code
	if up, _ := (Criteria{StatusCodeRegex: "40"}).Evaluate(404, ""); up {
		t.Fatal("partial status match must fail")
	}
}

func TestCriteria_StatusCodeRegex_OverridesDefault(t *testing.T) {
	// an explicit pattern accepting 500 makes 500 up
	if up, _ := (Criteria{StatusCodeRegex: "500"}).Evaluate(500, ""); !up {
		t.Fatal("explicit 500 pattern should accept 500")
	}
}

func TestCriteria_BodyRegex_Multiline(t *testing.T) {
	body := "line one\nstatus: healthy\nline three"
	if up, _ := (Criteria{BodyRegex: "healthy"}).Evaluate(200, body); !up {
		t.Fatal("substring match should succeed")
	}
	if up, _ := (Criteria{BodyRegex: "one.*three"}).Evaluate(200, body); !up {
		t.Fatal("pattern spanning lines should succeed with (?s)")
	}
	if up, _ := (Criteria{BodyRegex: "absent"}).Evaluate(200, body); up {
		t.Fatal("non-matching body should fail")
	}
}

func TestCriteria_InvalidRegexIsFailureNotError(t *testing.T) {
	if up, reason := (Criteria{StatusCodeRegex: "("}).Evaluate(200, ""); up || reason == "" {
		t.Fatalf("invalid status regex: up=%v reason=%q", up, reason)
	}
	if up, _ := (Criteria{BodyRegex: "("}).Evaluate(200, "x"); up {
		t.Fatal("invalid body regex must fail the predicate")
	}
	if up, _ := (Criteria{MetricKeyRegex: "("}).Evaluate(200, "foo 1\n"); up {
		t.Fatal("invalid metric key regex must fail the predicate")
	}
}

func TestCriteria_MetricRange(t *testing.T) {
	body := "foo 3\nbar 4\n"

	c := Criteria{MetricKeyRegex: "foo|bar", MetricMin: fp(5), MetricMax: fp(10)}
	if up, _ := c.Evaluate(200, body); !up {
		t.Fatal("sum 7 in [5,10] should succeed")
	}

	c.MetricMin = fp(8)
	if up, _ := c.Evaluate(200, body); up {
		t.Fatal("sum 7 with min 8 should fail")
	}

	// no matching key fails regardless of bounds
	none := Criteria{MetricKeyRegex: "baz"}
	if up, reason := none.Evaluate(200, body); up || reason == "" {
		t.Fatalf("unmatched key must fail, got up=%v reason=%q", up, reason)
	}
}

func TestCriteria_MetricParsing(t *testing.T) {
	body := "# HELP foo something\n\nfoo 1.5\nfoo_total 2.5\nbroken\nbad_value abc\n"

	// comments, blanks, valueless and non-numeric lines are skipped;
	// "foo" matches both foo and foo_total by find semantics
	c := Criteria{MetricKeyRegex: "foo", MetricMin: fp(4), MetricMax: fp(4)}
	if up, reason := c.Evaluate(200, body); !up {
		t.Fatalf("want sum 4.0 to pass, got %q", reason)
	}

	// bounds are inclusive on both ends
	if up, _ := (Criteria{MetricKeyRegex: "^foo$", MetricMin: fp(1.5), MetricMax: fp(1.5)}).Evaluate(200, body); !up {
		t.Fatal("inclusive bounds should accept the exact sum")
	}
}

func TestCriteria_AllPredicatesANDed(t *testing.T) {
	body := "ok\nfoo 2\n"
	c := Criteria{
		StatusCodeRegex: "200",
		BodyRegex:       "ok",
		MetricKeyRegex:  "foo",
		MetricMin:       fp(1),
	}
	if up, _ := c.Evaluate(200, body); !up {
		t.Fatal("all predicates hold, should be up")
	}
	c.BodyRegex = "missing"
	if up, _ := c.Evaluate(200, body); up {
		t.Fatal("one failing predicate must fail the check")
	}
}
