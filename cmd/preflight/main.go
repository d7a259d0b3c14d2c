// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	addr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	smtpEnabled := strings.TrimSpace(os.Getenv("SMTP_ENABLED"))
	smtpHost := strings.TrimSpace(os.Getenv("SMTP_HOST"))
	smtpFrom := strings.TrimSpace(os.Getenv("SMTP_FROM"))

	if addr == "" {
		warn("ADDR is empty; default in your app may be used.")
	} else {
		ok("ADDR=" + addr)
	}

	if db == "" {
		warn("DATABASE_URL empty — server will use in-memory stores; all state is lost on restart.")
	} else {
		if !strings.HasPrefix(db, "postgres://") && !strings.HasPrefix(db, "postgresql://") {
			warn("DATABASE_URL does not look like a postgres DSN.")
		}
		ok("DATABASE_URL present")
	}

	// SMTP coherence: an enabled transport needs a host and a sender.
	if smtpEnabled == "true" {
		if smtpHost == "" {
			fail("SMTP_ENABLED is true but SMTP_HOST is empty (email alerts will fail).")
		}
		if smtpFrom == "" {
			fail("SMTP_ENABLED is true but SMTP_FROM is empty (email alerts will fail).")
		}
		ok("SMTP configured (" + smtpHost + ")")
	} else {
		warn("SMTP disabled — EMAIL alert contacts will be skipped.")
	}

	// Interval values are milliseconds.
	for _, name := range []string{"CHECK_INTERVAL_MS", "STATS_INTERVAL_MS", "CLEANUP_INTERVAL_MS"} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			fail(name + " is not a non-negative integer (milliseconds).")
		}
		if ms > 0 && time.Duration(ms)*time.Millisecond < time.Second {
			warn(name + " is under 1s; that is a very aggressive cadence.")
		}
		ok(name + "=" + v)
	}

	if c := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_CHECKS")); c != "" {
		if n, err := strconv.Atoi(c); err != nil || n < 1 {
			fail("MAX_CONCURRENT_CHECKS must be a positive integer.")
		}
		ok("MAX_CONCURRENT_CHECKS=" + c)
	}

	ok("preflight passed")
}
