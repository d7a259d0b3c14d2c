package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr        string // API bind address, e.g. ":8080"
	LogDir      string // logs directory
	Debug       bool   // enable debug-level logging
	DatabaseURL string // postgres DSN; empty means in-memory stores

	// Probe connection pool
	ConnectTimeout  time.Duration
	RequestTimeout  time.Duration
	MaxConnections  int
	MaxPerHost      int
	IdleConnTimeout time.Duration

	// Scheduling
	CheckInterval    time.Duration // batch check cadence
	StatsInterval    time.Duration // uptime aggregation cadence
	CleanupInterval  time.Duration // retention cleanup cadence
	RetryInterval    time.Duration // failing-monitor retry cadence; 0 disables
	RetentionDays    int
	Concurrency      int // bounded worker count per pass
	FailureThreshold int // consecutive failures for the retry pass

	SMTP SMTPConfig
}

type SMTPConfig struct {
	Enabled       bool
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	SubjectPrefix string
}

func FromEnv() Config {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	return Config{
		Addr:        addr,
		LogDir:      logDir,
		Debug:       os.Getenv("DEBUG") == "true",
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ConnectTimeout:  envDuration("CONNECT_TIMEOUT_MS", 10*time.Second),
		RequestTimeout:  envDuration("REQUEST_TIMEOUT_MS", 30*time.Second),
		MaxConnections:  envInt("MAX_CONNECTIONS", 200),
		MaxPerHost:      envInt("MAX_PER_HOST", 20),
		IdleConnTimeout: envDuration("IDLE_CONN_TIMEOUT_MS", 30*time.Second),

		CheckInterval:    envDuration("CHECK_INTERVAL_MS", time.Minute),
		StatsInterval:    envDuration("STATS_INTERVAL_MS", 15*time.Minute),
		CleanupInterval:  envDuration("CLEANUP_INTERVAL_MS", 24*time.Hour),
		RetryInterval:    envDuration("RETRY_INTERVAL_MS", 0),
		RetentionDays:    envInt("RETENTION_DAYS", 90),
		Concurrency:      envInt("MAX_CONCURRENT_CHECKS", 10),
		FailureThreshold: envInt("FAILURE_THRESHOLD", 3),

		SMTP: SMTPConfig{
			Enabled:       os.Getenv("SMTP_ENABLED") == "true",
			Host:          os.Getenv("SMTP_HOST"),
			Port:          envInt("SMTP_PORT", 587),
			Username:      os.Getenv("SMTP_USERNAME"),
			Password:      os.Getenv("SMTP_PASSWORD"),
			From:          os.Getenv("SMTP_FROM"),
			SubjectPrefix: envDefault("SMTP_SUBJECT_PREFIX", "[StatusWatch]"),
		},
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		// 0 is a deliberate override: it disables interval-driven loops
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}
