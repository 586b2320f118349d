package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "uptrace-dsn=https://token@api.uptrace.dev/123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev/123" {
		t.Fatalf("unexpected UptraceDSN: %q", cfg.UptraceDSN)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.DBURL != "" {
		t.Fatalf("expected empty DBURL by default, got %q", cfg.DBURL)
	}
	if cfg.WriteTimeout != 0 {
		t.Fatalf("expected zero WriteTimeout by default, got %s", cfg.WriteTimeout)
	}
	if cfg.SteamGiftsBaseURL != "https://www.steamgifts.com" {
		t.Fatalf("unexpected SteamGiftsBaseURL: %q", cfg.SteamGiftsBaseURL)
	}
	if !cfg.SchedulerAutostart {
		t.Fatalf("expected SchedulerAutostart=true by default")
	}
	if cfg.EventBufferSize != 64 {
		t.Fatalf("unexpected EventBufferSize: %d", cfg.EventBufferSize)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected CORSAllowedOrigins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_SteamGiftsKnobs(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("STEAMGIFTS_BASE_URL", "http://localhost:9999")
	t.Setenv("STEAMGIFTS_TIMEOUT", "5s")
	t.Setenv("STEAMGIFTS_MAX_RETRIES", "0")
	t.Setenv("STEAMGIFTS_CIRCUIT_FAILURE_COUNT", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SteamGiftsBaseURL != "http://localhost:9999" {
		t.Fatalf("unexpected SteamGiftsBaseURL: %q", cfg.SteamGiftsBaseURL)
	}
	if cfg.SteamGiftsTimeout != 5*time.Second {
		t.Fatalf("unexpected SteamGiftsTimeout: %s", cfg.SteamGiftsTimeout)
	}
	if cfg.SteamGiftsMaxRetries != 0 {
		t.Fatalf("unexpected SteamGiftsMaxRetries: %d", cfg.SteamGiftsMaxRetries)
	}
	if cfg.SteamGiftsCircuitFailureCount != 3 {
		t.Fatalf("unexpected SteamGiftsCircuitFailureCount: %d", cfg.SteamGiftsCircuitFailureCount)
	}
}

func TestLoad_RejectsNonPositiveIntervals(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "cache ttl", key: "CACHE_TTL", value: "0s"},
		{name: "steamgifts timeout", key: "STEAMGIFTS_TIMEOUT", value: "-1s"},
		{name: "event buffer", key: "EVENT_BUFFER_SIZE", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			t.Setenv("UPTRACE_ENABLED", "false")
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "debug", want: "debug"},
		{in: "WARN", want: "warn"},
		{in: "error", want: "error"},
		{in: "unknown", want: "info"},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in).String(); got != tt.want {
			t.Fatalf("parseLogLevel(%q)=%s want=%s", tt.in, got, tt.want)
		}
	}
}
