package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTPAddr != ":5000" {
		t.Fatalf("expected default addr :5000, got %q", cfg.HTTPAddr)
	}
	if cfg.DatabaseURL != "taskwell.db" {
		t.Fatalf("expected default database, got %q", cfg.DatabaseURL)
	}
	if cfg.GoogleVerifyTimeout != 5*time.Second {
		t.Fatalf("expected 5s verify timeout, got %v", cfg.GoogleVerifyTimeout)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("expected wildcard origin, got %v", cfg.CORSOrigins)
	}
	if cfg.Location().String() != "UTC" {
		t.Fatalf("expected UTC location, got %v", cfg.Location())
	}
}

func TestParseTrimsOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " http://localhost:8080/ ,, https://app.example.com")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"http://localhost:8080", "https://app.example.com"}
	if len(cfg.CORSOrigins) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.CORSOrigins)
	}
	for i := range want {
		if cfg.CORSOrigins[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.CORSOrigins)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantMsg string
	}{
		{name: "bad duration", key: "REQUEST_TIMEOUT", value: "soon", wantMsg: "parse env:"},
		{name: "bad rollover", key: "ROLLOVER_TIME", value: "25:00", wantMsg: "ROLLOVER_TIME"},
		{name: "bad digest", key: "DIGEST_TIME", value: "8am", wantMsg: "DIGEST_TIME"},
		{name: "bad timezone", key: "TIMEZONE", value: "Mars/Olympus", wantMsg: "TIMEZONE"},
		{name: "empty database", key: "DATABASE_URL", value: "  ", wantMsg: "DATABASE_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected %q in error, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("08:30")
	if err != nil {
		t.Fatalf("parse clock: %v", err)
	}
	if hour != 8 || minute != 30 {
		t.Fatalf("expected 08:30, got %02d:%02d", hour, minute)
	}

	for _, bad := range []string{"", "8", "24:00", "12:60", "aa:bb", "1:2:3"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
