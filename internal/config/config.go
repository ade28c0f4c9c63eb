package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the API server and its background jobs.
type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR"       envDefault:":5000"`
	DatabaseURL    string        `env:"DATABASE_URL"    envDefault:"taskwell.db"`
	JWTSecret      string        `env:"JWT_SECRET_KEY"`
	CORSOrigins    []string      `env:"CORS_ORIGINS"    envDefault:"*" envSeparator:","`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	GoogleClientID      string        `env:"GOOGLE_CLIENT_ID"`
	GoogleCertsURL      string        `env:"GOOGLE_CERTS_URL"      envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	GoogleVerifyTimeout time.Duration `env:"GOOGLE_VERIFY_TIMEOUT" envDefault:"5s"`

	Timezone     string `env:"TIMEZONE"      envDefault:"Local"`
	RolloverTime string `env:"ROLLOVER_TIME" envDefault:"00:05"`

	TelegramToken string `env:"TELEGRAM_TOKEN"`
	DigestTime    string `env:"DIGEST_TIME"    envDefault:"08:00"`

	WellnessQuoteURL string        `env:"WELLNESS_QUOTE_URL" envDefault:"https://zenquotes.io/api/today"`
	WellnessFactURL  string        `env:"WELLNESS_FACT_URL"  envDefault:"https://uselessfacts.jsph.pl/random.json?language=en"`
	WellnessTimeout  time.Duration `env:"WELLNESS_TIMEOUT"   envDefault:"5s"`

	OTelEndpoint string `env:"OTEL_EXPORTER_ENDPOINT"`

	location *time.Location
}

// Location returns the scheduler time zone resolved from Timezone.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Load reads a .env file when present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine outside development
	return Parse()
}

// Parse reads configuration from environment variables and validates it.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.GoogleClientID = strings.TrimSpace(cfg.GoogleClientID)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.CORSOrigins = trimOrigins(cfg.CORSOrigins)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if cfg.GoogleVerifyTimeout <= 0 {
		return Config{}, fmt.Errorf("GOOGLE_VERIFY_TIMEOUT must be positive")
	}
	if _, _, err := ParseClock(cfg.RolloverTime); err != nil {
		return Config{}, fmt.Errorf("ROLLOVER_TIME: %w", err)
	}
	if _, _, err := ParseClock(cfg.DigestTime); err != nil {
		return Config{}, fmt.Errorf("DIGEST_TIME: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.location = loc

	return cfg, nil
}

// ParseClock parses an HH:MM wall-clock time.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

func trimOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, v := range values {
		if o := strings.TrimRight(strings.TrimSpace(v), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
