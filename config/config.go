// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required Joan credentials, use ValidateBookingReady.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Joan (inventory service)
	JoanBaseURL      string
	JoanClientID     string
	JoanClientSecret string

	// Organizational time zone all bookings and schedules are expressed in.
	Timezone string

	// Rendering
	GenericSummary  string // event summaries equal to this are suppressed
	DeskOwnerPrefix string // organizer display names starting with this are suppressed

	// Chat platform request verification
	SigningSecret string

	// Database (optional; empty runs with the in-memory draft store only)
	DBDsn string

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if Joan creds are missing;
// use ValidateBookingReady() when you require booking and cancellation. An unset DB_DSN disables
// draft persistence and the audit trail, not the service.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.JoanBaseURL = os.Getenv("JOAN_BASE_URL")
	if cfg.JoanBaseURL == "" {
		cfg.JoanBaseURL = "https://portal.getjoan.com"
	}
	cfg.JoanClientID = os.Getenv("JOAN_CONSUMER_KEY")
	cfg.JoanClientSecret = os.Getenv("JOAN_CONSUMER_SECRET")

	cfg.Timezone = os.Getenv("BOOKING_TIMEZONE")
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Detroit"
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	cfg.GenericSummary = os.Getenv("GENERIC_SUMMARY")
	if cfg.GenericSummary == "" {
		cfg.GenericSummary = "Quick reservation"
	}
	cfg.DeskOwnerPrefix = os.Getenv("DESK_OWNER_PREFIX")
	if cfg.DeskOwnerPrefix == "" {
		cfg.DeskOwnerPrefix = "The Factory Downtown"
	}

	cfg.SigningSecret = os.Getenv("CHAT_SIGNING_SECRET")

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// Location resolves the configured zone. Load validated it already, so a failure
// here means the tz database changed out from under a running process.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		panic(fmt.Sprintf("config: timezone %q no longer loadable: %v", c.Timezone, err))
	}
	return loc
}

// ValidateBookingReady checks required fields for talking to Joan.
func (c *Config) ValidateBookingReady() error {
	if c.JoanClientID == "" || c.JoanClientSecret == "" {
		return fmt.Errorf("missing joan env: require JOAN_CONSUMER_KEY, JOAN_CONSUMER_SECRET")
	}
	return nil
}
