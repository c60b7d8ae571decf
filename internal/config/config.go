// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"carddraw/internal/models"

	"github.com/caarlos0/env/v11"
)

// Ledger modes.
const (
	LedgerModeLocal  = "local"
	LedgerModeRemote = "remote"
	LedgerModeDemo   = "demo"
)

// Config holds every runtime setting.
type Config struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	DBPath            string        `env:"DB_PATH" envDefault:"carddraw.db"`
	LedgerMode        string        `env:"LEDGER_MODE" envDefault:"local"`
	WildcardLedgerURL string        `env:"WILDCARD_LEDGER_URL"`
	PenaltyLedgerURL  string        `env:"PENALTY_LEDGER_URL"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	SpinDelay         time.Duration `env:"SPIN_DELAY" envDefault:"2500ms"`
	StorageKeyPrefix  string        `env:"STORAGE_KEY_PREFIX" envDefault:"codeArena_participated_"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m"`
	LogFile           string        `env:"LOG_FILE"`
	Verbose           bool          `env:"VERBOSE" envDefault:"false"`
}

// Load parses CARDDRAW_* environment variables and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CARDDRAW_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.LedgerMode {
	case LedgerModeLocal, LedgerModeDemo:
	case LedgerModeRemote:
		if strings.TrimSpace(c.WildcardLedgerURL) == "" || strings.TrimSpace(c.PenaltyLedgerURL) == "" {
			return errors.New("remote ledger mode requires WILDCARD_LEDGER_URL and PENALTY_LEDGER_URL")
		}
	default:
		return fmt.Errorf("unknown ledger mode %q", c.LedgerMode)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("DB_PATH is required")
	}
	for name, d := range map[string]time.Duration{
		"HTTP_TIMEOUT":     c.HTTPTimeout,
		"SPIN_DELAY":       c.SpinDelay,
		"SESSION_TTL":      c.SessionTTL,
		"CLEANUP_INTERVAL": c.CleanupInterval,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.CleanupInterval == 0 {
		return errors.New("CLEANUP_INTERVAL must be positive")
	}
	return nil
}

// LedgerEndpoints returns the per-category remote ledger URLs.
func (c Config) LedgerEndpoints() map[models.Category]string {
	return map[models.Category]string{
		models.CategoryWildcard: c.WildcardLedgerURL,
		models.CategoryPenalty:  c.PenaltyLedgerURL,
	}
}

// OpenLogOutput returns the writer google/logger sends every level to:
// LOG_FILE opened for append, or stderr when unset.
func (c Config) OpenLogOutput() (io.WriteCloser, error) {
	if strings.TrimSpace(c.LogFile) == "" {
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
