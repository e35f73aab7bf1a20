// Package config loads and validates application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFormat is "json" (default) or "console".
	LogFormat string

	// LogFile, when set, receives a copy of the logs in a rotating file.
	LogFile string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// RateLimitRPS and RateLimitBurst size the per-client token bucket.
	RateLimitRPS   float64
	RateLimitBurst int

	// MigrateOnStart runs the embedded migrations before serving.
	MigrateOnStart bool

	// Reconcile* bound background persistence (renumbering, compaction).
	ReconcileWorkers    int
	ReconcileMaxRetries uint64
	ReconcileBaseDelay  time.Duration

	// SessionIdleTTL is how long an unused group session stays cached.
	// Zero keeps sessions forever. Defaults to 30m.
	SessionIdleTTL time.Duration
}

// Load reads configuration from the environment, with values from ./.env
// filling in variables that are not set. A missing .env file is not an error.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. Real environment variables
// always take precedence over the file.
func LoadFrom(envFile string) (Config, error) {
	env := environment{}
	if envFile != "" {
		file, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config.Load: reading %s: %w", envFile, err)
		}
		env.file = file
	}

	cfg := Config{
		Port:        env.get("PORT", "8080"),
		LogLevel:    env.get("LOG_LEVEL", "info"),
		LogFormat:   env.get("LOG_FORMAT", "json"),
		LogFile:     env.get("LOG_FILE", ""),
		CORSOrigins: splitCSV(env.get("CORS_ORIGINS", "http://localhost:5173")),
	}

	var missing, invalid []string

	cfg.DatabaseURL = env.get("DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	parse := func(key, fallback string, fn func(string) error) {
		if err := fn(env.get(key, fallback)); err != nil {
			invalid = append(invalid, key)
		}
	}
	parse("MAX_BODY_BYTES", "1048576", func(s string) (err error) {
		cfg.MaxBodyBytes, err = strconv.ParseInt(s, 10, 64)
		if err == nil && cfg.MaxBodyBytes <= 0 {
			err = errors.New("must be positive")
		}
		return err
	})
	parse("RATE_LIMIT_RPS", "20", func(s string) (err error) {
		cfg.RateLimitRPS, err = strconv.ParseFloat(s, 64)
		return err
	})
	parse("RATE_LIMIT_BURST", "40", func(s string) (err error) {
		cfg.RateLimitBurst, err = strconv.Atoi(s)
		return err
	})
	parse("MIGRATE_ON_START", "false", func(s string) (err error) {
		cfg.MigrateOnStart, err = strconv.ParseBool(s)
		return err
	})
	parse("RECONCILE_WORKERS", "4", func(s string) (err error) {
		cfg.ReconcileWorkers, err = strconv.Atoi(s)
		if err == nil && cfg.ReconcileWorkers < 1 {
			err = errors.New("must be at least 1")
		}
		return err
	})
	parse("RECONCILE_MAX_RETRIES", "5", func(s string) (err error) {
		cfg.ReconcileMaxRetries, err = strconv.ParseUint(s, 10, 64)
		return err
	})
	parse("RECONCILE_BASE_DELAY", "100ms", func(s string) (err error) {
		cfg.ReconcileBaseDelay, err = time.ParseDuration(s)
		return err
	})
	parse("SESSION_IDLE_TTL", "30m", func(s string) (err error) {
		cfg.SessionIdleTTL, err = time.ParseDuration(s)
		if err == nil && cfg.SessionIdleTTL < 0 {
			err = errors.New("must not be negative")
		}
		return err
	})
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		invalid = append(invalid, "LOG_FORMAT")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// environment looks variables up in the process environment, then the dotenv file.
type environment struct {
	file map[string]string
}

// get returns the value of the variable named by key, or fallback if it is
// not set or is empty.
func (e environment) get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v := e.file[key]; v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
