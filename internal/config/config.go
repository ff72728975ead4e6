// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/pkordes/fleet-journal/internal/domain"
)

// AppName names the per-user data directory.
const AppName = "fleet-journal"

// Config holds all configuration values for the API server and the CLI.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. When set the journal is
	// stored in Postgres, otherwise in the CSV file at JournalPath.
	DatabaseURL string

	// JournalPath is the journal CSV file. Defaults to
	// $XDG_DATA_HOME/fleet-journal/journal.csv.
	JournalPath string

	// RosterPath is a .csv or .xlsx roster loaded at startup. Optional.
	RosterPath string

	// KeyColumn is the roster column identifying vehicles. Defaults to "Plate".
	KeyColumn string

	// ClearPolicy is the default of POST /journal/clear. Defaults to keep-open.
	ClearPolicy domain.ClearPolicy

	// Location is the zone of recorded timestamps. TIMEZONE takes an IANA
	// name; defaults to the system zone.
	Location *time.Location

	// MaxUploadBytes caps request bodies, roster uploads included.
	// Defaults to 10 MiB.
	MaxUploadBytes int64

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string
}

// UsesPostgres reports whether the journal is stored in Postgres.
func (c Config) UsesPostgres() bool { return c.DatabaseURL != "" }

// Load reads a .env file from the working directory, if any, then
// configuration from environment variables. Variables already set in the
// environment win over .env entries. Returns an error listing every variable
// with an invalid value.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config.Load: read .env: %w", err)
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JournalPath: getEnv("JOURNAL_PATH", DefaultJournalPath()),
		RosterPath:  os.Getenv("ROSTER_PATH"),
		KeyColumn:   getEnv("KEY_COLUMN", "Plate"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var invalid []string

	policy, err := domain.ParseClearPolicy(os.Getenv("CLEAR_POLICY"))
	if err != nil {
		invalid = append(invalid, "CLEAR_POLICY")
	}
	cfg.ClearPolicy = policy

	cfg.Location = time.Local
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	cfg.MaxUploadBytes = 10 << 20
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			invalid = append(invalid, "MAX_UPLOAD_BYTES")
		} else {
			cfg.MaxUploadBytes = n
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// DefaultJournalPath returns journal.csv in the per-user data directory,
// following the XDG base directory layout.
func DefaultJournalPath() string {
	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), AppName, "journal.csv")
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, AppName, "journal.csv")
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
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
