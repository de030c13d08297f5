// Package config provides application configuration.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/studymate/internal/domain"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	LogLevel           slog.Level
	MaxRequestBodySize int64
	Completion         CompletionConfig
	Store              StoreConfig
	Session            SessionConfig
}

// CompletionConfig configures the Gemini completion client.
type CompletionConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// StoreConfig selects where session state lives while a session is open.
type StoreConfig struct {
	Backend string
	DBPath  string
}

// SessionConfig controls idle session expiry.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from environment variables. Any problem is
// reported as a *domain.ConfigurationError.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		Completion: CompletionConfig{
			APIKey: strings.TrimSpace(getEnv("GOOGLE_API_KEY", "")),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
			DBPath:  getEnv("DB_PATH", "./data/studymate.db"),
		},
	}

	var err error
	if cfg.LogLevel, err = getEnvLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}
	if cfg.MaxRequestBodySize, err = getEnvInt64("MAX_REQUEST_BODY_BYTES", 1<<20); err != nil {
		return nil, err
	}
	if cfg.Completion.Timeout, err = getEnvDuration("COMPLETION_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Session.TTL, err = getEnvDuration("SESSION_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Session.SweepInterval, err = getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Completion.APIKey == "" {
		return &domain.ConfigurationError{Key: "GOOGLE_API_KEY", Message: "must be set to a Gemini API key"}
	}
	if c.Completion.Model == "" {
		return &domain.ConfigurationError{Key: "GEMINI_MODEL", Message: "cannot be empty"}
	}
	if c.Completion.Timeout <= 0 {
		return &domain.ConfigurationError{Key: "COMPLETION_TIMEOUT", Message: "must be > 0"}
	}
	if c.Port == "" {
		return &domain.ConfigurationError{Key: "PORT", Message: "cannot be empty"}
	}
	if c.MaxRequestBodySize <= 0 {
		return &domain.ConfigurationError{Key: "MAX_REQUEST_BODY_BYTES", Message: "must be > 0"}
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.DBPath == "" {
			return &domain.ConfigurationError{Key: "DB_PATH", Message: "cannot be empty with the sqlite backend"}
		}
	default:
		return &domain.ConfigurationError{Key: "STORE_BACKEND", Message: "must be memory or sqlite, got " + strconv.Quote(c.Store.Backend)}
	}
	if c.Session.TTL <= 0 {
		return &domain.ConfigurationError{Key: "SESSION_TTL", Message: "must be > 0"}
	}
	if c.Session.SweepInterval <= 0 {
		return &domain.ConfigurationError{Key: "SESSION_SWEEP_INTERVAL", Message: "must be > 0"}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the origins accepted for CORS and WebSocket upgrades.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, &domain.ConfigurationError{Key: key, Message: "not a duration: " + strconv.Quote(value)}
	}
	return d, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, &domain.ConfigurationError{Key: key, Message: "not an integer: " + strconv.Quote(value)}
	}
	return n, nil
}

func getEnvLevel(key string, fallback slog.Level) (slog.Level, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return 0, &domain.ConfigurationError{Key: key, Message: "unknown log level " + strconv.Quote(value)}
	}
	return lvl, nil
}
