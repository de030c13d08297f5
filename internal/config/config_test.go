package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/studymate/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GOOGLE_API_KEY", "GEMINI_MODEL", "COMPLETION_TIMEOUT", "PORT", "FRONTEND_URL",
		"STORE_BACKEND", "DB_PATH", "SESSION_TTL", "SESSION_SWEEP_INTERVAL",
		"MAX_REQUEST_BODY_BYTES", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Completion.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Completion.Model)
	assert.Equal(t, 60*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.EqualValues(t, 1<<20, cfg.MaxRequestBodySize)
}

func TestLoadMissingAPIKeyFailsFast(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	var cerr *domain.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "GOOGLE_API_KEY", cerr.Key)
}

func TestLoadInvalidValues(t *testing.T) {
	cases := map[string]string{
		"COMPLETION_TIMEOUT":     "soon",
		"SESSION_TTL":            "-1h",
		"STORE_BACKEND":          "redis",
		"LOG_LEVEL":              "loud",
		"MAX_REQUEST_BODY_BYTES": "big",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("GOOGLE_API_KEY", "k")
			t.Setenv(key, value)

			_, err := Load()
			var cerr *domain.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, key, cerr.Key)
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{FrontendURL: ""}
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())

	cfg.FrontendURL = "https://study.example.com"
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://study.example.com"}, cfg.AllowedOrigins())
}
