package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "*/10 * * * *", cfg.Sync.Cron)
	assert.Equal(t, 30*24*time.Hour, cfg.Sync.Lookback)
	assert.Equal(t, "ever", cfg.ConsolidationGate)
	assert.Equal(t, 1800, cfg.RateLimit.Max)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5*time.Second, cfg.AuthTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.Shopify.Locations)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SHOPIFY_LOCATIONS", "77=San José, 88=Heredia")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CONSOLIDATION_GATE", "CURRENT")
	t.Setenv("SYNC_LOOKBACK", "48h")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, map[int64]string{77: "San José", 88: "Heredia"}, cfg.Shopify.Locations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "current", cfg.ConsolidationGate)
	assert.Equal(t, 48*time.Hour, cfg.Sync.Lookback)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_DB_NAME=desde_archivo\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MONGO_DB_NAME") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "desde_archivo", cfg.MongoDBName)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"gate":       {"CONSOLIDATION_GATE", "siempre"},
		"locations":  {"SHOPIFY_LOCATIONS", "77:San José"},
		"locationID": {"SHOPIFY_LOCATIONS", "abc=San José"},
		"rate":       {"RATE_LIMIT_MAX", "0"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load(noEnvFile(t))
			assert.Error(t, err)
		})
	}
}
