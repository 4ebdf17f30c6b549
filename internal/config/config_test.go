package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "ADDR", "WAREHOUSE", "DATABASE_URL", "GCP_PROJECT_ID",
		"SESSION_STORE", "REDIS_URL", "SESSION_SECRET", "SESSION_TTL",
		"COOKIE_SECURE", "COOKIE_SAMESITE", "ALLOWED_ORIGINS",
		"OIDC_CLIENT_ID", "OIDC_CLIENT_SECRET", "OIDC_REDIRECT_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, WarehouseMemory, cfg.Warehouse)
	assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.NotEmpty(t, cfg.SessionSecret)
	assert.False(t, cfg.OIDCEnabled())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoad_ProductionCookieDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("COOKIE_SAMESITE", "none")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, http.SameSiteNoneMode, cfg.CookieSameSite)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestValidate_BackendRequirements(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"postgres without url", Config{Warehouse: WarehousePostgres, SessionStore: SessionStoreMemory}, "DATABASE_URL"},
		{"bigquery without project", Config{Warehouse: WarehouseBigQuery, SessionStore: SessionStoreMemory}, "GCP_PROJECT_ID"},
		{"redis without url", Config{Warehouse: WarehouseMemory, SessionStore: SessionStoreRedis}, "REDIS_URL"},
		{"unknown warehouse", Config{Warehouse: "sqlite", SessionStore: SessionStoreMemory}, "unknown WAREHOUSE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.SessionSecret = "x"
			tc.cfg.SessionTTL = time.Hour
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_PostgresSessionsWithOtherWarehouse(t *testing.T) {
	for _, wh := range []string{WarehouseMemory, WarehouseBigQuery} {
		t.Run(wh, func(t *testing.T) {
			cfg := Config{
				Warehouse:     wh,
				GCPProjectID:  "proj",
				SessionStore:  SessionStorePostgres,
				DatabaseURL:   "postgres://localhost/health",
				SessionSecret: "x",
				SessionTTL:    time.Hour,
			}
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoad_InvalidSameSite(t *testing.T) {
	clearEnv(t)
	t.Setenv("COOKIE_SAMESITE", "sideways")
	_, err := Load()
	assert.Error(t, err)
}
