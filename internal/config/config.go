// Package config reads runtime configuration from the process environment.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Warehouse backends.
const (
	WarehouseMemory   = "memory"
	WarehousePostgres = "postgres"
	WarehouseBigQuery = "bigquery"
)

// Session store backends.
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Config captures runtime configuration values.
type Config struct {
	AppEnv string
	Addr   string
	WebDir string

	Warehouse   string
	DatabaseURL string

	GCPProjectID       string
	GCPLocation        string
	BQDataset          string
	BQActivitiesTable  string
	BQUsersTable       string
	BQReflectionsTable string

	SessionStore   string
	RedisURL       string
	SessionSecret  string
	SessionTTL     time.Duration
	CookieSecure   bool
	CookieSameSite http.SameSite
	AllowedOrigins []string

	GeminiAPIKey string
	GeminiModel  string

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
}

// Load reads .env (if present) and the environment, applying defaults for
// local development.
func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (prod uses real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Addr:   getEnv("ADDR", ":8080"),
		WebDir: getEnv("WEB_DIR", "web"),

		Warehouse:   strings.ToLower(getEnv("WAREHOUSE", WarehouseMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		GCPProjectID:       os.Getenv("GCP_PROJECT_ID"),
		GCPLocation:        getEnv("GCP_LOCATION", "us-central1"),
		BQDataset:          getEnv("BQ_DATASET", "health_data"),
		BQActivitiesTable:  getEnv("BQ_ACTIVITIES_TABLE", "activities"),
		BQUsersTable:       getEnv("BQ_USERS_TABLE", "users"),
		BQReflectionsTable: getEnv("BQ_REFLECTIONS_TABLE", "weekly_reflections"),

		SessionStore:   strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		RedisURL:       os.Getenv("REDIS_URL"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		OIDCIssuer:       getEnv("OIDC_ISSUER", "https://accounts.google.com"),
		OIDCClientID:     os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
	}

	var err error
	cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cfg.CookieSecure, err = strconv.ParseBool(getEnv("COOKIE_SECURE", strconv.FormatBool(cfg.IsProduction())))
	if err != nil {
		return nil, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}
	cfg.CookieSameSite, err = parseSameSite(getEnv("COOKIE_SAMESITE", "lax"))
	if err != nil {
		return nil, err
	}

	if cfg.SessionSecret == "" && !cfg.IsProduction() {
		cfg.SessionSecret = "dev-secret-change-me"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// OIDCEnabled reports whether federated sign-in is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDCClientID != "" && c.OIDCClientSecret != "" && c.OIDCRedirectURL != ""
}

// Validate rejects incoherent backend combinations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Warehouse {
	case WarehouseMemory:
	case WarehousePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for WAREHOUSE=postgres"))
		}
	case WarehouseBigQuery:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("GCP_PROJECT_ID is required for WAREHOUSE=bigquery"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown WAREHOUSE %q", c.Warehouse))
	}

	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for SESSION_STORE=postgres"))
		}
	case SessionStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for SESSION_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}

	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("invalid COOKIE_SAMESITE %q", v)
	}
}
