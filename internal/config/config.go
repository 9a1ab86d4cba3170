// Package config handles application configuration loading from environment
// variables and an optional YAML file. It provides a centralized Config
// struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wanderplan/internal/planner"
)

// defaultDBPassword is the development password production refuses to run with.
const defaultDBPassword = "changeme"

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host    string
	Port    string
	Env     string // "development", "production", "testing"
	BaseURL string // prefix of share links handed to owners

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Itinerary generation. AIServiceURL selects the remote generator; the
	// provider settings are used when it is empty.
	AIServiceURL string
	AIProvider   string // "openai", "claude", "mistral", "gemini"
	OpenAI       ProviderSettings
	Claude       ProviderSettings
	Mistral      ProviderSettings
	Gemini       ProviderSettings

	// S3-compatible export archive. Empty endpoint disables it.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string

	// Planner behaviour
	PublicReadPolicy planner.PublicReadPolicy
	ShareDefaultTTL  time.Duration
	ExportTimeout    time.Duration
	ExportCacheTTL   time.Duration
	ShareRateLimit   int // requests per minute per client on /share
}

// ProviderSettings holds credentials for one LLM provider.
type ProviderSettings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Load reads configuration from the YAML file named by CONFIG_FILE
// (default config.yaml, optional) and then from environment variables,
// which take precedence. Returns an error if a value does not parse or if
// critical values are missing in production mode.
func Load() (*Config, error) {
	file, err := LoadFile(envOrDefault("CONFIG_FILE", "config.yaml"))
	if err != nil {
		return nil, err
	}
	return load(file.values())
}

func load(file map[string]string) (*Config, error) {
	var err error
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v := file[key]; v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Host:    get("APP_HOST", "0.0.0.0"),
		Port:    get("APP_PORT", "8080"),
		Env:     get("APP_ENV", "development"),
		BaseURL: get("APP_BASE_URL", "http://localhost:8080"),

		DBHost:     get("POSTGRES_HOST", "localhost"),
		DBPort:     get("POSTGRES_PORT", "5432"),
		DBUser:     get("POSTGRES_USER", "wanderplan"),
		DBPassword: get("POSTGRES_PASSWORD", defaultDBPassword),
		DBName:     get("POSTGRES_DB", "wanderplan"),

		ValkeyHost:     get("VALKEY_HOST", "localhost"),
		ValkeyPort:     get("VALKEY_PORT", "6379"),
		ValkeyPassword: get("VALKEY_PASSWORD", ""),

		AIServiceURL: get("AI_SERVICE_URL", ""),
		AIProvider:   get("AI_PROVIDER", "openai"),
		OpenAI: ProviderSettings{
			APIKey:  get("OPENAI_API_KEY", ""),
			Model:   get("OPENAI_MODEL", ""),
			BaseURL: get("OPENAI_BASE_URL", ""),
		},
		Claude: ProviderSettings{
			APIKey:  get("CLAUDE_API_KEY", ""),
			Model:   get("CLAUDE_MODEL", ""),
			BaseURL: get("CLAUDE_BASE_URL", ""),
		},
		Mistral: ProviderSettings{
			APIKey:  get("MISTRAL_API_KEY", ""),
			Model:   get("MISTRAL_MODEL", ""),
			BaseURL: get("MISTRAL_BASE_URL", ""),
		},
		Gemini: ProviderSettings{
			APIKey:  get("GEMINI_API_KEY", ""),
			Model:   get("GEMINI_MODEL", ""),
			BaseURL: get("GEMINI_BASE_URL", ""),
		},

		S3Endpoint:  get("S3_ENDPOINT", ""),
		S3Region:    get("S3_REGION", "us-east-1"),
		S3AccessKey: get("S3_ACCESS_KEY", ""),
		S3SecretKey: get("S3_SECRET_KEY", ""),
		S3Bucket:    get("S3_BUCKET", "wanderplan-exports"),
	}

	if cfg.PublicReadPolicy, err = planner.ParsePublicReadPolicy(get("PUBLIC_READ_POLICY", "")); err != nil {
		return nil, fmt.Errorf("PUBLIC_READ_POLICY: %w", err)
	}
	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"SHARE_DEFAULT_TTL", "0", &cfg.ShareDefaultTTL},
		{"EXPORT_TIMEOUT", "30s", &cfg.ExportTimeout},
		{"EXPORT_CACHE_TTL", "1h", &cfg.ExportCacheTTL},
	}
	for _, d := range durations {
		v, perr := time.ParseDuration(get(d.key, d.fallback))
		if perr != nil || v < 0 {
			return nil, fmt.Errorf("%s must be a non-negative duration like 30s or 24h", d.key)
		}
		*d.dst = v
	}
	limit, err := strconv.Atoi(get("SHARE_RATE_LIMIT", "60"))
	if err != nil || limit < 1 {
		return nil, fmt.Errorf("SHARE_RATE_LIMIT must be a positive integer")
	}
	cfg.ShareRateLimit = limit

	if cfg.Env == "production" {
		if cfg.DBPassword == defaultDBPassword {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if strings.HasPrefix(cfg.BaseURL, "http://localhost") {
			return nil, fmt.Errorf("APP_BASE_URL must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
