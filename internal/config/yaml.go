package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileConfig is the structure of the optional config.yaml file. Every
// value maps onto one environment variable; the environment wins.
type FileConfig struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		Env     string `yaml:"env"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DB       string `yaml:"db"`
	} `yaml:"postgres"`

	Valkey struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
	} `yaml:"valkey"`

	AI struct {
		ServiceURL string       `yaml:"service_url"`
		Provider   string       `yaml:"provider"`
		OpenAI     fileProvider `yaml:"openai"`
		Claude     fileProvider `yaml:"claude"`
		Mistral    fileProvider `yaml:"mistral"`
		Gemini     fileProvider `yaml:"gemini"`
	} `yaml:"ai"`

	S3 struct {
		Endpoint  string `yaml:"endpoint"`
		Region    string `yaml:"region"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
	} `yaml:"s3"`

	Planner struct {
		PublicReadPolicy string `yaml:"public_read_policy"`
		ShareDefaultTTL  string `yaml:"share_default_ttl"`
		ExportTimeout    string `yaml:"export_timeout"`
		ExportCacheTTL   string `yaml:"export_cache_ttl"`
		ShareRateLimit   int    `yaml:"share_rate_limit"`
	} `yaml:"planner"`
}

type fileProvider struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// LoadFile loads the YAML configuration file at path.
// Returns nil without error if the file doesn't exist.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// values flattens the file into environment variable names. Unset fields
// are left out.
func (f *FileConfig) values() map[string]string {
	if f == nil {
		return nil
	}
	itoa := func(n int) string {
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	}
	return map[string]string{
		"APP_HOST":     f.Server.Host,
		"APP_PORT":     itoa(f.Server.Port),
		"APP_ENV":      f.Server.Env,
		"APP_BASE_URL": f.Server.BaseURL,

		"POSTGRES_HOST":     f.Postgres.Host,
		"POSTGRES_PORT":     itoa(f.Postgres.Port),
		"POSTGRES_USER":     f.Postgres.User,
		"POSTGRES_PASSWORD": f.Postgres.Password,
		"POSTGRES_DB":       f.Postgres.DB,

		"VALKEY_HOST":     f.Valkey.Host,
		"VALKEY_PORT":     itoa(f.Valkey.Port),
		"VALKEY_PASSWORD": f.Valkey.Password,

		"AI_SERVICE_URL":   f.AI.ServiceURL,
		"AI_PROVIDER":      f.AI.Provider,
		"OPENAI_API_KEY":   f.AI.OpenAI.APIKey,
		"OPENAI_MODEL":     f.AI.OpenAI.Model,
		"OPENAI_BASE_URL":  f.AI.OpenAI.BaseURL,
		"CLAUDE_API_KEY":   f.AI.Claude.APIKey,
		"CLAUDE_MODEL":     f.AI.Claude.Model,
		"CLAUDE_BASE_URL":  f.AI.Claude.BaseURL,
		"MISTRAL_API_KEY":  f.AI.Mistral.APIKey,
		"MISTRAL_MODEL":    f.AI.Mistral.Model,
		"MISTRAL_BASE_URL": f.AI.Mistral.BaseURL,
		"GEMINI_API_KEY":   f.AI.Gemini.APIKey,
		"GEMINI_MODEL":     f.AI.Gemini.Model,
		"GEMINI_BASE_URL":  f.AI.Gemini.BaseURL,

		"S3_ENDPOINT":   f.S3.Endpoint,
		"S3_REGION":     f.S3.Region,
		"S3_ACCESS_KEY": f.S3.AccessKey,
		"S3_SECRET_KEY": f.S3.SecretKey,
		"S3_BUCKET":     f.S3.Bucket,

		"PUBLIC_READ_POLICY": f.Planner.PublicReadPolicy,
		"SHARE_DEFAULT_TTL":  f.Planner.ShareDefaultTTL,
		"EXPORT_TIMEOUT":     f.Planner.ExportTimeout,
		"EXPORT_CACHE_TTL":   f.Planner.ExportCacheTTL,
		"SHARE_RATE_LIMIT":   itoa(f.Planner.ShareRateLimit),
	}
}
