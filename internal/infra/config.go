package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	RegistryBackend string
	RegistryTTL     time.Duration
	DatabaseURL     string
	RedisURL        string

	PikaAPIKey    string
	PikaBaseURL   string
	RunwayAPIKey  string
	RunwayBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string

	YouTubeUploadURL   string
	YouTubeAccessToken string

	ProviderTimeout    time.Duration
	WorkerPollInterval time.Duration

	CORSAllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Registry backends selectable via REGISTRY_BACKEND.
const (
	RegistryBackendMemory   = "memory"
	RegistryBackendRedis    = "redis"
	RegistryBackendPostgres = "postgres"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		RegistryBackend: strings.ToLower(getEnv("REGISTRY_BACKEND", RegistryBackendMemory)),
		RegistryTTL:     time.Second * time.Duration(getEnvInt("REGISTRY_TTL_SECONDS", 86400)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),

		PikaAPIKey:    os.Getenv("PIKA_API_KEY"),
		PikaBaseURL:   os.Getenv("PIKA_BASE_URL"),
		RunwayAPIKey:  os.Getenv("RUNWAY_API_KEY"),
		RunwayBaseURL: os.Getenv("RUNWAY_BASE_URL"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),

		YouTubeUploadURL:   os.Getenv("YOUTUBE_UPLOAD_URL"),
		YouTubeAccessToken: os.Getenv("YOUTUBE_ACCESS_TOKEN"),

		ProviderTimeout:    time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30)),
		WorkerPollInterval: time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 30)),

		CORSAllowedOrigins: splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	switch cfg.RegistryBackend {
	case RegistryBackendMemory:
	case RegistryBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when REGISTRY_BACKEND=redis")
		}
	case RegistryBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when REGISTRY_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown REGISTRY_BACKEND %q", cfg.RegistryBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitAndTrim(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
