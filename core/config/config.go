package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Meta  MetaConfig
	Queue QueueConfig
	OTel  OTelConfig
	Env   string
	Port  string
}

// MetaConfig holds everything needed to talk to the Meta platform:
// the webhook verification token, the tracked account, and the Graph
// API credential used for context fetches and reply posts.
type MetaConfig struct {
	VerifyToken  string
	Username     string // tracked account handle, stored lower-cased
	AccessToken  string
	GraphBaseURL string
	AutoReply    bool
}

type QueueConfig struct {
	RedisURL    string
	Key         string
	PushTimeout time.Duration
	PopBlock    time.Duration
	DedupeTTL   time.Duration
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the webhook server
//   - .env.worker for the queue worker
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("MENTIONS_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:  getEnv("MENTIONS_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		Meta: MetaConfig{
			VerifyToken:  getEnv("META_VERIFY_TOKEN", ""),
			Username:     strings.ToLower(getEnv("IG_USERNAME", "")),
			AccessToken:  getEnv("IG_ACCESS_TOKEN", ""),
			GraphBaseURL: getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v19.0"),
			AutoReply:    getEnvBool("AUTO_REPLY_ENABLED", false),
		},
		Queue: QueueConfig{
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Key:         getEnv("QUEUE_KEY", "instagram:mentions"),
			PushTimeout: getEnvDuration("QUEUE_PUSH_TIMEOUT", 3*time.Second),
			PopBlock:    getEnvDuration("QUEUE_POP_BLOCK", 5*time.Second),
			DedupeTTL:   getEnvDuration("DEDUPE_TTL", 24*time.Hour),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "mentions"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	// Only the server answers the verification handshake; the worker never
	// sees a webhook and must not demand a token it cannot use.
	if serviceType == ServiceTypeServer && cfg.Meta.VerifyToken == "" {
		return Config{}, fmt.Errorf("META_VERIFY_TOKEN is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c MetaConfig) HasCredential() bool {
	return c.AccessToken != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
