// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSweepInterval() time.Duration
}

// CompletionConfig provides settings for the LLM completion service.
type CompletionConfig interface {
	GetCompletionAPIKey() string
	GetCompletionBaseURL() string
	GetCompletionModel() string
	GetCompletionMaxTokens() int
	GetCompletionTemperature() float64
	GetCompletionRequestsPerSecond() float64
	IsCompletionEnabled() bool
}

// NotifyConfig provides settings for escalation notification e-mail.
type NotifyConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetNotifyFromName() string
	GetNotifyFromAddress() string
	IsNotifyEnabled() bool
}

// TuningConfig locates the optional engine tuning override file.
type TuningConfig interface {
	GetTuningFile() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	SweepInterval    time.Duration

	CompletionAPIKey            string
	CompletionBaseURL           string
	CompletionModel             string
	CompletionMaxTokens         int
	CompletionTemperature       float64
	CompletionRequestsPerSecond float64

	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	NotifyFromName    string
	NotifyFromAddress string

	TuningFile string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool       { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string       { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int        { return c.AsynqConcurrency }
func (c *Config) GetSweepInterval() time.Duration { return c.SweepInterval }

// CompletionConfig implementation
func (c *Config) GetCompletionAPIKey() string             { return c.CompletionAPIKey }
func (c *Config) GetCompletionBaseURL() string            { return c.CompletionBaseURL }
func (c *Config) GetCompletionModel() string              { return c.CompletionModel }
func (c *Config) GetCompletionMaxTokens() int             { return c.CompletionMaxTokens }
func (c *Config) GetCompletionTemperature() float64       { return c.CompletionTemperature }
func (c *Config) GetCompletionRequestsPerSecond() float64 { return c.CompletionRequestsPerSecond }
func (c *Config) IsCompletionEnabled() bool               { return c.CompletionAPIKey != "" }

// NotifyConfig implementation
func (c *Config) GetSMTPHost() string          { return c.SMTPHost }
func (c *Config) GetSMTPPort() int             { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string      { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string      { return c.SMTPPassword }
func (c *Config) GetNotifyFromName() string    { return c.NotifyFromName }
func (c *Config) GetNotifyFromAddress() string { return c.NotifyFromAddress }
func (c *Config) IsNotifyEnabled() bool        { return c.SMTPHost != "" }

// TuningConfig implementation
func (c *Config) GetTuningFile() string { return c.TuningFile }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, with .env as a fallback
// for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:    getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:     splitAndTrim(os.Getenv("CORS_ORIGINS")),
		CORSAllowCreds:  getEnvBool("CORS_ALLOW_CREDENTIALS", true),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),

		CompletionAPIKey:            os.Getenv("COMPLETION_API_KEY"),
		CompletionBaseURL:           getEnv("COMPLETION_BASE_URL", "https://api.moonshot.ai/v1"),
		CompletionModel:             getEnv("COMPLETION_MODEL", "kimi-k2-turbo-preview"),
		CompletionMaxTokens:         getEnvInt("COMPLETION_MAX_TOKENS", 1024),
		CompletionTemperature:       getEnvFloat("COMPLETION_TEMPERATURE", 0.3),
		CompletionRequestsPerSecond: getEnvFloat("COMPLETION_RPS", 2.0),

		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		NotifyFromName:    getEnv("NOTIFY_FROM_NAME", "Salesflow"),
		NotifyFromAddress: getEnv("NOTIFY_FROM_ADDRESS", "no-reply@salesflow.local"),

		TuningFile: os.Getenv("ENGINE_TUNING_FILE"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
