package config

import (
	"os"
	"strconv"
	"time"

	"design-studio-server/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort              string
	LogLevel                string
	SupabaseURL             string
	SupabaseKey             string
	SupabaseServiceKey      string
	RevenueCatBaseURL       string
	RevenueCatAPIKey        string
	RevenueCatWebhookSecret string
	RevenueCatTimeout       time.Duration
	RedisAddr               string
	SweepSchedule           string
	GCPProjectID            string
	GCPLocation             string
	ImageModel              string
	TextModel               string
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:              getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		LogLevel:                getEnvOrDefault("LOG_LEVEL", "info"),
		SupabaseURL:             getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:             getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey:      getEnvOrDefault("SUPABASE_SERVICE_KEY", ""),
		RevenueCatBaseURL:       getEnvOrDefault("REVENUECAT_BASE_URL", ""),
		RevenueCatAPIKey:        getEnvOrDefault("REVENUECAT_API_KEY", ""),
		RevenueCatWebhookSecret: getEnvOrDefault("REVENUECAT_WEBHOOK_SECRET", ""),
		RevenueCatTimeout:       time.Duration(getEnvIntOrDefault("REVENUECAT_TIMEOUT_SECONDS", 4)) * time.Second,
		RedisAddr:               getEnvOrDefault("REDIS_ADDR", ""),
		SweepSchedule:           getEnvOrDefault("SWEEP_SCHEDULE", "@hourly"),
		GCPProjectID:            getEnvOrDefault("GCP_PROJECT_ID", ""),
		GCPLocation:             getEnvOrDefault("GCP_LOCATION", "us-central1"),
		ImageModel:              getEnvOrDefault("IMAGE_MODEL", "gemini-2.0-flash-exp"),
		TextModel:               getEnvOrDefault("TEXT_MODEL", "gemini-2.0-flash"),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetSupabaseServiceKey returns the Supabase service-role key
func (c *AppConfig) GetSupabaseServiceKey() string {
	return c.SupabaseServiceKey
}

// GetRevenueCatBaseURL returns the RevenueCat API base URL override
func (c *AppConfig) GetRevenueCatBaseURL() string {
	return c.RevenueCatBaseURL
}

// GetRevenueCatAPIKey returns the RevenueCat secret API key
func (c *AppConfig) GetRevenueCatAPIKey() string {
	return c.RevenueCatAPIKey
}

// GetRevenueCatWebhookSecret returns the shared webhook auth secret
func (c *AppConfig) GetRevenueCatWebhookSecret() string {
	return c.RevenueCatWebhookSecret
}

// GetRevenueCatTimeout returns the billing provider request timeout
func (c *AppConfig) GetRevenueCatTimeout() time.Duration {
	return c.RevenueCatTimeout
}

// GetRedisAddr returns the Redis address for the webhook replay cache
func (c *AppConfig) GetRedisAddr() string {
	return c.RedisAddr
}

// GetSweepSchedule returns the cron spec for the expired-subscription sweep
func (c *AppConfig) GetSweepSchedule() string {
	return c.SweepSchedule
}

// GetGCPProjectID returns the GCP project used for generation
func (c *AppConfig) GetGCPProjectID() string {
	return c.GCPProjectID
}

// GetGCPLocation returns the GCP region used for generation
func (c *AppConfig) GetGCPLocation() string {
	return c.GCPLocation
}

// GetImageModel returns the image generation model name
func (c *AppConfig) GetImageModel() string {
	return c.ImageModel
}

// GetTextModel returns the text analysis model name
func (c *AppConfig) GetTextModel() string {
	return c.TextModel
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
