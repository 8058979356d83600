package config

import (
	"testing"
	"time"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("SUPABASE_SERVICE_KEY", "")
	t.Setenv("REVENUECAT_BASE_URL", "")
	t.Setenv("REVENUECAT_API_KEY", "")
	t.Setenv("REVENUECAT_WEBHOOK_SECRET", "")
	t.Setenv("REVENUECAT_TIMEOUT_SECONDS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SWEEP_SCHEDULE", "")
	t.Setenv("GCP_PROJECT_ID", "")
	t.Setenv("GCP_LOCATION", "")

	cfg := NewConfig()

	if cfg.GetServerPort() != "8080" {
		t.Fatalf("expected default server port 8080, got %s", cfg.GetServerPort())
	}
	if cfg.GetLogLevel() != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.GetLogLevel())
	}
	if cfg.GetRevenueCatTimeout() != 4*time.Second {
		t.Fatalf("expected default billing timeout 4s, got %s", cfg.GetRevenueCatTimeout())
	}
	if cfg.GetSweepSchedule() != "@hourly" {
		t.Fatalf("expected default sweep schedule @hourly, got %s", cfg.GetSweepSchedule())
	}
	if cfg.GetGCPLocation() != "us-central1" {
		t.Fatalf("expected default gcp location us-central1, got %s", cfg.GetGCPLocation())
	}
	if cfg.GetRevenueCatBaseURL() != "" {
		t.Fatalf("expected empty base url default, got %s", cfg.GetRevenueCatBaseURL())
	}
	if cfg.GetRedisAddr() != "" {
		t.Fatalf("expected empty redis addr default, got %s", cfg.GetRedisAddr())
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SUPABASE_URL", "http://localhost:54321")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("REVENUECAT_BASE_URL", "http://localhost:9100/v1")
	t.Setenv("REVENUECAT_API_KEY", "sk_test")
	t.Setenv("REVENUECAT_WEBHOOK_SECRET", "whsec")
	t.Setenv("REVENUECAT_TIMEOUT_SECONDS", "10")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SWEEP_SCHEDULE", "@every 30m")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9090" {
		t.Fatalf("expected server port 9090, got %s", cfg.GetServerPort())
	}
	if cfg.GetLogLevel() != "debug" {
		t.Fatalf("expected log level debug, got %s", cfg.GetLogLevel())
	}
	if cfg.GetSupabaseURL() != "http://localhost:54321" {
		t.Fatalf("expected supabase url http://localhost:54321, got %s", cfg.GetSupabaseURL())
	}
	if cfg.GetSupabaseServiceKey() != "service-key" {
		t.Fatalf("expected supabase service key service-key, got %s", cfg.GetSupabaseServiceKey())
	}
	if cfg.GetRevenueCatBaseURL() != "http://localhost:9100/v1" {
		t.Fatalf("expected base url override, got %s", cfg.GetRevenueCatBaseURL())
	}
	if cfg.GetRevenueCatAPIKey() != "sk_test" {
		t.Fatalf("expected api key sk_test, got %s", cfg.GetRevenueCatAPIKey())
	}
	if cfg.GetRevenueCatWebhookSecret() != "whsec" {
		t.Fatalf("expected webhook secret whsec, got %s", cfg.GetRevenueCatWebhookSecret())
	}
	if cfg.GetRevenueCatTimeout() != 10*time.Second {
		t.Fatalf("expected billing timeout 10s, got %s", cfg.GetRevenueCatTimeout())
	}
	if cfg.GetRedisAddr() != "localhost:6379" {
		t.Fatalf("expected redis addr localhost:6379, got %s", cfg.GetRedisAddr())
	}
	if cfg.GetSweepSchedule() != "@every 30m" {
		t.Fatalf("expected sweep schedule @every 30m, got %s", cfg.GetSweepSchedule())
	}
}

func TestNewConfig_Fallbacks(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("REVENUECAT_TIMEOUT_SECONDS", "not-a-number")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9091" {
		t.Fatalf("expected server port 9091, got %s", cfg.GetServerPort())
	}
	if cfg.GetRevenueCatTimeout() != 4*time.Second {
		t.Fatalf("expected default billing timeout 4s, got %s", cfg.GetRevenueCatTimeout())
	}
}
