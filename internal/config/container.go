package config

import (
	"context"
	"time"

	"design-studio-server/internal/domain"
	"design-studio-server/internal/repository"
	"design-studio-server/internal/service"
	"design-studio-server/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const webhookReplayTTL = 24 * time.Hour

// Container holds all application dependencies
type Container struct {
	Config                domain.Config
	Logger                domain.Logger
	SupabaseClient        domain.SupabaseClient
	EntitlementRepository domain.EntitlementRepository
	BillingClient         domain.BillingClient
	ReplayCache           domain.ReplayCache
	AuthService           domain.AuthService
	EntitlementService    domain.EntitlementService
	QuotaService          domain.QuotaService
	DesignService         domain.DesignService
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())

	// Initialize Supabase client
	supabaseClient := repository.NewSupabaseClient(config, appLogger)
	if err := supabaseClient.Initialize(); err != nil {
		appLogger.Warn("Supabase client not initialized, entitlement store unavailable", "error", err)
	}

	// Repositories and external clients
	entitlementRepo := repository.NewSupabaseEntitlementRepository(supabaseClient, appLogger)
	billingClient := repository.NewRevenueCatClient(config, appLogger)
	replayCache := newReplayCache(config, appLogger)

	// Services
	authService := service.NewAuthService(supabaseClient, appLogger)
	entitlementService := service.NewEntitlementService(entitlementRepo, billingClient, appLogger)
	quotaService := service.NewQuotaService(entitlementRepo, entitlementService, appLogger)

	var designService domain.DesignService
	if svc, err := service.NewDesignService(context.Background(), config, appLogger); err != nil {
		appLogger.Warn("Design service not configured", "error", err)
	} else {
		designService = svc
	}

	return &Container{
		Config:                config,
		Logger:                appLogger,
		SupabaseClient:        supabaseClient,
		EntitlementRepository: entitlementRepo,
		BillingClient:         billingClient,
		ReplayCache:           replayCache,
		AuthService:           authService,
		EntitlementService:    entitlementService,
		QuotaService:          quotaService,
		DesignService:         designService,
	}
}

// newReplayCache prefers Redis (shared across replicas) and falls back to the
// in-memory cache for single-node deployments.
func newReplayCache(config domain.Config, appLogger domain.Logger) domain.ReplayCache {
	addr := config.GetRedisAddr()
	if addr == "" {
		return repository.NewMemoryReplayCache(webhookReplayTTL)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	appLogger.Info("Using Redis webhook replay cache", "addr", addr)
	return repository.NewRedisReplayCache(rdb, webhookReplayTTL)
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

// GetSupabaseClient returns the Supabase client instance
func (c *Container) GetSupabaseClient() domain.SupabaseClient {
	return c.SupabaseClient
}

// GetEntitlementService returns the entitlement service instance
func (c *Container) GetEntitlementService() domain.EntitlementService {
	return c.EntitlementService
}

// GetQuotaService returns the quota service instance
func (c *Container) GetQuotaService() domain.QuotaService {
	return c.QuotaService
}
