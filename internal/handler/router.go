package handler

import (
	"net/http"

	"design-studio-server/internal/config"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(container *config.Container) http.Handler {
	router := mux.NewRouter()
	logger := container.GetLogger()

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"design-studio-server"}`))
	}).Methods("GET")

	// Initialize handlers
	authHandler := NewAuthHandler(logger)
	entitlementHandler := NewEntitlementHandler(container.EntitlementService, logger)
	designHandler := NewDesignHandler(container.DesignService, logger)
	webhookHandler := NewWebhookHandler(
		container.EntitlementService,
		container.ReplayCache,
		container.Config.GetRevenueCatWebhookSecret(),
		logger,
	)

	// Billing provider webhook (authenticated by shared secret, not user token)
	router.HandleFunc("/webhooks/revenuecat", webhookHandler.HandleRevenueCat).Methods("POST")

	// Middleware
	authMiddleware := AuthMiddleware(container.AuthService, logger)
	quotaGate := QuotaGateMiddleware(container.QuotaService, logger)

	// Protected routes (require authentication)
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware)

	// Auth routes (protected)
	protected.HandleFunc("/auth/profile", authHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/auth/validate", authHandler.ValidateToken).Methods("GET")

	// Entitlement routes (protected)
	protected.HandleFunc("/entitlement/status", entitlementHandler.GetStatus).Methods("GET")
	protected.HandleFunc("/entitlement/tier", entitlementHandler.UpdateTier).Methods("POST")

	// Metered routes (protected + quota gated)
	metered := protected.PathPrefix("/designs").Subrouter()
	metered.Use(quotaGate)
	metered.HandleFunc("/decorate", designHandler.Decorate).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:8081", // Expo dev server
			"http://localhost:19006",
			"http://localhost:3000",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"X-Tokens-Remaining",
			"X-Tokens-Reset-Date",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
