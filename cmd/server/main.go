package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"design-studio-server/internal/config"
	"design-studio-server/internal/handler"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// Wiring
	container := config.NewContainer()

	// Periodic sweep of lapsed paid subscriptions. Webhooks usually get there
	// first; the sweep catches deliveries that never arrived.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(container.Config.GetSweepSchedule(), func() {
		if _, err := container.EntitlementService.DowngradeExpired(context.Background()); err != nil {
			container.Logger.Error("Expired subscription sweep failed", err)
		}
	}); err != nil {
		container.Logger.Error("Invalid sweep schedule", err, "schedule", container.Config.GetSweepSchedule())
		os.Exit(1)
	}
	sweeper.Start()

	// Router
	router := handler.NewRouter(container)

	// start server
	server := &http.Server{
		Addr:    ":" + container.Config.GetServerPort(),
		Handler: router,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	<-sweeper.Stop().Done()
	_ = server.Close()

	container.Logger.Info("Server exited")
}
