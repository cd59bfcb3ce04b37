package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/api"
	"stealthcompany.com/archaeoseeker/internal/config"
	"stealthcompany.com/archaeoseeker/internal/metrics"
	"stealthcompany.com/archaeoseeker/internal/orchestrator"
	"stealthcompany.com/archaeoseeker/pkg/zerolog_config"
)

func main() {
	// Load .env from the parent or current directory
	config.LoadDotEnv()
	cfg := config.Load()

	// Set app prefix
	zerolog_config.SetAppPrefix("archaeoseeker-api")

	// Initialize zerolog with Elasticsearch
	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, "logs", cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logging")
	}

	log.Info().Msg("Starting archaeoseeker-api service")

	ctx, stop := orchestrator.NewSignalHandler().Context(context.Background())
	defer stop()

	// Start system metrics collection
	metrics.StartSystemMetrics(ctx, 15*time.Second)

	services, err := orchestrator.NewServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	server := api.NewServer(services.Catalog, services.Dashboard, services.Auth, services.Limiter, cfg.PageSize, cfg.StoreBackend).
		WithTrustedProxies(services.Proxies)

	httpServer := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           server.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("port", cfg.APIPort).
			Msg("Server starting")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().
				Err(err).
				Msg("Failed to start server")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")

	// Shutdown server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Closing backends...")
	if err := services.Close(); err != nil {
		log.Warn().Err(err).Msg("Backends did not close cleanly")
	}

	log.Info().Msg("API service shutdown complete")
}
