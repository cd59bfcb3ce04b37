package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/config"
	"stealthcompany.com/archaeoseeker/internal/ingest"
	"stealthcompany.com/archaeoseeker/internal/orchestrator"
	"stealthcompany.com/archaeoseeker/pkg/zerolog_config"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	zerolog_config.SetAppPrefix("archaeoseeker-ingest")
	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, "logs", cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logging")
	}

	log.Info().Msg("Starting archaeoseeker-ingest service")

	// The bundle comes from the first argument or CATALOG_BUNDLE
	source := os.Getenv("CATALOG_BUNDLE")
	if len(os.Args) > 1 {
		source = os.Args[1]
	}
	if source == "" {
		log.Fatal().Msg("No bundle given: pass a file or URL, or set CATALOG_BUNDLE")
	}

	ctx, stop := orchestrator.NewSignalHandler().Context(context.Background())
	defer stop()

	services, err := orchestrator.NewServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	client := ingest.NewClient(30*time.Second, services.Catalog, services.Store)
	result, err := client.Ingest(ctx, source)
	if err != nil {
		log.Error().Err(err).Msg("Failed to ingest catalog bundle")
		services.Close()
		os.Exit(1)
	}

	log.Info().
		Int("items_stored", result.Items.Stored).
		Int("items_failed", result.Items.Failed).
		Int("requests_stored", result.Requests.Stored).
		Int("requests_failed", result.Requests.Failed).
		Msg("Catalog ingestion completed successfully")
}
