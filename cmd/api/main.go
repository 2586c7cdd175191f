// Command api is the Prekick Data API server: queue visibility, snapshot
// downloads, index lookups, and a token-protected manual collection trigger.
//
// Usage:
//
//	prekick-api
//	API_PORT=8080 prekick-api

// @title Prekick Data API
// @version 1.0.0
// @description Pre-kickoff betting odds snapshot collection: queue visibility, snapshot downloads, index lookups, and a manual collection trigger.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Prekick
// @license.name MIT
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/prekick-data/internal/api"
	"github.com/albapepper/prekick-data/internal/blob"
	"github.com/albapepper/prekick-data/internal/config"
	"github.com/albapepper/prekick-data/internal/db"
	"github.com/albapepper/prekick-data/internal/index"
	"github.com/albapepper/prekick-data/internal/maintenance"
	"github.com/albapepper/prekick-data/internal/pipeline"
	"github.com/albapepper/prekick-data/internal/provider/oddsapi"
	"github.com/albapepper/prekick-data/internal/queue"
	"github.com/albapepper/prekick-data/internal/snapshot"

	_ "github.com/albapepper/prekick-data/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Open snapshot storage
	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open snapshot storage", "error", err)
		os.Exit(1)
	}
	defer blobs.Close()
	logger.Info("Snapshot storage ready", "backend", cfg.StorageBackend)

	// Wire the collection stack for the manual trigger endpoint
	jobs := queue.NewPostgres(pool.Pool)
	store := snapshot.NewStore(blobs, logger)
	indexer := index.NewBuilder(store, logger)
	oddsfeed := oddsapi.New(cfg.OddsAPIBaseURL, cfg.OddsAPIKey, cfg.ProviderRPM, cfg.ProviderTimeout, logger)
	orch := pipeline.New(cfg, jobs, store, indexer, oddsfeed, nil, logger)

	// Start background maintenance tickers (lease sweep, terminal row cleanup)
	go maintenance.Start(ctx, jobs, maintenance.DefaultConfig(cfg.CleanupDays), logger)

	// Create router
	router := api.NewRouter(pool, jobs, store, indexer, orch, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Prekick Data API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
