package main

import (
	"context"
	"time"

	"leadbox/internal/config"
	"leadbox/internal/server"
	"leadbox/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	// Connect to the record store; the inbox is nothing without it
	sqlStore, err := store.NewSQLStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Record store connection failed")
	}
	defer func() { _ = sqlStore.Close() }()

	logger.Info().Msg("Record store connection established")

	// Create and initialize server
	srv := server.New(cfg, sqlStore, logger)
	srv.Initialize()

	// Load the initial conversation view; requests can still trigger a
	// refresh later, so a failed first load only warns
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.Service().Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("Initial conversation load failed")
	}
	cancel()

	// Start server
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}
