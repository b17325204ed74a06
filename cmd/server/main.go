package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanshika/shelfwise/internal/backend"
	"github.com/vanshika/shelfwise/internal/config"
	"github.com/vanshika/shelfwise/internal/logging"
	"github.com/vanshika/shelfwise/internal/server"
	"github.com/vanshika/shelfwise/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	store, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("closing store failed", "error", err)
		}
	}()

	recommendations, err := store.NewRecommendationService(cfg.Recommend, logger)
	if err != nil {
		logger.Error("invalid recommender configuration", "error", err)
		os.Exit(1)
	}
	library := service.NewLibraryService(store.Store)
	apiHandlers := server.NewAPIHandlers(logger, library, recommendations)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:             server.StoreHealthService{Store: store},
		API:                apiHandlers,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		AllowCredentials:   true,
		MetricsEnabled:     cfg.HTTP.MetricsEnabled,
		RecommendRateLimit: cfg.HTTP.RateLimit,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
