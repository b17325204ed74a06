// Package backend opens the store selected by configuration and wires the
// read path the recommender uses.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vanshika/shelfwise/internal/config"
	"github.com/vanshika/shelfwise/internal/graph"
	"github.com/vanshika/shelfwise/internal/recommend"
	"github.com/vanshika/shelfwise/internal/repository"
	"github.com/vanshika/shelfwise/internal/service"
	"github.com/vanshika/shelfwise/internal/sqlstore"
)

// Store is implemented by the Cypher repository and the SQLite store.
type Store interface {
	service.LibraryRepository
	repository.LibraryReader
	Ping(ctx context.Context) error
}

// Backend holds an opened store and the reader handed to the recommender.
type Backend struct {
	Store Store
	// Reader is Store, wrapped in circuit breakers when they are enabled.
	Reader  recommend.Store
	Breaker *repository.ResilientReader
	closeFn func(ctx context.Context) error
}

// Open connects to the configured store driver.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var b Backend
	switch cfg.Store.Driver {
	case "sqlite":
		store, err := sqlstore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite store", "path", cfg.Store.SQLitePath)
		b.Store = store
		b.closeFn = func(context.Context) error { return store.Close() }
	case "neo4j", "":
		client, err := connectGraph(ctx, logger, cfg.Graph)
		if err != nil {
			return nil, err
		}
		b.Store = repository.New(client)
		b.closeFn = client.Close
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	b.Reader = b.Store
	if cfg.Breaker.Enabled {
		b.Breaker = repository.NewResilientReader(b.Store, repository.BreakerSettings{
			MinRequests:      cfg.Breaker.MinRequests,
			FailureRatio:     cfg.Breaker.FailureRatio,
			HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
		}, logger)
		b.Reader = b.Breaker
	}
	return &b, nil
}

// Close releases the underlying connection.
func (b *Backend) Close(ctx context.Context) error {
	if b == nil || b.closeFn == nil {
		return nil
	}
	return b.closeFn(ctx)
}

// Ping checks the store is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.Store.Ping(ctx)
}

// RecommenderConfig maps configuration onto recommender settings.
func RecommenderConfig(cfg config.RecommendConfig) recommend.Config {
	return recommend.Config{
		Builder: recommend.BuilderConfig{
			Lambda:           cfg.Lambda,
			BehaviorWeight:   cfg.BehaviorWeight,
			MaxCoBorrowers:   cfg.MaxCoBorrowers,
			FetchConcurrency: cfg.FetchConcurrency,
		},
		Params: recommend.Params{
			RestartProbability: cfg.RestartProbability,
			MaxIterations:      cfg.MaxIterations,
			TopN:               cfg.TopN,
			Tolerance:          cfg.Tolerance,
			MaxDuration:        cfg.MaxDuration,
		},
		RequestTimeout: cfg.RequestTimeout,
	}
}

// NewRecommendationService builds the recommender over b.Reader and wraps it
// for single and batch requests.
func (b *Backend) NewRecommendationService(cfg config.RecommendConfig, logger *slog.Logger) (*service.RecommendationService, error) {
	rec, err := recommend.New(b.Reader, RecommenderConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("build recommender: %w", err)
	}
	return service.NewRecommendationService(rec, cfg.BatchWorkers), nil
}

func connectGraph(ctx context.Context, logger *slog.Logger, cfg config.GraphConfig) (graph.Client, error) {
	if cfg.URI == "" {
		return nil, graph.ErrMissingURI
	}
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.URI,
		Database:       cfg.Database,
		Username:       cfg.Username,
		Password:       cfg.Password,
		MaxConnections: cfg.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	if err := graph.EnsureSchema(ctx, client); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("ensure graph schema: %w", err)
	}
	logger.Info("connected to graph", "uri", cfg.URI, "database", cfg.Database)
	return client, nil
}
