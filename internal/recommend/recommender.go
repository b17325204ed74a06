package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vanshika/shelfwise/internal/domain"
	"github.com/vanshika/shelfwise/internal/metrics"
)

// Store is everything the recommender reads.
type Store interface {
	HistoryReader
	MetadataReader
}

// Config bundles the construction-time settings of a Recommender.
type Config struct {
	Builder BuilderConfig
	Params  Params
	// RequestTimeout bounds the whole Recommend call, store reads included.
	// Zero disables it.
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Builder:        DefaultBuilderConfig(),
		Params:         DefaultParams(),
		RequestTimeout: 5 * time.Second,
	}
}

// Recommender wires the subgraph builder, the ranking engine and the explainer.
type Recommender struct {
	builder   *Builder
	engine    *Engine
	explainer *Explainer
	cfg       Config
	logger    *slog.Logger
}

// New validates cfg.Params and returns a Recommender reading from store.
func New(store Store, cfg Config, logger *slog.Logger) (*Recommender, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "recommender")
	return &Recommender{
		builder:   NewBuilder(store, cfg.Builder, logger),
		engine:    NewEngine(),
		explainer: NewExplainer(store),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// WithClock overrides the clock used for edge decay.
func (r *Recommender) WithClock(nowFn func() time.Time) {
	r.builder.WithClock(nowFn)
}

// Recommend returns up to topN explained books for userID. A non-positive
// topN falls back to the configured default.
func (r *Recommender) Recommend(ctx context.Context, userID string, topN int) ([]domain.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	}()

	if r.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()
	}

	params := r.cfg.Params
	if topN > 0 {
		params.TopN = topN
	}

	g, err := r.builder.Build(ctx, userID)
	if err != nil {
		metrics.RecommendationErrors.WithLabelValues("build").Inc()
		return nil, err
	}
	stats := g.Stats()
	metrics.SubgraphNodes.Observe(float64(stats.Nodes))
	metrics.SubgraphEdges.Observe(float64(stats.Edges))
	if stats.Nodes <= 1 {
		r.logger.Info("no borrowing history", "userId", userID)
		return []domain.Recommendation{}, nil
	}
	r.logger.Debug("subgraph built", "userId", userID, "nodes", stats.Nodes, "edges", stats.Edges, "dangling", stats.Dangling)

	res, err := r.engine.Run(ctx, userID, g, params)
	if err != nil {
		metrics.RecommendationErrors.WithLabelValues("rank").Inc()
		return nil, err
	}
	metrics.PPRIterations.WithLabelValues(string(res.State)).Observe(float64(res.Iterations))
	r.logger.Debug("ranking finished", "userId", userID, "state", res.State, "iterations", res.Iterations, "residual", res.Residual)

	candidates := res.TopBooks(g, params.TopN)
	recs, skipped, err := r.explainer.ExplainAll(ctx, userID, g, candidates)
	if err != nil {
		metrics.RecommendationErrors.WithLabelValues("explain").Inc()
		return nil, fmt.Errorf("explain recommendations for %s: %w", userID, err)
	}
	if len(skipped) > 0 {
		metrics.SkippedCandidates.Add(float64(len(skipped)))
		r.logger.Warn("candidates without metadata dropped", "userId", userID, "books", skipped)
	}
	for _, rec := range recs {
		for _, p := range rec.Paths {
			metrics.ExplanationPaths.WithLabelValues(string(p.Kind)).Inc()
		}
	}
	return recs, nil
}
