// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfwise_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Recommendation pipeline
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfwise_recommendation_duration_seconds",
			Help:    "End-to-end duration of a recommendation request",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_recommendation_errors_total",
			Help: "Failed recommendation requests by pipeline stage",
		},
		[]string{"stage"},
	)

	SubgraphNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfwise_subgraph_nodes",
			Help:    "Number of nodes in the per-request borrowing subgraph",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
	)

	SubgraphEdges = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfwise_subgraph_edges",
			Help:    "Number of edges in the per-request borrowing subgraph",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	PPRIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfwise_ppr_iterations",
			Help:    "Power iterations run per ranking, by terminal state",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 50, 75, 100},
		},
		[]string{"state"},
	)

	ExplanationPaths = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_explanation_paths_total",
			Help: "Explanation paths emitted by kind",
		},
		[]string{"kind"},
	)

	SkippedCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfwise_skipped_candidates_total",
			Help: "Ranked books dropped because their metadata was missing",
		},
	)

	// Store
	StoreReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_store_reads_total",
			Help: "Reads against the borrowing store by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelfwise_store_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveStoreRead counts a store read and its outcome.
func ObserveStoreRead(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StoreReadsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveStoreRejection counts a read refused by an open circuit breaker.
func ObserveStoreRejection(operation string) {
	StoreReadsTotal.WithLabelValues(operation, "rejected").Inc()
}
