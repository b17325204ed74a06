package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/vanshika/shelfwise/internal/backend"
	"github.com/vanshika/shelfwise/internal/config"
	"github.com/vanshika/shelfwise/internal/logging"
)

func main() {
	var (
		users  = flag.String("users", "", "comma-separated reader IDs to recommend for")
		limit  = flag.Int("limit", 0, "maximum recommendations per reader (0 uses RECOMMEND_TOP_N)")
		pretty = flag.Bool("pretty", false, "indent JSON output")
	)
	flag.Parse()

	ids := splitIDs(*users)
	if len(ids) == 0 {
		ids = splitIDs(strings.Join(flag.Args(), ","))
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "usage: recommend [-limit n] [-pretty] -users U1,U2 | U1 U2 ...")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging).With("component", "recommend-cli")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	svc, err := store.NewRecommendationService(cfg.Recommend, logger)
	if err != nil {
		logger.Error("invalid recommender configuration", "error", err)
		os.Exit(1)
	}

	var (
		output  any
		exitErr error
	)
	if len(ids) == 1 {
		output, exitErr = svc.Recommend(ctx, ids[0], *limit)
	} else {
		// Partial results are still printed when some readers fail.
		output, exitErr = svc.RecommendBatch(ctx, ids, *limit)
	}

	encoder := json.NewEncoder(os.Stdout)
	if *pretty {
		encoder.SetIndent("", "  ")
	}
	if output != nil {
		if err := encoder.Encode(output); err != nil {
			logger.Error("failed to write output", "error", err)
			os.Exit(1)
		}
	}
	if exitErr != nil {
		logger.Error("recommendation failed", "error", exitErr)
		os.Exit(1)
	}
}

func splitIDs(csv string) []string {
	var ids []string
	for _, part := range strings.Split(csv, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
