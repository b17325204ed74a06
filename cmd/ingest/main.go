package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanshika/shelfwise/internal/backend"
	"github.com/vanshika/shelfwise/internal/config"
	"github.com/vanshika/shelfwise/internal/generator"
	"github.com/vanshika/shelfwise/internal/logging"
	"github.com/vanshika/shelfwise/internal/service"
)

var (
	errMissingDataset = errors.New("dataset not found")
)

func main() {
	var (
		datasetDir  = flag.String("dataset-dir", "./seed-data", "Directory containing books.json, readers.json and borrows.json")
		booksPath   = flag.String("books", "", "Path to books.json (overrides dataset-dir)")
		readersPath = flag.String("readers", "", "Path to readers.json (overrides dataset-dir)")
		borrowsPath = flag.String("borrows", "", "Path to borrows.json (overrides dataset-dir)")
		workers     = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	paths, err := resolveDatasetPaths(*datasetDir, map[string]string{
		generator.BooksFile:   *booksPath,
		generator.ReadersFile: *readersPath,
		generator.BorrowsFile: *borrowsPath,
	})
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	var (
		books   []service.BookInput
		readers []service.ReaderInput
		borrows []service.BorrowInput
	)
	for name, target := range map[string]any{
		generator.BooksFile:   &books,
		generator.ReadersFile: &readers,
		generator.BorrowsFile: &borrows,
	} {
		if err := loadJSON(paths[name], target); err != nil {
			logger.Error("failed to load dataset file", "error", err, "path", paths[name])
			os.Exit(1)
		}
	}
	if len(books) == 0 || len(readers) == 0 {
		logger.Error("dataset has no books or no readers", "books", len(books), "readers", len(readers))
		os.Exit(1)
	}

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

	ingestor := service.NewBulkIngestor(service.NewLibraryService(store.Store), *workers)

	start := time.Now()
	logger.Info("ingesting books", "count", len(books), "workers", *workers)
	if err := ingestor.IngestBooks(ctx, books); err != nil {
		logger.Error("book ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingesting readers", "count", len(readers))
	if err := ingestor.IngestReaders(ctx, readers); err != nil {
		logger.Error("reader ingestion failed", "error", err)
		os.Exit(1)
	}

	// Borrows reference both endpoints, so they go last.
	logger.Info("ingesting borrows", "count", len(borrows))
	if err := ingestor.IngestBorrows(ctx, borrows); err != nil {
		logger.Error("borrow ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingestion complete",
		"duration", time.Since(start).String(),
		"books", len(books),
		"readers", len(readers),
		"borrows", len(borrows),
	)
}

// resolveDatasetPaths maps each dataset file name to an explicit override or
// to the same name inside baseDir.
func resolveDatasetPaths(baseDir string, overrides map[string]string) (map[string]string, error) {
	paths := make(map[string]string, len(overrides))
	for name, explicit := range overrides {
		if explicit != "" {
			if _, err := os.Stat(explicit); err != nil {
				return nil, fmt.Errorf("stat %s: %w", explicit, err)
			}
			paths[name] = explicit
			continue
		}
		path := filepath.Join(baseDir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", errMissingDataset, path)
		}
		paths[name] = path
	}
	return paths, nil
}

func loadJSON(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
