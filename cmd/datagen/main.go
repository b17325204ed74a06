package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanshika/shelfwise/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		readers     = flag.Int("readers", cfg.NumReaders, "number of library members to generate")
		books       = flag.Int("books", cfg.NumBooks, "number of catalogue entries to generate")
		borrows     = flag.Int("borrows", cfg.NumBorrows, "number of borrow events to generate")
		genres      = flag.Int("genres", cfg.Genres, "number of genre communities")
		affinity    = flag.Float64("genre-affinity", cfg.GenreAffinity, "probability a borrow comes from the reader's favourite genre")
		skew        = flag.Float64("popularity-skew", cfg.PopularitySkew, "zipf exponent for book popularity (must be > 1)")
		historyDays = flag.Int("history-days", cfg.HistoryDays, "how many days of borrowing history to spread events over")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir   = flag.String("output-dir", "data", "directory to write books.json, readers.json and borrows.json")
		writeStdout = flag.Bool("stdout", false, "write combined dataset to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumReaders:     *readers,
		NumBooks:       *books,
		NumBorrows:     *borrows,
		Genres:         *genres,
		GenreAffinity:  clampProbability(*affinity),
		PopularitySkew: *skew,
		HistoryDays:    *historyDays,
		Seed:           *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d books, %d readers and %d borrows into %s\n",
		len(dataset.Books), len(dataset.Readers), len(dataset.Borrows), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
