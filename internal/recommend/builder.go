package recommend

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/shelfwise/internal/cograph"
	"github.com/vanshika/shelfwise/internal/domain"
)

// BuilderConfig controls how borrow events become edge weights and how far the
// ego network may grow.
type BuilderConfig struct {
	// Lambda is the per-day exponential decay rate applied to borrow events.
	Lambda float64

	// BehaviorWeight is the weight of a borrow event made right now.
	BehaviorWeight float64

	// MaxCoBorrowers caps how many distinct co-borrowers are expanded.
	// Zero means unlimited.
	MaxCoBorrowers int

	// FetchConcurrency bounds the number of concurrent store reads.
	FetchConcurrency int
}

// DefaultBuilderConfig returns the production defaults.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		Lambda:           0.01,
		BehaviorWeight:   1.0,
		MaxCoBorrowers:   0,
		FetchConcurrency: 4,
	}
}

// Builder constructs the ego network around one reader: the books they borrowed,
// the readers who borrowed those books, and everything those readers borrowed.
type Builder struct {
	history HistoryReader
	cfg     BuilderConfig
	logger  *slog.Logger
	nowFn   func() time.Time
}

// NewBuilder returns a Builder. Non-positive settings fall back to defaults.
func NewBuilder(history HistoryReader, cfg BuilderConfig, logger *slog.Logger) *Builder {
	defaults := DefaultBuilderConfig()
	if cfg.Lambda <= 0 {
		cfg.Lambda = defaults.Lambda
	}
	if cfg.BehaviorWeight <= 0 {
		cfg.BehaviorWeight = defaults.BehaviorWeight
	}
	if cfg.MaxCoBorrowers < 0 {
		cfg.MaxCoBorrowers = 0
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = defaults.FetchConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		history: history,
		cfg:     cfg,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (b *Builder) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		b.nowFn = nowFn
	}
}

// DecayWeight returns behaviorWeight * e^(-lambda * days since borrowedAt).
// Borrows dated in the future are treated as happening now.
func DecayWeight(behaviorWeight, lambda float64, borrowedAt, now time.Time) float64 {
	days := now.Sub(borrowedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return behaviorWeight * math.Exp(-lambda*days)
}

// Build returns a fresh graph for userID. A reader without history yields a
// graph holding only their own node.
func (b *Builder) Build(ctx context.Context, userID string) (*cograph.Graph, error) {
	g := cograph.New()
	source := cograph.User(userID)
	g.AddNode(source)
	now := b.nowFn()

	history, err := b.history.FindBorrowHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch borrow history of %s: %w", userID, err)
	}
	if len(history) == 0 {
		return g, nil
	}

	var books []string
	seen := make(map[string]struct{}, len(history))
	for _, rec := range history {
		if rec.BookID == "" {
			continue
		}
		book := cograph.Book(rec.BookID)
		g.AddNode(book)
		g.AddEdge(source, book, b.weight(rec.BorrowedAt, now))
		if _, ok := seen[rec.BookID]; !ok {
			seen[rec.BookID] = struct{}{}
			books = append(books, rec.BookID)
		}
	}

	coBorrowers, err := fetchEach(ctx, b.cfg.FetchConcurrency, books, func(ctx context.Context, bookID string) ([]domain.CoBorrower, error) {
		rows, err := b.history.FindCoBorrowers(ctx, bookID)
		if err != nil {
			return nil, fmt.Errorf("fetch co-borrowers of %s: %w", bookID, err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	var expand []string
	truncated := false
	for i, bookID := range books {
		book := cograph.Book(bookID)
		for _, cb := range sortedCoBorrowers(coBorrowers[i]) {
			if cb.UserID == "" || cb.UserID == userID {
				continue
			}
			other := cograph.User(cb.UserID)
			// A co-borrower is linked from the first book it is found through only.
			if g.HasNode(other) {
				continue
			}
			if b.cfg.MaxCoBorrowers > 0 && len(expand) >= b.cfg.MaxCoBorrowers {
				truncated = true
				continue
			}
			g.AddNode(other)
			g.AddEdge(book, other, b.weight(cb.BorrowedAt, now))
			expand = append(expand, cb.UserID)
		}
	}
	if truncated {
		b.logger.Debug("co-borrower budget reached", "userId", userID, "budget", b.cfg.MaxCoBorrowers)
	}

	histories, err := fetchEach(ctx, b.cfg.FetchConcurrency, expand, func(ctx context.Context, otherID string) ([]domain.BorrowRecord, error) {
		rows, err := b.history.FindBorrowHistory(ctx, otherID)
		if err != nil {
			return nil, fmt.Errorf("fetch borrow history of co-borrower %s: %w", otherID, err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	for i, otherID := range expand {
		other := cograph.User(otherID)
		for _, rec := range histories[i] {
			if rec.BookID == "" {
				continue
			}
			book := cograph.Book(rec.BookID)
			g.AddNode(book)
			g.AddEdge(other, book, b.weight(rec.BorrowedAt, now))
		}
	}

	return g, nil
}

func (b *Builder) weight(borrowedAt, now time.Time) float64 {
	return DecayWeight(b.cfg.BehaviorWeight, b.cfg.Lambda, borrowedAt, now)
}

// sortedCoBorrowers orders rows by reader then borrow time so the co-borrower
// budget always admits the same readers for the same data.
func sortedCoBorrowers(rows []domain.CoBorrower) []domain.CoBorrower {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b domain.CoBorrower) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return a.BorrowedAt.Compare(b.BorrowedAt)
	})
	return out
}

// fetchEach runs fetch for every key with at most limit calls in flight and
// returns the results in key order. The first error cancels the rest.
func fetchEach[T any](ctx context.Context, limit int, keys []string, fetch func(context.Context, string) (T, error)) ([]T, error) {
	out := make([]T, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, key := range keys {
		i, key := i, key
		group.Go(func() error {
			v, err := fetch(groupCtx, key)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
