package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vanshika/shelfwise/internal/service"
)

// Dataset contains the generated catalogue, members and circulation history.
type Dataset struct {
	Books   []service.BookInput   `json:"books"`
	Readers []service.ReaderInput `json:"readers"`
	Borrows []service.BorrowInput `json:"borrows"`
}

// Generator produces synthetic borrowing data with genre communities, so that
// co-borrowing recommendations have structure to find.
type Generator struct {
	cfg   Config
	rand  *rand.Rand
	words wordLists
	nowFn func() time.Time
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.NumReaders <= 0 {
		cfg.NumReaders = defaults.NumReaders
	}
	if cfg.NumBooks <= 0 {
		cfg.NumBooks = defaults.NumBooks
	}
	if cfg.NumBorrows <= 0 {
		cfg.NumBorrows = defaults.NumBorrows
	}
	if cfg.Genres <= 0 {
		cfg.Genres = defaults.Genres
	}
	if cfg.Genres > cfg.NumBooks {
		cfg.Genres = cfg.NumBooks
	}
	if cfg.GenreAffinity < 0 || cfg.GenreAffinity > 1 {
		cfg.GenreAffinity = defaults.GenreAffinity
	}
	if cfg.PopularitySkew <= 1 {
		cfg.PopularitySkew = defaults.PopularitySkew
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = defaults.HistoryDays
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(cfg.Seed)),
		words: defaultWordLists(),
		nowFn: time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (g *Generator) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		g.nowFn = nowFn
	}
}

// Generate synthesises the dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	now := g.nowFn().UTC().Truncate(time.Second)
	genres := g.words.genres(g.cfg.Genres)

	books := make([]service.BookInput, g.cfg.NumBooks)
	byGenre := make([][]int, len(genres))
	for i := range books {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		genre := i % len(genres)
		byGenre[genre] = append(byGenre[genre], i)
		books[i] = service.BookInput{
			ID:            fmt.Sprintf("BK-%06d", i+1),
			Title:         g.title(),
			Author:        g.name(),
			ISBN:          g.isbn(),
			Genre:         genres[genre],
			PublishedYear: 1900 + g.rand.Intn(now.Year()-1900+1),
		}
	}

	readers := make([]service.ReaderInput, g.cfg.NumReaders)
	favourite := make([]int, g.cfg.NumReaders)
	for i := range readers {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		id := fmt.Sprintf("RD-%06d", i+1)
		joined := now.Add(-time.Duration(g.cfg.HistoryDays*24+g.rand.Intn(365*24)) * time.Hour)
		readers[i] = service.ReaderInput{
			ID:        id,
			FullName:  g.name(),
			Email:     fmt.Sprintf("%s@members.example.org", id),
			CreatedAt: &joined,
		}
		favourite[i] = g.rand.Intn(len(genres))
	}

	pickers := make([]*rand.Zipf, len(byGenre))
	for i, members := range byGenre {
		pickers[i] = rand.NewZipf(g.rand, g.cfg.PopularitySkew, 1, uint64(len(members)-1))
	}
	catalogue := rand.NewZipf(g.rand, g.cfg.PopularitySkew, 1, uint64(len(books)-1))

	borrows := make([]service.BorrowInput, g.cfg.NumBorrows)
	window := time.Duration(g.cfg.HistoryDays) * 24 * time.Hour
	for i := range borrows {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		reader := g.rand.Intn(len(readers))
		var book int
		if g.rand.Float64() < g.cfg.GenreAffinity {
			members := byGenre[favourite[reader]]
			book = members[pickers[favourite[reader]].Uint64()]
		} else {
			book = int(catalogue.Uint64())
		}

		borrowedAt := now.Add(-time.Duration(g.rand.Int63n(int64(window)))).Truncate(time.Second)
		b := service.BorrowInput{
			ReaderID:   readers[reader].ID,
			BookID:     books[book].ID,
			BorrowedAt: borrowedAt,
		}
		if returned := borrowedAt.Add(time.Duration(1+g.rand.Intn(28)) * 24 * time.Hour); returned.Before(now) {
			b.ReturnedAt = &returned
		}
		borrows[i] = b
	}

	return Dataset{Books: books, Readers: readers, Borrows: borrows}, nil
}

func (g *Generator) title() string {
	w := g.words
	return fmt.Sprintf("The %s %s", w.adjectives[g.rand.Intn(len(w.adjectives))], w.nouns[g.rand.Intn(len(w.nouns))])
}

func (g *Generator) name() string {
	w := g.words
	return w.firstNames[g.rand.Intn(len(w.firstNames))] + " " + w.lastNames[g.rand.Intn(len(w.lastNames))]
}

func (g *Generator) isbn() string {
	digits := make([]byte, 13)
	copy(digits, "978")
	sum := 9 + 3*7 + 8
	for i := 3; i < 12; i++ {
		d := g.rand.Intn(10)
		digits[i] = byte('0' + d)
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	digits[12] = byte('0' + (10-sum%10)%10)
	return string(digits)
}
