package generator

// Config drives the synthetic library generator.
type Config struct {
	NumReaders int
	NumBooks   int
	NumBorrows int
	// Genres is the number of taste clusters books and readers are split into.
	Genres int
	// GenreAffinity is the probability a borrow comes from the reader's
	// favourite genre rather than the whole catalogue.
	GenreAffinity float64
	// PopularitySkew is the Zipf exponent (> 1) shaping how often popular
	// books are borrowed within a genre.
	PopularitySkew float64
	// HistoryDays is how far back borrow dates may go.
	HistoryDays int
	Seed        int64
}

// DefaultConfig returns a mid-sized branch library.
func DefaultConfig() Config {
	return Config{
		NumReaders:     2000,
		NumBooks:       5000,
		NumBorrows:     40000,
		Genres:         12,
		GenreAffinity:  0.75,
		PopularitySkew: 1.2,
		HistoryDays:    540,
		Seed:           42,
	}
}
