package domain

// PathKind identifies how a recommended book is connected to the reader.
type PathKind string

const (
	// PathCoBorrowed means another reader borrowed one of the reader's books and the recommended one.
	PathCoBorrowed PathKind = "CO_BORROWED"
	// PathSimilarUser is the generic fallback when no co-borrow chain was found.
	PathSimilarUser PathKind = "SIMILAR_USER"
)

// ExplanationPath justifies a recommendation. SourceBookID and SourceBookTitle are
// empty for SimilarUser paths.
type ExplanationPath struct {
	Kind            PathKind
	SourceBookID    string
	SourceBookTitle string
	TargetBookID    string
	TargetBookTitle string
	Contribution    float64
}

// ScoredBook is a ranked candidate produced by the PageRank engine.
type ScoredBook struct {
	BookID string
	Score  float64
}

// Recommendation is a ranked book with the paths explaining it.
type Recommendation struct {
	BookID  string
	Title   string
	Score   float64
	Paths   []ExplanationPath
	Summary string
}
