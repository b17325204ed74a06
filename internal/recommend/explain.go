package recommend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vanshika/shelfwise/internal/cograph"
	"github.com/vanshika/shelfwise/internal/domain"
)

// ErrMissingMetadata indicates the recommended book has no catalogue entry.
var ErrMissingMetadata = errors.New("book metadata not found")

// Explainer rebuilds short co-borrowing chains for ranked candidates. Only the
// reader's direct book neighbours are examined; it never searches further.
type Explainer struct {
	metadata MetadataReader
}

func NewExplainer(metadata MetadataReader) *Explainer {
	return &Explainer{metadata: metadata}
}

// Explain returns the explanation for one candidate. Chains through a book
// without metadata are skipped. A target book without metadata yields
// ErrMissingMetadata.
func (e *Explainer) Explain(ctx context.Context, userID, targetBookID string, g *cograph.Graph, score float64) (domain.Recommendation, error) {
	return e.explain(ctx, userID, targetBookID, g, score, make(map[string]titleLookup))
}

// ExplainAll explains every candidate in order, sharing title lookups between
// them. Candidates whose metadata is missing are dropped and returned
// separately.
func (e *Explainer) ExplainAll(ctx context.Context, userID string, g *cograph.Graph, candidates []domain.ScoredBook) ([]domain.Recommendation, []string, error) {
	titles := make(map[string]titleLookup)
	out := make([]domain.Recommendation, 0, len(candidates))
	var skipped []string
	for _, c := range candidates {
		rec, err := e.explain(ctx, userID, c.BookID, g, c.Score, titles)
		if errors.Is(err, ErrMissingMetadata) {
			skipped = append(skipped, c.BookID)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rec)
	}
	return out, skipped, nil
}

type titleLookup struct {
	title string
	ok    bool
}

func (e *Explainer) title(ctx context.Context, bookID string, cache map[string]titleLookup) (string, bool, error) {
	if hit, ok := cache[bookID]; ok {
		return hit.title, hit.ok, nil
	}
	meta, ok, err := e.metadata.FindBookMetadata(ctx, bookID)
	if err != nil {
		return "", false, fmt.Errorf("fetch metadata of %s: %w", bookID, err)
	}
	cache[bookID] = titleLookup{title: meta.Title, ok: ok}
	return meta.Title, ok, nil
}

func (e *Explainer) explain(ctx context.Context, userID, targetBookID string, g *cograph.Graph, score float64, titles map[string]titleLookup) (domain.Recommendation, error) {
	targetTitle, ok, err := e.title(ctx, targetBookID, titles)
	if err != nil {
		return domain.Recommendation{}, err
	}
	if !ok {
		return domain.Recommendation{}, fmt.Errorf("%w: %s", ErrMissingMetadata, targetBookID)
	}

	source := cograph.User(userID)
	target := cograph.Book(targetBookID)
	var paths []domain.ExplanationPath
	for _, b1 := range g.Neighbors(source) {
		if !b1.IsBook() || b1 == target {
			continue
		}
		w1 := g.EdgeWeight(source, b1)
		var chains []domain.ExplanationPath
		for _, u2 := range g.Neighbors(b1) {
			if !u2.IsUser() || u2 == source {
				continue
			}
			w3 := g.EdgeWeight(u2, target)
			if w3 <= 0 {
				continue
			}
			w2 := g.EdgeWeight(b1, u2)
			chains = append(chains, domain.ExplanationPath{
				Kind:            domain.PathCoBorrowed,
				SourceBookID:    b1.ID,
				TargetBookID:    targetBookID,
				TargetBookTitle: targetTitle,
				Contribution:    (w1 + w2 + w3) / 3,
			})
		}
		if len(chains) == 0 {
			continue
		}
		sourceTitle, ok, err := e.title(ctx, b1.ID, titles)
		if err != nil {
			return domain.Recommendation{}, err
		}
		if !ok {
			continue
		}
		for i := range chains {
			chains[i].SourceBookTitle = sourceTitle
		}
		paths = append(paths, chains...)
	}

	if len(paths) == 0 {
		paths = []domain.ExplanationPath{{
			Kind:            domain.PathSimilarUser,
			TargetBookID:    targetBookID,
			TargetBookTitle: targetTitle,
			Contribution:    score,
		}}
	}
	slices.SortStableFunc(paths, func(a, b domain.ExplanationPath) int {
		return cmp.Compare(b.Contribution, a.Contribution)
	})

	return domain.Recommendation{
		BookID:  targetBookID,
		Title:   targetTitle,
		Score:   score,
		Paths:   paths,
		Summary: summarize(paths[0]),
	}, nil
}

func summarize(top domain.ExplanationPath) string {
	switch top.Kind {
	case domain.PathCoBorrowed:
		return fmt.Sprintf("Readers who borrowed %q also borrowed %q.", top.SourceBookTitle, top.TargetBookTitle)
	default:
		return fmt.Sprintf("Readers with borrowing habits similar to yours enjoyed %q.", top.TargetBookTitle)
	}
}
