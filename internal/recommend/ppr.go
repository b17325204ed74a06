package recommend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/vanshika/shelfwise/internal/cograph"
	"github.com/vanshika/shelfwise/internal/domain"
)

// ErrInvalidParams is returned when ranking parameters are out of range.
var ErrInvalidParams = errors.New("invalid ranking parameters")

// State is the terminal state of a PageRank run.
type State string

const (
	StateConverged State = "converged"
	StateExhausted State = "exhausted"
)

// Params configures one personalised PageRank run.
type Params struct {
	RestartProbability float64
	MaxIterations      int
	TopN               int
	// Tolerance is the L1 distance between consecutive score vectors below
	// which the walk is considered converged.
	Tolerance float64
	// MaxDuration bounds wall-clock time spent iterating. Zero disables it.
	MaxDuration time.Duration
}

func DefaultParams() Params {
	return Params{
		RestartProbability: 0.15,
		MaxIterations:      50,
		TopN:               10,
		Tolerance:          1e-6,
	}
}

// Validate reports whether the parameters describe a runnable walk.
func (p Params) Validate() error {
	switch {
	case !(p.RestartProbability > 0 && p.RestartProbability < 1):
		return fmt.Errorf("%w: restart probability %v not in (0,1)", ErrInvalidParams, p.RestartProbability)
	case p.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations %d must be positive", ErrInvalidParams, p.MaxIterations)
	case p.Tolerance <= 0 || math.IsNaN(p.Tolerance):
		return fmt.Errorf("%w: tolerance %v must be positive", ErrInvalidParams, p.Tolerance)
	case p.MaxDuration < 0:
		return fmt.Errorf("%w: max duration %s is negative", ErrInvalidParams, p.MaxDuration)
	}
	return nil
}

// Result is the full outcome of a run.
type Result struct {
	Source     cograph.NodeID
	Scores     map[cograph.NodeID]float64
	Iterations int
	State      State
	// Residual is the L1 distance of the last iteration.
	Residual float64
}

// Score returns the score of id, zero when the node was not ranked.
func (r Result) Score(id cograph.NodeID) float64 {
	return r.Scores[id]
}

// TopBooks returns up to n books the source has not borrowed, by score
// descending and book id ascending on ties. Books with a zero score are
// still candidates.
func (r Result) TopBooks(g *cograph.Graph, n int) []domain.ScoredBook {
	if n <= 0 || len(r.Scores) == 0 {
		return []domain.ScoredBook{}
	}
	borrowed := make(map[cograph.NodeID]struct{})
	for _, nb := range g.Neighbors(r.Source) {
		if nb.IsBook() {
			borrowed[nb] = struct{}{}
		}
	}

	candidates := make([]domain.ScoredBook, 0, len(r.Scores))
	for id, score := range r.Scores {
		if !id.IsBook() {
			continue
		}
		if _, ok := borrowed[id]; ok {
			continue
		}
		candidates = append(candidates, domain.ScoredBook{BookID: id.ID, Score: score})
	}
	slices.SortFunc(candidates, func(a, b domain.ScoredBook) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.BookID, b.BookID)
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// Engine runs personalised PageRank (random walk with restart) over a graph.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	nowFn func() time.Time
}

func NewEngine() *Engine {
	return &Engine{nowFn: time.Now}
}

// WithClock overrides the time provider used for the MaxDuration bound.
func (e *Engine) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		e.nowFn = nowFn
	}
}

type arc struct {
	to     int
	weight float64
}

// Run iterates until the scores converge, the iteration cap is hit or the
// duration bound expires. An unknown source yields an empty result.
//
// The source receives the restart mass every iteration. Nodes with no outgoing
// weight do not propagate, except the source itself, whose walk mass returns to
// it; the mass of other sinks leaves the system.
func (e *Engine) Run(ctx context.Context, sourceUserID string, g *cograph.Graph, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	source := cograph.User(sourceUserID)
	if g == nil || !g.HasNode(source) {
		return Result{Source: source, Scores: map[cograph.NodeID]float64{}, State: StateConverged}, nil
	}

	ids := g.NodeIDs()
	index := make(map[cograph.NodeID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	arcs := make([][]arc, len(ids))
	totals := make([]float64, len(ids))
	for i, id := range ids {
		for _, to := range g.Neighbors(id) {
			w := g.EdgeWeight(id, to)
			if w <= 0 {
				continue
			}
			arcs[i] = append(arcs[i], arc{to: index[to], weight: w})
			totals[i] += w
		}
	}

	src := index[source]
	r := params.RestartProbability
	scores := make([]float64, len(ids))
	next := make([]float64, len(ids))
	scores[src] = 1

	var deadline time.Time
	if params.MaxDuration > 0 {
		deadline = e.nowFn().Add(params.MaxDuration)
	}

	state := StateExhausted
	iterations := 0
	residual := math.Inf(1)
	for iterations < params.MaxIterations {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("rank from %s: %w", sourceUserID, err)
		}
		clear(next)
		next[src] = r
		for u, s := range scores {
			if s == 0 {
				continue
			}
			walk := s * (1 - r)
			if totals[u] <= 0 {
				if u == src {
					next[src] += walk
				}
				continue
			}
			for _, a := range arcs[u] {
				next[a.to] += walk * a.weight / totals[u]
			}
		}

		residual = 0
		for i := range next {
			residual += math.Abs(next[i] - scores[i])
		}
		scores, next = next, scores
		iterations++

		if residual < params.Tolerance {
			state = StateConverged
			break
		}
		if !deadline.IsZero() && !e.nowFn().Before(deadline) {
			break
		}
	}

	out := make(map[cograph.NodeID]float64, len(ids))
	for i, id := range ids {
		out[id] = scores[i]
	}
	return Result{
		Source:     source,
		Scores:     out,
		Iterations: iterations,
		State:      state,
		Residual:   residual,
	}, nil
}

// Rank runs the walk and returns the top params.TopN unborrowed books.
func (e *Engine) Rank(ctx context.Context, sourceUserID string, g *cograph.Graph, params Params) ([]domain.ScoredBook, error) {
	res, err := e.Run(ctx, sourceUserID, g, params)
	if err != nil {
		return nil, err
	}
	return res.TopBooks(g, params.TopN), nil
}
