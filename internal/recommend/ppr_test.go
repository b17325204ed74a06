package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/shelfwise/internal/cograph"
	"github.com/vanshika/shelfwise/internal/domain"
)

func edges(g *cograph.Graph, triples ...any) {
	for i := 0; i+2 < len(triples); i += 3 {
		from := triples[i].(cograph.NodeID)
		to := triples[i+1].(cograph.NodeID)
		g.AddNode(from)
		g.AddNode(to)
		g.AddEdge(from, to, triples[i+2].(float64))
	}
}

// closedGraph has an out-edge on every node, so no mass can leak.
func closedGraph() *cograph.Graph {
	u1, u2, u3 := cograph.User("U1"), cograph.User("U2"), cograph.User("U3")
	b1, b2, b3 := cograph.Book("B1"), cograph.Book("B2"), cograph.Book("B3")
	g := cograph.New()
	edges(g,
		u1, b1, 1.0,
		u1, b2, 0.5,
		b1, u2, 0.8,
		b2, u3, 0.3,
		u2, b1, 0.8,
		u2, b3, 0.9,
		u3, b2, 0.3,
		u3, b3, 0.2,
		b3, u2, 0.9,
	)
	return g
}

func sumScores(scores map[cograph.NodeID]float64) float64 {
	var total float64
	for _, s := range scores {
		total += s
	}
	return total
}

func TestRunConservesMassWithoutSinks(t *testing.T) {
	res, err := NewEngine().Run(context.Background(), "U1", closedGraph(), Params{
		RestartProbability: 0.15,
		MaxIterations:      500,
		TopN:               10,
		Tolerance:          1e-10,
	})
	require.NoError(t, err)
	assert.Equal(t, StateConverged, res.State)
	assert.InDelta(t, 1.0, sumScores(res.Scores), 1e-9)
	for id, s := range res.Scores {
		assert.GreaterOrEqual(t, s, 0.0, id.String())
	}
}

func TestRunIsolatedSource(t *testing.T) {
	g := cograph.New()
	g.AddNode(cograph.User("U1"))

	res, err := NewEngine().Run(context.Background(), "U1", g, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, StateConverged, res.State)
	assert.InDelta(t, 1.0, res.Score(cograph.User("U1")), 1e-12)
}

func TestRunUnknownSource(t *testing.T) {
	res, err := NewEngine().Run(context.Background(), "nobody", closedGraph(), DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, res.Scores)
	assert.Empty(t, res.TopBooks(closedGraph(), 5))

	ranked, err := NewEngine().Rank(context.Background(), "nobody", closedGraph(), DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRunExhaustsIterationCap(t *testing.T) {
	params := DefaultParams()
	params.MaxIterations = 2
	res, err := NewEngine().Run(context.Background(), "U1", closedGraph(), params)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 2, res.Iterations)
}

func TestRunStopsAtDeadline(t *testing.T) {
	clock := testNow
	engine := NewEngine()
	engine.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	params := DefaultParams()
	params.MaxIterations = 1000
	params.Tolerance = 1e-15
	params.MaxDuration = 3 * time.Second

	res, err := engine.Run(context.Background(), "U1", closedGraph(), params)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 3, res.Iterations)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine().Run(ctx, "U1", closedGraph(), DefaultParams())
	require.ErrorIs(t, err, context.Canceled)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"restart zero", func(p *Params) { p.RestartProbability = 0 }},
		{"restart one", func(p *Params) { p.RestartProbability = 1 }},
		{"no iterations", func(p *Params) { p.MaxIterations = 0 }},
		{"no tolerance", func(p *Params) { p.Tolerance = 0 }},
		{"negative duration", func(p *Params) { p.MaxDuration = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			assert.True(t, errors.Is(err, ErrInvalidParams), "got %v", err)
		})
	}
	assert.NoError(t, DefaultParams().Validate())
}

func TestRankExcludesBorrowedBooks(t *testing.T) {
	g := closedGraph()
	ranked, err := NewEngine().Rank(context.Background(), "U1", g, DefaultParams())
	require.NoError(t, err)

	require.NotEmpty(t, ranked)
	for _, b := range ranked {
		assert.NotEqual(t, "B1", b.BookID)
		assert.NotEqual(t, "B2", b.BookID)
	}
	assert.Equal(t, "B3", ranked[0].BookID)
}

func TestRankIsDeterministic(t *testing.T) {
	g := cograph.New()
	u1 := cograph.User("U1")
	// Symmetric fan-out produces exact score ties that must break by book id.
	edges(g, u1, cograph.Book("B0"), 1.0, cograph.Book("B0"), cograph.User("U2"), 1.0)
	for _, id := range []string{"Z", "M", "A", "Q"} {
		edges(g, cograph.User("U2"), cograph.Book(id), 1.0)
	}

	first, err := NewEngine().Rank(context.Background(), "U1", g, DefaultParams())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := NewEngine().Rank(context.Background(), "U1", g, DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	ids := make([]string, 0, len(first))
	for _, b := range first {
		ids = append(ids, b.BookID)
	}
	assert.Equal(t, []string{"A", "M", "Q", "Z"}, ids)
}

func TestRankWorkedExample(t *testing.T) {
	g, err := newTestBuilder(workedExample(), DefaultBuilderConfig()).Build(context.Background(), "U1")
	require.NoError(t, err)
	g.AddNode(cograph.Book("B3"))

	ranked, err := NewEngine().Rank(context.Background(), "U1", g, Params{
		RestartProbability: 0.15,
		MaxIterations:      50,
		TopN:               5,
		Tolerance:          1e-6,
	})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "B2", ranked[0].BookID)
	assert.Greater(t, ranked[0].Score, 0.0)
	assert.Equal(t, domain.ScoredBook{BookID: "B3", Score: 0}, ranked[1])
}

func TestTopBooksLimit(t *testing.T) {
	g := closedGraph()
	res, err := NewEngine().Run(context.Background(), "U1", g, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, res.TopBooks(g, 0))
	assert.Len(t, res.TopBooks(g, 1), 1)
}
