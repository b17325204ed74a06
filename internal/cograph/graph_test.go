package cograph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeIsIdempotent(t *testing.T) {
	g := New()
	g.AddNode(User("U1"))
	g.AddEdge(User("U1"), Book("B1"), 2)
	g.AddNode(User("U1"))

	assert.Equal(t, 1, g.Len())
	node, ok := g.Node(User("U1"))
	require.True(t, ok)
	assert.Equal(t, 1, node.Degree(), "re-adding must not reset adjacency")
}

func TestAddNodeIgnoresInvalidIdentity(t *testing.T) {
	g := New()
	g.AddNode(NodeID{})
	g.AddNode(User(""))
	g.AddNode(NodeID{Kind: 9, ID: "x"})
	assert.Zero(t, g.Len())
}

func TestUserAndBookWithSameIDAreDistinct(t *testing.T) {
	g := New()
	g.AddNode(User("42"))
	g.AddNode(Book("42"))

	assert.Equal(t, 2, g.Len())
	assert.True(t, g.HasNode(User("42")))
	assert.True(t, g.HasNode(Book("42")))
}

func TestAddEdgeAccumulatesWeight(t *testing.T) {
	g := New()
	g.AddNode(User("U1"))
	g.AddNode(Book("B1"))
	g.AddEdge(User("U1"), Book("B1"), 1.5)
	g.AddEdge(User("U1"), Book("B1"), 0.5)

	assert.InDelta(t, 2.0, g.EdgeWeight(User("U1"), Book("B1")), 1e-12)
	assert.InDelta(t, 2.0, g.TotalOutWeight(User("U1")), 1e-12)
}

func TestAddEdgeIsNoopForMissingSourceOrBadWeight(t *testing.T) {
	g := New()
	g.AddNode(Book("B1"))
	g.AddEdge(User("ghost"), Book("B1"), 1)

	g.AddNode(User("U1"))
	g.AddEdge(User("U1"), Book("B1"), -1)
	g.AddEdge(User("U1"), Book("B1"), math.NaN())
	g.AddEdge(User("U1"), Book("B1"), math.Inf(1))

	assert.False(t, g.HasNode(User("ghost")))
	assert.Zero(t, g.TotalOutWeight(User("U1")))
	assert.Zero(t, g.Stats().Edges)
}

func TestDanglingTargetsAreFilteredOnRead(t *testing.T) {
	g := New()
	g.AddNode(User("U1"))
	g.AddNode(Book("B1"))
	g.AddEdge(User("U1"), Book("B1"), 1)
	g.AddEdge(User("U1"), Book("phantom"), 3)

	assert.Equal(t, []NodeID{Book("B1")}, g.Neighbors(User("U1")))
	assert.InDelta(t, 1.0, g.TotalOutWeight(User("U1")), 1e-12)
	assert.Zero(t, g.EdgeWeight(User("U1"), Book("phantom")))

	stats := g.Stats()
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 1, stats.Dangling)
}

func TestNodeIDsAreSorted(t *testing.T) {
	g := New()
	for _, id := range []NodeID{Book("B2"), User("U2"), Book("B1"), User("U1")} {
		g.AddNode(id)
	}

	assert.Equal(t, []NodeID{User("U1"), User("U2"), Book("B1"), Book("B2")}, g.NodeIDs())
}

func TestNeighborsAreSorted(t *testing.T) {
	g := New()
	g.AddNode(Book("B1"))
	for _, id := range []string{"U3", "U1", "U2"} {
		g.AddNode(User(id))
		g.AddEdge(Book("B1"), User(id), 1)
	}

	assert.Equal(t, []NodeID{User("U1"), User("U2"), User("U3")}, g.Neighbors(Book("B1")))
	assert.Nil(t, g.Neighbors(Book("missing")))
}

func TestStatsCountsKinds(t *testing.T) {
	g := New()
	g.AddNode(User("U1"))
	g.AddNode(User("U2"))
	g.AddNode(Book("B1"))
	g.AddEdge(User("U1"), Book("B1"), 1)
	g.AddEdge(Book("B1"), User("U2"), 1)

	assert.Equal(t, Stats{Nodes: 3, Users: 2, Books: 1, Edges: 2}, g.Stats())
}

func TestNodeIDString(t *testing.T) {
	assert.Equal(t, "user(U1)", User("U1").String())
	assert.Equal(t, "book(B1)", Book("B1").String())
}
