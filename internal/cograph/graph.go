// Package cograph is the weighted, directed graph the recommender ranks over.
// Readers and books are nodes; edges are derived from borrow events and carry
// accumulated, time-decayed weights.
//
// All mutating operations are silent no-ops on bad input. Edges may point at
// identities that were never registered; such targets are kept but filtered out
// by every read (Neighbors, TotalOutWeight, EdgeWeight). Reads return identities
// in a stable order so that callers iterating over them are deterministic.
package cograph

import (
	"math"
	"slices"
)

// Graph owns every node by identity. It is not safe for concurrent mutation;
// concurrent reads of a fully built graph are fine.
type Graph struct {
	nodes map[NodeID]*Node
}

// Stats summarises the graph size.
type Stats struct {
	Nodes    int
	Users    int
	Books    int
	Edges    int
	Dangling int
}

func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode registers an identity. Re-adding an existing identity does nothing.
func (g *Graph) AddNode(id NodeID) {
	if !id.valid() {
		return
	}
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &Node{id: id, out: make(map[NodeID]float64)}
}

// AddEdge adds weight to the edge from -> to. It does nothing when the source
// is not registered or the weight is negative or not finite.
func (g *Graph) AddEdge(from, to NodeID, weight float64) {
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) || !to.valid() {
		return
	}
	node, ok := g.nodes[from]
	if !ok {
		return
	}
	node.out[to] += weight
}

func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of registered nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NodeIDs returns every registered identity, users first, each kind sorted by id.
func (g *Graph) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, NodeID.Compare)
	return ids
}

// Neighbors returns the registered targets of id's outgoing edges in sorted order.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	node, ok := g.nodes[id]
	if !ok {
		return nil
	}
	targets := make([]NodeID, 0, len(node.out))
	for to := range node.out {
		if _, registered := g.nodes[to]; registered {
			targets = append(targets, to)
		}
	}
	slices.SortFunc(targets, NodeID.Compare)
	return targets
}

// EdgeWeight returns the accumulated weight from -> to, or 0 when there is no
// such edge or the target was never registered.
func (g *Graph) EdgeWeight(from, to NodeID) float64 {
	node, ok := g.nodes[from]
	if !ok {
		return 0
	}
	if _, registered := g.nodes[to]; !registered {
		return 0
	}
	return node.out[to]
}

// TotalOutWeight sums the weights of id's edges to registered targets.
func (g *Graph) TotalOutWeight(id NodeID) float64 {
	var total float64
	for _, to := range g.Neighbors(id) {
		total += g.nodes[id].out[to]
	}
	return total
}

func (g *Graph) Stats() Stats {
	var s Stats
	for id, node := range g.nodes {
		s.Nodes++
		if id.IsUser() {
			s.Users++
		} else {
			s.Books++
		}
		for to := range node.out {
			if _, registered := g.nodes[to]; registered {
				s.Edges++
			} else {
				s.Dangling++
			}
		}
	}
	return s
}
