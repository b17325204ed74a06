package cograph

import (
	"cmp"
	"fmt"
)

// NodeKind distinguishes the two sides of the bipartite borrowing graph.
type NodeKind uint8

const (
	KindUser NodeKind = iota + 1
	KindBook
)

func (k NodeKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindBook:
		return "book"
	default:
		return "unknown"
	}
}

// NodeID is the identity of a node: a reader or a book with its domain id.
// It is comparable and used directly as a map key.
type NodeID struct {
	Kind NodeKind
	ID   string
}

// User returns the identity of a reader node.
func User(id string) NodeID {
	return NodeID{Kind: KindUser, ID: id}
}

// Book returns the identity of a book node.
func Book(id string) NodeID {
	return NodeID{Kind: KindBook, ID: id}
}

func (n NodeID) IsUser() bool { return n.Kind == KindUser }

func (n NodeID) IsBook() bool { return n.Kind == KindBook }

func (n NodeID) valid() bool {
	return n.ID != "" && (n.Kind == KindUser || n.Kind == KindBook)
}

func (n NodeID) String() string {
	return fmt.Sprintf("%s(%s)", n.Kind, n.ID)
}

// Compare orders identities by kind, then by id.
func (n NodeID) Compare(other NodeID) int {
	if c := cmp.Compare(n.Kind, other.Kind); c != 0 {
		return c
	}
	return cmp.Compare(n.ID, other.ID)
}

// Node holds the outgoing adjacency of one identity.
type Node struct {
	id  NodeID
	out map[NodeID]float64
}

func (n *Node) ID() NodeID {
	return n.id
}

// Weight returns the accumulated weight of the edge to the target, or 0.
func (n *Node) Weight(to NodeID) float64 {
	return n.out[to]
}

// Degree is the number of distinct targets, registered or not.
func (n *Node) Degree() int {
	return len(n.out)
}
