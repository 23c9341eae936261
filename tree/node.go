package tree

import (
	"fmt"
	"sort"
	"strings"
)

/*
NodeID identifies a node within a tree. Ids are non-negative integers
assigned by the tree when nodes are attached to it.
*/
type NodeID int64

const (
	// Unassigned is the id of a node of a detached subtree that has
	// not been given an id by a tree yet
	Unassigned NodeID = -1
	// NoNode marks the absence of a parent or a child
	NoNode NodeID = -2
)

/*
State tells where a node stands in the growth of the tree
*/
type State int

const (
	// Frontier nodes may still be split
	Frontier State = iota
	// Leaf nodes will not be split any further
	Leaf
	// Internal nodes have a split and two children
	Internal
)

func (s State) String() string {
	switch s {
	case Frontier:
		return "frontier"
	case Leaf:
		return "leaf"
	case Internal:
		return "internal"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

/*
ClassCounts holds how many training instances of each category of the
objective field reached a node.
*/
type ClassCounts map[string]int64

// Total returns the sum of all counts
func (cc ClassCounts) Total() int64 {
	var t int64
	for _, c := range cc {
		t += c
	}
	return t
}

// Categories returns the categories in the counts in lexical order
func (cc ClassCounts) Categories() []string {
	cs := make([]string, 0, len(cc))
	for c := range cc {
		cs = append(cs, c)
	}
	sort.Strings(cs)
	return cs
}

// Clone returns a copy of the counts
func (cc ClassCounts) Clone() ClassCounts {
	r := make(ClassCounts, len(cc))
	for k, v := range cc {
		r[k] = v
	}
	return r
}

/*
Majority returns the category with the highest count. Ties go to the
category that comes first in lexical order. Empty counts return an
empty string.
*/
func (cc ClassCounts) Majority() string {
	var best string
	var bestCount int64 = -1
	for _, c := range cc.Categories() {
		if cc[c] > bestCount {
			best = c
			bestCount = cc[c]
		}
	}
	return best
}

func (cc ClassCounts) String() string {
	parts := make([]string, 0, len(cc))
	for _, c := range cc.Categories() {
		parts = append(parts, fmt.Sprintf("%s:%d", c, cc[c]))
	}
	return strings.Join(parts, " ")
}

/*
Node is a node of the tree
*/
type Node struct {
	// An ID to identify the node
	ID NodeID
	// The ID for the parent of the node in the tree, NoNode for the root
	Parent NodeID
	// Where the node stands in the growth of the tree
	State State
	// The objective category counts of the training instances that reached
	// the node, taken when the node was created
	Counts ClassCounts
	// The split of the node, set only for internal nodes
	Split *Split
	// The children of the node, set only for internal nodes
	TrueChild  NodeID
	FalseChild NodeID
}

func newNode(id, parent NodeID, counts ClassCounts) *Node {
	return &Node{
		ID:         id,
		Parent:     parent,
		State:      Frontier,
		Counts:     counts,
		TrueChild:  NoNode,
		FalseChild: NoNode,
	}
}

// Total returns the number of training instances that reached the node
func (n *Node) Total() int64 {
	return n.Counts.Total()
}

// PredictedClass returns the majority category of the node counts
func (n *Node) PredictedClass() string {
	return n.Counts.Majority()
}

// IsLeaf returns whether the node has been declared a leaf
func (n *Node) IsLeaf() bool {
	return n.State == Leaf
}

func (n *Node) clone() *Node {
	c := *n
	c.Counts = n.Counts.Clone()
	if n.Split != nil {
		s := *n.Split
		c.Split = &s
	}
	return &c
}
