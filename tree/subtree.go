package tree

import (
	"fmt"

	"github.com/pkg/errors"
)

/*
Subtree is a tree grown apart from the arena of a Tree, rooted at one of
its frontier nodes. Its root carries the id of that node, while the rest
of its nodes are Unassigned until the subtree is grafted. Nodes without
a split are leaves.
*/
type Subtree struct {
	ID     NodeID
	Counts ClassCounts
	Split  *Split
	True   *Subtree
	False  *Subtree
}

// IsLeaf returns whether the subtree is a single leaf
func (st *Subtree) IsLeaf() bool {
	return st.Split == nil
}

// Size returns the number of nodes in the subtree
func (st *Subtree) Size() int {
	if st == nil {
		return 0
	}
	return 1 + st.True.Size() + st.False.Size()
}

/*
Graft takes a subtree whose root id is the id of a node of the tree and
splices it in place of that node: the node takes the split of the
subtree root and the subtree nodes below it become its descendants. Every
descendant still Unassigned is given a fresh id, depth first with the true
branch first; nodes that already carry an id keep it, so grafting the same
subtree again changes nothing. Subtree nodes without a split become leaves.
*/
func (t *Tree) Graft(st *Subtree) error {
	if st == nil {
		return fmt.Errorf("grafting nil subtree")
	}
	n, ok := t.nodes[st.ID]
	if !ok {
		return fmt.Errorf("grafting subtree: node %d not found", st.ID)
	}
	if st.IsLeaf() {
		return errors.Wrap(t.MarkLeaf(n.ID), "grafting subtree")
	}
	if st.True == nil || st.False == nil {
		return fmt.Errorf("grafting subtree: node %d has a split but not two children", st.ID)
	}
	switch n.State {
	case Leaf:
		return fmt.Errorf("grafting subtree: node %d is a leaf", n.ID)
	case Internal:
		if *n.Split != *st.Split {
			return fmt.Errorf("grafting subtree: node %d already has split %v", n.ID, n.Split)
		}
	default:
		if err := t.checkSplit(st.Split); err != nil {
			return errors.Wrapf(err, "grafting subtree on node %d", n.ID)
		}
	}
	trueID, err := t.attach(st.True, n.ID)
	if err != nil {
		return err
	}
	falseID, err := t.attach(st.False, n.ID)
	if err != nil {
		return err
	}
	s := *st.Split
	n.Split = &s
	n.State = Internal
	n.TrueChild = trueID
	n.FalseChild = falseID
	return nil
}

func (t *Tree) attach(st *Subtree, parent NodeID) (NodeID, error) {
	if st.ID == Unassigned {
		st.ID = t.nextID()
	}
	n, ok := t.nodes[st.ID]
	if !ok {
		n = newNode(st.ID, parent, st.Counts.Clone())
		t.nodes[n.ID] = n
		if n.ID >= t.next {
			t.next = n.ID + 1
		}
	} else if n.Parent != parent {
		return NoNode, fmt.Errorf("grafting subtree: node %d belongs to node %d, not %d", n.ID, n.Parent, parent)
	}
	if st.IsLeaf() {
		n.State = Leaf
		return n.ID, nil
	}
	if st.True == nil || st.False == nil {
		return NoNode, fmt.Errorf("grafting subtree: node %d has a split but not two children", n.ID)
	}
	if err := t.checkSplit(st.Split); err != nil {
		return NoNode, errors.Wrapf(err, "grafting subtree on node %d", n.ID)
	}
	trueID, err := t.attach(st.True, n.ID)
	if err != nil {
		return NoNode, err
	}
	falseID, err := t.attach(st.False, n.ID)
	if err != nil {
		return NoNode, err
	}
	s := *st.Split
	n.Split = &s
	n.State = Internal
	n.TrueChild = trueID
	n.FalseChild = falseID
	return n.ID, nil
}
