package tree

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/pkg/errors"
)

/*
ErrNonCategoricalObjective is returned (wrapped) when a tree is asked to
predict a field that is not categorical.
*/
var ErrNonCategoricalObjective = errors.New("objective field must be categorical")

// Tree represents a classification tree. It is composed of
// the fields of the dataset it is grown on, the index of the
// field it predicts and its nodes, kept in an arena where
// they are addressed by id and link to each other by id.
type Tree struct {
	Fields    []*feature.Field
	Objective int
	RootID    NodeID
	nodes     map[NodeID]*Node
	next      NodeID
}

// New takes the fields of a dataset and the index of the field to
// predict and returns a tree made of a single frontier root node
// holding the category counts of the objective field.
// It returns an error wrapping ErrNonCategoricalObjective if the
// objective field is not categorical.
func New(fields []*feature.Field, objective int) (*Tree, error) {
	if objective < 0 || objective >= len(fields) {
		return nil, fmt.Errorf("objective field index %d out of range for %d fields", objective, len(fields))
	}
	if !fields[objective].IsCategorical() {
		return nil, errors.Wrapf(ErrNonCategoricalObjective, "field %d is %s", objective, fields[objective].Kind)
	}
	t := &Tree{Fields: fields, Objective: objective, nodes: make(map[NodeID]*Node)}
	root := newNode(t.nextID(), NoNode, ClassCounts(fields[objective].Categories).Clone())
	t.nodes[root.ID] = root
	t.RootID = root.ID
	return t, nil
}

// Assemble takes the fields, objective index, root id and nodes of a
// tree and returns the tree made with them, after checking that the
// nodes form a tree under the root: ids are unique and assigned, every
// internal node has a split and two existing children, parents match and
// every node is reachable from the root.
func Assemble(fields []*feature.Field, objective int, rootID NodeID, nodes []*Node) (*Tree, error) {
	if objective < 0 || objective >= len(fields) {
		return nil, fmt.Errorf("objective field index %d out of range for %d fields", objective, len(fields))
	}
	if !fields[objective].IsCategorical() {
		return nil, errors.Wrapf(ErrNonCategoricalObjective, "field %d is %s", objective, fields[objective].Kind)
	}
	t := &Tree{Fields: fields, Objective: objective, RootID: rootID, nodes: make(map[NodeID]*Node, len(nodes))}
	for _, n := range nodes {
		if n.ID < 0 {
			return nil, fmt.Errorf("node with unassigned id %d", n.ID)
		}
		if _, ok := t.nodes[n.ID]; ok {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		t.nodes[n.ID] = n
		if n.ID >= t.next {
			t.next = n.ID + 1
		}
	}
	root, ok := t.nodes[rootID]
	if !ok {
		return nil, fmt.Errorf("root node %d not found", rootID)
	}
	if root.Parent != NoNode {
		return nil, fmt.Errorf("root node %d has parent %d", rootID, root.Parent)
	}
	seen := make(map[NodeID]bool, len(nodes))
	stack := []NodeID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			return nil, fmt.Errorf("node %d reached twice", id)
		}
		seen[id] = true
		n := t.nodes[id]
		if n.State != Internal {
			if n.Split != nil {
				return nil, fmt.Errorf("%s node %d has a split", n.State, id)
			}
			continue
		}
		if n.Split == nil {
			return nil, fmt.Errorf("internal node %d has no split", id)
		}
		if err := t.checkSplit(n.Split); err != nil {
			return nil, errors.Wrapf(err, "node %d", id)
		}
		for _, cid := range []NodeID{n.TrueChild, n.FalseChild} {
			c, ok := t.nodes[cid]
			if !ok {
				return nil, fmt.Errorf("child %d of node %d not found", cid, id)
			}
			if c.Parent != id {
				return nil, fmt.Errorf("node %d has parent %d, expected %d", cid, c.Parent, id)
			}
			stack = append(stack, cid)
		}
	}
	if len(seen) != len(t.nodes) {
		return nil, fmt.Errorf("%d nodes are not reachable from root %d", len(t.nodes)-len(seen), rootID)
	}
	return t, nil
}

// Node returns the node with the given id or nil if there is none
func (t *Tree) Node(id NodeID) *Node {
	return t.nodes[id]
}

// Root returns the root node of the tree
func (t *Tree) Root() *Node {
	return t.nodes[t.RootID]
}

// Len returns the number of nodes in the tree
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Nodes returns the nodes of the tree ordered by id
func (t *Tree) Nodes() []*Node {
	ns := make([]*Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		ns = append(ns, n)
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].ID < ns[j].ID })
	return ns
}

// ObjectiveField returns the field the tree predicts
func (t *Tree) ObjectiveField() *feature.Field {
	return t.Fields[t.Objective]
}

// AddSplit takes the id of a frontier node, a split and the objective
// category counts of the instances satisfying and not satisfying it, and
// turns the node into an internal one with two new frontier children.
// It returns the ids of the true and false children.
func (t *Tree) AddSplit(id NodeID, s *Split, trueCounts, falseCounts ClassCounts) (NodeID, NodeID, error) {
	n, ok := t.nodes[id]
	if !ok {
		return NoNode, NoNode, fmt.Errorf("splitting node %d: not found", id)
	}
	if n.State != Frontier {
		return NoNode, NoNode, fmt.Errorf("splitting node %d: node is %s", id, n.State)
	}
	if err := t.checkSplit(s); err != nil {
		return NoNode, NoNode, errors.Wrapf(err, "splitting node %d", id)
	}
	tc := newNode(t.nextID(), id, trueCounts)
	t.nodes[tc.ID] = tc
	fc := newNode(t.nextID(), id, falseCounts)
	t.nodes[fc.ID] = fc
	n.Split = s
	n.State = Internal
	n.TrueChild = tc.ID
	n.FalseChild = fc.ID
	return tc.ID, fc.ID, nil
}

// MarkLeaf takes the id of a node and declares it a leaf. Marking a
// leaf again is a no-op, marking an internal node is an error.
func (t *Tree) MarkLeaf(id NodeID) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("marking node %d as leaf: not found", id)
	}
	if n.State == Internal {
		return fmt.Errorf("marking node %d as leaf: node is internal", id)
	}
	n.State = Leaf
	return nil
}

// Route takes an instance and returns the node it ends up in when
// descending from the root through the splits it meets, that is, the
// first node without a split.
func (t *Tree) Route(inst feature.Instance) (*Node, error) {
	n, ok := t.nodes[t.RootID]
	if !ok {
		return nil, fmt.Errorf("routing instance: root node %d not found", t.RootID)
	}
	for steps := 0; n.State == Internal; steps++ {
		if steps > len(t.nodes) {
			return nil, fmt.Errorf("routing instance: cycle through node %d", n.ID)
		}
		next := n.FalseChild
		if n.Split.Eval(inst) {
			next = n.TrueChild
		}
		c, ok := t.nodes[next]
		if !ok {
			return nil, fmt.Errorf("routing instance: child %d of node %d not found", next, n.ID)
		}
		n = c
	}
	return n, nil
}

// Range takes the id of a node and the index of a numeric field and
// returns the range of values of that field instances reaching the node
// can have, according to the field statistics and the threshold splits
// on the field of its ancestors.
func (t *Tree) Range(id NodeID, fieldIndex int) (float64, float64, error) {
	if fieldIndex < 0 || fieldIndex >= len(t.Fields) || !t.Fields[fieldIndex].IsNumeric() {
		return 0, 0, fmt.Errorf("range of field %d: not a numeric field", fieldIndex)
	}
	n, ok := t.nodes[id]
	if !ok {
		return 0, 0, fmt.Errorf("range of field %d: node %d not found", fieldIndex, id)
	}
	low, high := t.Fields[fieldIndex].Min, t.Fields[fieldIndex].Max
	for n.Parent != NoNode {
		p, ok := t.nodes[n.Parent]
		if !ok {
			return 0, 0, fmt.Errorf("range of field %d: parent %d of node %d not found", fieldIndex, n.Parent, n.ID)
		}
		if s := p.Split; s != nil && s.Kind == Threshold && s.FieldIndex == fieldIndex {
			if p.TrueChild == n.ID {
				high = math.Min(high, s.Threshold)
			} else {
				low = math.Max(low, s.Threshold)
			}
		}
		n = p
	}
	return low, high, nil
}

// Traverse takes a function and calls it with every node of the tree,
// a parent before its children and the true child before the false one.
// If the function returns an error, the traversing is aborted and the
// error is returned.
func (t *Tree) Traverse(f func(*Node) error) error {
	stack := []NodeID{t.RootID}
	for len(stack) > 0 {
		n, ok := t.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !ok {
			return fmt.Errorf("traversing tree: node not found")
		}
		if err := f(n); err != nil {
			return err
		}
		if n.State == Internal {
			stack = append(stack, n.FalseChild, n.TrueChild)
		}
	}
	return nil
}

// Frontier returns the frontier nodes of the tree ordered by id
func (t *Tree) Frontier() []*Node {
	var result []*Node
	for _, n := range t.Nodes() {
		if n.State == Frontier {
			result = append(result, n)
		}
	}
	return result
}

// Clone returns a deep copy of the tree
func (t *Tree) Clone() *Tree {
	c := &Tree{Fields: make([]*feature.Field, len(t.Fields)), Objective: t.Objective, RootID: t.RootID, nodes: make(map[NodeID]*Node, len(t.nodes)), next: t.next}
	for i, f := range t.Fields {
		c.Fields[i] = f.Clone()
	}
	for id, n := range t.nodes {
		c.nodes[id] = n.clone()
	}
	return c
}

// Equal takes two trees and returns whether they have the same
// objective, the same kinds of fields and the same nodes.
func Equal(a, b *Tree) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Objective != b.Objective || a.RootID != b.RootID || len(a.Fields) != len(b.Fields) || len(a.nodes) != len(b.nodes) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Index != b.Fields[i].Index || a.Fields[i].IsNumeric() != b.Fields[i].IsNumeric() {
			return false
		}
	}
	for id, an := range a.nodes {
		bn, ok := b.nodes[id]
		if !ok || !reflect.DeepEqual(an, bn) {
			return false
		}
	}
	return true
}

func (t *Tree) String() string {
	return t.subtreeString(t.RootID)
}

func (t *Tree) subtreeString(id NodeID) string {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Sprintf("ERROR: node %d not found\n", id)
	}
	result := fmt.Sprintf("[%d] %s { %v }\n", id, n.State, n.Counts)
	if n.State != Internal {
		return result
	}
	result = fmt.Sprintf("%s|\n", result)
	branches := []struct {
		label string
		id    NodeID
	}{{n.Split.String(), n.TrueChild}, {"not " + n.Split.String(), n.FalseChild}}
	for i, b := range branches {
		for j, line := range strings.Split(fmt.Sprintf("{ %s }\n%s", b.label, t.subtreeString(b.id)), "\n") {
			if len(line) == 0 {
				continue
			}
			if j == 0 {
				result = fmt.Sprintf("%s|__%s\n", result, line)
			} else if i < len(branches)-1 {
				result = fmt.Sprintf("%s|  %s\n", result, line)
			} else {
				result = fmt.Sprintf("%s   %s\n", result, line)
			}
		}
	}
	return result
}

func (t *Tree) checkSplit(s *Split) error {
	if s == nil {
		return fmt.Errorf("nil split")
	}
	if s.FieldIndex < 0 || s.FieldIndex >= len(t.Fields) {
		return fmt.Errorf("split on unknown field %d", s.FieldIndex)
	}
	if s.FieldIndex == t.Objective {
		return fmt.Errorf("split on objective field %d", s.FieldIndex)
	}
	if s.Kind == Threshold && !t.Fields[s.FieldIndex].IsNumeric() {
		return fmt.Errorf("threshold split on non numeric field %d", s.FieldIndex)
	}
	if s.Kind == Equality && t.Fields[s.FieldIndex].IsNumeric() {
		return fmt.Errorf("equality split on numeric field %d", s.FieldIndex)
	}
	return nil
}

func (t *Tree) nextID() NodeID {
	id := t.next
	t.next++
	return id
}
