package json

import (
	"encoding/json"
	"fmt"

	"github.com/ashenfad/hadooptree/tree"
)

type node struct {
	ID          int64        `json:"id"`
	IsLeaf      bool         `json:"isLeaf"`
	ClassCounts []classCount `json:"classCounts"`
	Split       *split       `json:"split,omitempty"`
	TrueChild   *node        `json:"trueChild,omitempty"`
	FalseChild  *node        `json:"falseChild,omitempty"`
}

type classCount struct {
	ClassCategory string `json:"classCategory"`
	Count         int64  `json:"count"`
}

type split struct {
	FieldID       int      `json:"fieldId"`
	IsCategorical bool     `json:"isCategorical"`
	EqualTo       *string  `json:"equalTo,omitempty"`
	LessOrEqualTo *float64 `json:"lessOrEqualTo,omitempty"`
}

func fromCounts(cc tree.ClassCounts) []classCount {
	result := make([]classCount, 0, len(cc))
	for _, c := range cc.Categories() {
		result = append(result, classCount{c, cc[c]})
	}
	return result
}

func (jn *node) counts() (tree.ClassCounts, error) {
	cc := make(tree.ClassCounts, len(jn.ClassCounts))
	for _, c := range jn.ClassCounts {
		if _, ok := cc[c.ClassCategory]; ok {
			return nil, fmt.Errorf("node %d has duplicate class category %q", jn.ID, c.ClassCategory)
		}
		cc[c.ClassCategory] = c.Count
	}
	return cc, nil
}

func fromSplit(s *tree.Split) *split {
	js := &split{FieldID: s.FieldIndex, IsCategorical: s.IsCategorical()}
	if s.IsCategorical() {
		c := s.Category
		js.EqualTo = &c
	} else {
		t := s.Threshold
		js.LessOrEqualTo = &t
	}
	return js
}

func (js *split) split() (*tree.Split, error) {
	if js.IsCategorical {
		if js.EqualTo == nil || js.LessOrEqualTo != nil {
			return nil, fmt.Errorf("categorical split on field %d must have only equalTo", js.FieldID)
		}
		return tree.NewEquality(js.FieldID, *js.EqualTo), nil
	}
	if js.LessOrEqualTo == nil || js.EqualTo != nil {
		return nil, fmt.Errorf("numeric split on field %d must have only lessOrEqualTo", js.FieldID)
	}
	return tree.NewThreshold(js.FieldID, *js.LessOrEqualTo), nil
}

func fromTreeNode(t *tree.Tree, n *tree.Node) (*node, error) {
	jn := &node{ID: int64(n.ID), IsLeaf: n.IsLeaf(), ClassCounts: fromCounts(n.Counts)}
	if n.State != tree.Internal {
		return jn, nil
	}
	jn.Split = fromSplit(n.Split)
	var err error
	for _, c := range []struct {
		dst **node
		id  tree.NodeID
	}{{&jn.TrueChild, n.TrueChild}, {&jn.FalseChild, n.FalseChild}} {
		cn := t.Node(c.id)
		if cn == nil {
			return nil, fmt.Errorf("child %d of node %d not found", c.id, n.ID)
		}
		if *c.dst, err = fromTreeNode(t, cn); err != nil {
			return nil, err
		}
	}
	return jn, nil
}

// flatten appends the tree nodes for a node document and its
// descendants, linking them by id.
func (jn *node) flatten(parent tree.NodeID, nodes []*tree.Node) ([]*tree.Node, error) {
	counts, err := jn.counts()
	if err != nil {
		return nil, err
	}
	n := &tree.Node{
		ID:         tree.NodeID(jn.ID),
		Parent:     parent,
		State:      tree.Frontier,
		Counts:     counts,
		TrueChild:  tree.NoNode,
		FalseChild: tree.NoNode,
	}
	if jn.IsLeaf {
		n.State = tree.Leaf
	}
	nodes = append(nodes, n)
	if jn.Split == nil {
		if jn.TrueChild != nil || jn.FalseChild != nil {
			return nil, fmt.Errorf("node %d has children but no split", jn.ID)
		}
		return nodes, nil
	}
	if jn.IsLeaf {
		return nil, fmt.Errorf("leaf node %d has a split", jn.ID)
	}
	if jn.TrueChild == nil || jn.FalseChild == nil {
		return nil, fmt.Errorf("node %d has a split but not two children", jn.ID)
	}
	if n.Split, err = jn.Split.split(); err != nil {
		return nil, err
	}
	n.State = tree.Internal
	n.TrueChild = tree.NodeID(jn.TrueChild.ID)
	n.FalseChild = tree.NodeID(jn.FalseChild.ID)
	if nodes, err = jn.TrueChild.flatten(n.ID, nodes); err != nil {
		return nil, err
	}
	return jn.FalseChild.flatten(n.ID, nodes)
}

func fromSubtree(st *tree.Subtree) *node {
	jn := &node{ID: int64(st.ID), IsLeaf: st.IsLeaf(), ClassCounts: fromCounts(st.Counts)}
	if st.IsLeaf() {
		return jn
	}
	jn.Split = fromSplit(st.Split)
	jn.TrueChild = fromSubtree(st.True)
	jn.FalseChild = fromSubtree(st.False)
	return jn
}

func (jn *node) subtree() (*tree.Subtree, error) {
	counts, err := jn.counts()
	if err != nil {
		return nil, err
	}
	st := &tree.Subtree{ID: tree.NodeID(jn.ID), Counts: counts}
	if jn.Split == nil {
		if jn.TrueChild != nil || jn.FalseChild != nil {
			return nil, fmt.Errorf("subtree node %d has children but no split", jn.ID)
		}
		return st, nil
	}
	if jn.TrueChild == nil || jn.FalseChild == nil {
		return nil, fmt.Errorf("subtree node %d has a split but not two children", jn.ID)
	}
	if st.Split, err = jn.Split.split(); err != nil {
		return nil, err
	}
	if st.True, err = jn.TrueChild.subtree(); err != nil {
		return nil, err
	}
	if st.False, err = jn.FalseChild.subtree(); err != nil {
		return nil, err
	}
	return st, nil
}

/*
EncodeSubtree takes a detached subtree and returns its JSON document,
where nodes without an id carry an id of -1. Its root must have a
valid split if it is not a leaf.
*/
func EncodeSubtree(st *tree.Subtree) ([]byte, error) {
	if st == nil {
		return nil, fmt.Errorf("encoding nil subtree")
	}
	return json.Marshal(fromSubtree(st))
}

/*
DecodeSubtree parses a subtree JSON document. Any failure results in
a *CorruptDocumentError carrying the document.
*/
func DecodeSubtree(data []byte) (*tree.Subtree, error) {
	jn := &node{}
	if err := json.Unmarshal(data, jn); err != nil {
		return nil, &CorruptDocumentError{Content: string(data), Err: err}
	}
	st, err := jn.subtree()
	if err != nil {
		return nil, &CorruptDocumentError{Content: string(data), Err: err}
	}
	return st, nil
}
